package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunKVStoreContract runs a suite of tests to verify that a KVStore implementation
// adheres to the defined interface contract.
func RunKVStoreContract(t *testing.T, store KVStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405") + ":"

	t.Run("SetMany and Get", func(t *testing.T) {
		err := store.SetMany(ctx, map[string]string{
			prefix + "course_draft": `{"title":"Go 101"}`,
			prefix + "course_step":  "2",
		})
		require.NoError(t, err, "SetMany should not return error")

		val, err := store.Get(ctx, prefix+"course_draft")
		require.NoError(t, err)
		assert.Equal(t, `{"title":"Go 101"}`, val)

		val, err = store.Get(ctx, prefix+"course_step")
		require.NoError(t, err)
		assert.Equal(t, "2", val)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.SetMany(ctx, map[string]string{prefix + "k": "one"}))
		require.NoError(t, store.SetMany(ctx, map[string]string{prefix + "k": "two"}))

		val, err := store.Get(ctx, prefix+"k")
		require.NoError(t, err)
		assert.Equal(t, "two", val)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"missing")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.SetMany(ctx, map[string]string{
			prefix + "gone_draft": "{}",
			prefix + "gone_step":  "1",
		}))

		err := store.Delete(ctx, prefix+"gone_draft", prefix+"gone_step")
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Get(ctx, prefix+"gone_draft")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
		_, err = store.Get(ctx, prefix+"gone_step")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)

		// Deleting again is a no-op
		assert.NoError(t, store.Delete(ctx, prefix+"gone_draft"))
	})

	t.Run("Keys", func(t *testing.T) {
		id1 := prefix + "list_a_draft"
		id2 := prefix + "list_b_draft"
		require.NoError(t, store.SetMany(ctx, map[string]string{id1: "{}", id2: "{}"}))
		defer func() {
			_ = store.Delete(ctx, id1, id2)
		}()

		keys, err := store.Keys(ctx, prefix+"list_")
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)

		keys, err = store.Keys(ctx, prefix+"nothing_")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}
