package draft_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/aretw0/formdraft/internal/testutils"
	"github.com/aretw0/formdraft/pkg/adapters/memory"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/draft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore rejects every write, like a browser with storage disabled.
type failingStore struct {
	*memory.Store
}

func (failingStore) SetMany(ctx context.Context, entries map[string]string) error {
	return errors.New("storage disabled")
}

func TestStore_SaveThenReload(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()

	store := draft.New(kv)
	edits := []domain.Draft{
		{"title": "G"},
		{"title": "Go"},
		{"title": "Go 101", "price": 49.5, "tags": []any{"go", "backend"}},
	}
	for _, d := range edits {
		require.NoError(t, store.Save(ctx, "add_course", d))
	}

	// A new store over the same backend simulates a page reload
	reloaded := draft.New(kv).Load(ctx, "add_course")
	assert.Equal(t, edits[len(edits)-1], reloaded)
}

func TestStore_KeyFormat(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	store := draft.New(kv, draft.WithNamespace("academy"))

	require.NoError(t, store.Save(ctx, "coupon", domain.Draft{"code": "SPRING"}))

	keys, err := kv.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"academy:coupon_draft", "academy:coupon_step"}, keys)

	step, err := kv.Get(ctx, "academy:coupon_step")
	require.NoError(t, err)
	assert.Equal(t, "1", step)
}

func TestStore_SaveKeepsStep(t *testing.T) {
	ctx := context.Background()
	store := draft.New(memory.NewStore())

	require.NoError(t, store.SaveState(ctx, "product", 3, domain.Draft{"name": "Ebook"}))
	require.NoError(t, store.Save(ctx, "product", domain.Draft{"name": "Ebook v2"}))

	snap := store.LoadSnapshot(ctx, "product")
	assert.Equal(t, 3, snap.Step)
	assert.Equal(t, "Ebook v2", snap.Values["name"])
}

func TestStore_ExcludesNonSerializable(t *testing.T) {
	ctx := context.Background()
	store := draft.New(memory.NewStore(), draft.WithExcludedFields("captcha"))

	f, err := os.CreateTemp(t.TempDir(), "cover-*.png")
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, store.Save(ctx, "add_course", domain.Draft{
		"title":     "Go 101",
		"cover":     f,
		"thumbnail": domain.FileRef{Name: "thumb.png"},
		"syllabus":  strings.NewReader("pdf"),
		"raw":       []byte{1, 2, 3},
		"captcha":   "abc",
	}))

	assert.Equal(t, domain.Draft{"title": "Go 101"}, store.Load(ctx, "add_course"))
}

func TestStore_ClearRemovesDraftAndStep(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	store := draft.New(kv)

	require.NoError(t, store.SaveState(ctx, "affiliate_link", 2, domain.Draft{"url": "https://x.io"}))
	require.NoError(t, store.Clear(ctx, "affiliate_link"))

	assert.Equal(t, domain.Draft{}, store.Load(ctx, "affiliate_link"))
	assert.Equal(t, 1, store.LoadStep(ctx, "affiliate_link"))

	keys, err := kv.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_UnreadableValuesLoadAsDefaults(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	require.NoError(t, kv.SetMany(ctx, map[string]string{
		"formdraft:broken_draft": "{not json",
		"formdraft:broken_step":  "two",
	}))

	store := draft.New(kv)
	assert.Equal(t, domain.Draft{}, store.Load(ctx, "broken"))
	assert.Equal(t, 1, store.LoadStep(ctx, "broken"))

	require.NoError(t, kv.SetMany(ctx, map[string]string{"formdraft:broken_step": "-4"}))
	assert.Equal(t, 1, store.LoadStep(ctx, "broken"))
}

func TestStore_ExtraFieldsAreKept(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	require.NoError(t, kv.SetMany(ctx, map[string]string{
		"formdraft:coupon_draft": `{"code":"X","legacy_flag":true}`,
	}))

	d := draft.New(kv).Load(ctx, "coupon")
	assert.Equal(t, "X", d["code"])
	assert.Equal(t, true, d["legacy_flag"])
}

func TestStore_WriteFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	var failed []*domain.DraftEvent

	store := draft.New(failingStore{memory.NewStore()}, draft.WithLifecycleHooks(domain.LifecycleHooks{
		OnSaveFailed: func(ctx context.Context, e *domain.DraftEvent) {
			failed = append(failed, e)
		},
	}))

	err := store.Save(ctx, "add_course", domain.Draft{"title": "Go"})
	assert.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "add_course", failed[0].FormID)
	assert.Error(t, failed[0].Err)

	// Nothing was persisted
	assert.Equal(t, domain.Draft{}, store.Load(ctx, "add_course"))
}

func TestStore_QuotaExceededIsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := draft.New(memory.NewStore(memory.WithQuota(64)))

	err := store.Save(ctx, "add_course", domain.Draft{"description": strings.Repeat("x", 200)})
	assert.NoError(t, err)
	assert.Equal(t, domain.Draft{}, store.Load(ctx, "add_course"))
}

func TestStore_InvalidFormID(t *testing.T) {
	ctx := context.Background()
	store := draft.New(memory.NewStore())

	for _, id := range []string{"", "a b", "../etc", `x\y`} {
		err := store.Save(ctx, id, domain.Draft{})
		assert.ErrorIs(t, err, domain.ErrInvalidFormID, id)
	}
	assert.ErrorIs(t, store.SaveState(ctx, "ok", 0, nil), domain.ErrStepOutOfRange)
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	store := draft.New(kv)

	require.NoError(t, store.Save(ctx, "coupon", domain.Draft{}))
	require.NoError(t, store.Save(ctx, "add_course", domain.Draft{}))
	// Other namespaces are ignored
	require.NoError(t, draft.New(kv, draft.WithNamespace("other")).Save(ctx, "x", domain.Draft{}))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"coupon", "add_course"}, ids)
}

func TestSerializable(t *testing.T) {
	assert.True(t, draft.Serializable(nil))
	assert.True(t, draft.Serializable("x"))
	assert.True(t, draft.Serializable(map[string]any{"a": 1}))
	assert.False(t, draft.Serializable(func() {}))
	assert.False(t, draft.Serializable(make(chan int)))
	assert.False(t, draft.Serializable(&domain.FileRef{}))
}

func TestStore_ReadReportsStoreFailure(t *testing.T) {
	ctx := context.Background()
	kv := testutils.NewFlakyStore(memory.NewStore())
	store := draft.New(kv)
	require.NoError(t, store.SaveState(ctx, "add_course", 2, domain.Draft{"title": "Go"}))

	kv.FailGets(store.DraftKey("add_course"), 1)
	_, err := store.Read(ctx, "add_course")
	assert.ErrorIs(t, err, testutils.ErrUnavailable)

	kv.FailGets(store.StepKey("add_course"), 1)
	_, err = store.ReadStep(ctx, "add_course")
	assert.ErrorIs(t, err, testutils.ErrUnavailable)

	// Missing keys are not failures
	d, err := store.Read(ctx, "coupon")
	require.NoError(t, err)
	assert.Equal(t, domain.Draft{}, d)
	step, err := store.ReadStep(ctx, "coupon")
	require.NoError(t, err)
	assert.Equal(t, 1, step)
}

func TestStore_SaveKeepsStepWhenStepUnreadable(t *testing.T) {
	ctx := context.Background()
	kv := testutils.NewFlakyStore(memory.NewStore())
	var failed []*domain.DraftEvent
	store := draft.New(kv, draft.WithLifecycleHooks(domain.LifecycleHooks{
		OnSaveFailed: func(ctx context.Context, e *domain.DraftEvent) {
			failed = append(failed, e)
		},
	}))
	require.NoError(t, store.SaveState(ctx, "add_course", 3, domain.Draft{"title": "Go"}))

	kv.FailGets(store.StepKey("add_course"), 1)
	require.NoError(t, store.Save(ctx, "add_course", domain.Draft{"title": "Go 101"}))

	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, testutils.ErrUnavailable)
	assert.Equal(t, 3, store.LoadStep(ctx, "add_course"), "step must not fall back to 1")
	assert.Equal(t, domain.Draft{"title": "Go"}, store.Load(ctx, "add_course"))
}
