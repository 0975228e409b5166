package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/formdraft/internal/testutils"
	"github.com/aretw0/formdraft/pkg/adapters/memory"
	redisadapter "github.com/aretw0/formdraft/pkg/adapters/redis"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/draft"
	"github.com/aretw0/formdraft/pkg/ports"
	"github.com/aretw0/formdraft/pkg/schema"
	"github.com/aretw0/formdraft/pkg/session"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, opts ...session.Option) (*session.Manager, *draft.Store) {
	t.Helper()
	reg, err := schema.NewRegistry(testutils.CourseForm())
	require.NoError(t, err)
	store := draft.New(memory.NewStore())
	return session.NewManager(reg, store, opts...), store
}

func TestManager_UnknownForm(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	_, err := mgr.Open(ctx, "add_product")
	assert.ErrorIs(t, err, domain.ErrFormNotFound)
	_, err = mgr.Next(ctx, "add_product", nil)
	assert.ErrorIs(t, err, domain.ErrFormNotFound)
	assert.ErrorIs(t, mgr.Cancel(ctx, "add_product"), domain.ErrFormNotFound)
}

func TestManager_FillAndSubmit(t *testing.T) {
	var delivered domain.Draft
	mgr, store := newManager(t, session.WithSubmitter(func(ctx context.Context, values domain.Draft) error {
		delivered = values
		return nil
	}))
	ctx := context.Background()
	values := testutils.CourseValues()

	snap, err := mgr.Open(ctx, "add_course")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Step)
	assert.Empty(t, snap.Values)

	_, err = mgr.Edit(ctx, "add_course", domain.Draft{"title": values["title"]})
	require.NoError(t, err)

	res, err := mgr.Next(ctx, "add_course", domain.Draft{"category": values["category"]})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Step)

	res, err = mgr.Next(ctx, "add_course", domain.Draft{"price": values["price"], "payout_account": values["payout_account"]})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Step)

	res, err = mgr.Back(ctx, "add_course")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Step)

	snap, err = mgr.Open(ctx, "add_course")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Step)
	assert.Equal(t, "Go for backend developers", snap.Values["title"])

	_, err = mgr.Next(ctx, "add_course", nil)
	require.NoError(t, err)
	res, err = mgr.Next(ctx, "add_course", domain.Draft{
		"email":            values["email"],
		"password":         values["password"],
		"confirm_password": values["confirm_password"],
	})
	require.NoError(t, err)
	assert.True(t, res.ReadyToSubmit)

	res, err = mgr.Submit(ctx, "add_course", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Step)
	assert.Equal(t, values["email"], delivered["email"])

	assert.Equal(t, 1, store.LoadStep(ctx, "add_course"))
	assert.Empty(t, store.Load(ctx, "add_course"))
}

func TestManager_EditNilRemovesField(t *testing.T) {
	mgr, store := newManager(t)
	ctx := context.Background()

	_, err := mgr.Edit(ctx, "add_course", domain.Draft{"title": "Go", "category": "design"})
	require.NoError(t, err)
	values, err := mgr.Edit(ctx, "add_course", domain.Draft{"category": nil})
	require.NoError(t, err)

	assert.Equal(t, domain.Draft{"title": "Go"}, values)
	assert.Equal(t, domain.Draft{"title": "Go"}, store.Load(ctx, "add_course"))
}

func TestManager_SubmitFailureKeepsDraft(t *testing.T) {
	mgr, store := newManager(t, session.WithSubmitter(func(ctx context.Context, values domain.Draft) error {
		return errors.New("downstream rejected")
	}))
	ctx := context.Background()

	_, err := mgr.Submit(ctx, "add_course", testutils.CourseValues())
	require.Error(t, err)
	assert.Equal(t, "instructor@academy.io", store.Load(ctx, "add_course")["email"])
}

func TestManager_AutosaveDebouncesEdits(t *testing.T) {
	mgr, store := newManager(t, session.WithAutosave(30*time.Millisecond))
	ctx := context.Background()
	defer func() { _ = mgr.Close(ctx) }()

	_, err := mgr.Edit(ctx, "add_course", domain.Draft{"title": "G"})
	require.NoError(t, err)
	_, err = mgr.Edit(ctx, "add_course", domain.Draft{"title": "Go"})
	require.NoError(t, err)

	// Pending values are visible before they are written
	snap, err := mgr.Open(ctx, "add_course")
	require.NoError(t, err)
	assert.Equal(t, "Go", snap.Values["title"])

	require.Eventually(t, func() bool {
		return store.Load(ctx, "add_course")["title"] == "Go"
	}, time.Second, 10*time.Millisecond)
}

func TestManager_CancelDiscardsPendingAutosave(t *testing.T) {
	mgr, store := newManager(t, session.WithAutosave(20*time.Millisecond))
	ctx := context.Background()
	defer func() { _ = mgr.Close(ctx) }()

	_, err := mgr.Edit(ctx, "add_course", domain.Draft{"title": "Go"})
	require.NoError(t, err)
	require.NoError(t, mgr.Cancel(ctx, "add_course"))

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, store.Load(ctx, "add_course"), "a cleared draft is not resurrected")
}

func TestManager_CloseFlushes(t *testing.T) {
	mgr, store := newManager(t, session.WithAutosave(time.Hour))
	ctx := context.Background()

	_, err := mgr.Edit(ctx, "add_course", domain.Draft{"title": "Go"})
	require.NoError(t, err)
	assert.Empty(t, store.Load(ctx, "add_course"))

	require.NoError(t, mgr.Close(ctx))
	assert.Equal(t, "Go", store.Load(ctx, "add_course")["title"])
}

func TestManager_Locking(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, "add_course", func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside, "work on one form is serialised")
}

type recordingLocker struct {
	mu   sync.Mutex
	keys []string
	ttl  time.Duration
	err  error
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	l.ttl = ttl
	return func(context.Context) error { return nil }, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	mgr, _ := newManager(t, session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	ctx := context.Background()

	_, err := mgr.Next(ctx, "add_course", domain.Draft{"title": "Go", "category": "design"})
	require.NoError(t, err)

	assert.Equal(t, []string{"add_course"}, locker.keys)
	assert.Equal(t, 5*time.Second, locker.ttl)

	locker.err = errors.New("redis down")
	_, err = mgr.Back(ctx, "add_course")
	assert.ErrorContains(t, err, "distributed lock")
}

func TestManager_RedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mgr, _ := newManager(t, session.WithLocker(redisadapter.NewLocker(client, "formdraft:")))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Edit(ctx, "add_course", domain.Draft{"title": "Go"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Empty(t, mr.Keys(), "no lock survives its holder")
}

func newFlakyManager(t *testing.T, opts ...session.Option) (*session.Manager, *draft.Store, *testutils.FlakyStore) {
	t.Helper()
	reg, err := schema.NewRegistry(testutils.CourseForm())
	require.NoError(t, err)
	kv := testutils.NewFlakyStore(memory.NewStore())
	store := draft.New(kv)
	return session.NewManager(reg, store, opts...), store, kv
}

func TestManager_AutosaveKeepsEditsMadeDuringSlowWrite(t *testing.T) {
	mgr, store, kv := newFlakyManager(t, session.WithAutosave(20*time.Millisecond))
	kv.WriteDelay = 100 * time.Millisecond
	ctx := context.Background()

	_, err := mgr.Edit(ctx, "add_course", domain.Draft{"title": "Go"})
	require.NoError(t, err)
	// The first autosave is now being written
	time.Sleep(50 * time.Millisecond)

	values, err := mgr.Edit(ctx, "add_course", domain.Draft{"category": "design"})
	require.NoError(t, err)
	assert.Equal(t, domain.Draft{"title": "Go", "category": "design"}, values)

	require.NoError(t, mgr.Close(ctx))
	assert.Equal(t, domain.Draft{"title": "Go", "category": "design"}, store.Load(ctx, "add_course"))
}

func TestManager_NextDuringSlowAutosaveSeesEarlierEdit(t *testing.T) {
	mgr, store, kv := newFlakyManager(t, session.WithAutosave(20*time.Millisecond))
	kv.WriteDelay = 100 * time.Millisecond
	ctx := context.Background()
	defer func() { _ = mgr.Close(ctx) }()

	_, err := mgr.Edit(ctx, "add_course", domain.Draft{"title": "Go"})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	res, err := mgr.Next(ctx, "add_course", domain.Draft{"category": "design"})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 2, res.Step)

	snap := store.LoadSnapshot(ctx, "add_course")
	assert.Equal(t, 2, snap.Step)
	assert.Equal(t, domain.Draft{"title": "Go", "category": "design"}, snap.Values)
}

func TestManager_ReadFailureDoesNotWipeDraft(t *testing.T) {
	mgr, store, kv := newFlakyManager(t)
	ctx := context.Background()
	values := domain.Draft{"title": "Go", "category": "design", "price": 49.0}
	require.NoError(t, store.SaveState(ctx, "add_course", 2, values))

	kv.FailGets(store.DraftKey("add_course"), 1)
	_, err := mgr.Edit(ctx, "add_course", domain.Draft{"price": 10.0})
	assert.ErrorIs(t, err, testutils.ErrUnavailable)

	kv.FailGets(store.StepKey("add_course"), 1)
	_, err = mgr.Back(ctx, "add_course")
	assert.ErrorIs(t, err, testutils.ErrUnavailable)

	kv.FailGets(store.DraftKey("add_course"), 1)
	_, err = mgr.Next(ctx, "add_course", domain.Draft{"payout_account": "12345678"})
	assert.ErrorIs(t, err, testutils.ErrUnavailable)

	snap := store.LoadSnapshot(ctx, "add_course")
	assert.Equal(t, 2, snap.Step)
	assert.Equal(t, values, snap.Values)
}
