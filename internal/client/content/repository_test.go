package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkotenko/addrhub/internal/client/repositories/records"
	"github.com/dkotenko/addrhub/internal/common"
	"github.com/dkotenko/addrhub/internal/logging"

	_ "modernc.org/sqlite"
)

// ---- fakes ----

type fakeAuthz struct {
	token string
}

func (f *fakeAuthz) AccessToken() (string, bool) { return f.token, f.token != "" }

// fakeCaller records requests and serves canned responses. Safe for
// concurrent callers, matching the real client.
type fakeCaller struct {
	mu sync.Mutex

	GetFn func(path string, out any) error

	PostErr   error
	PostPaths []string
	PostBody  any

	DeleteErr   error
	DeletePaths []string
}

func (f *fakeCaller) Get(ctx context.Context, path string, out any) error {
	if f.GetFn == nil {
		return common.ErrNotFound
	}
	return f.GetFn(path, out)
}

func (f *fakeCaller) Post(ctx context.Context, path string, body, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PostPaths = append(f.PostPaths, path)
	f.PostBody = body
	return f.PostErr
}

func (f *fakeCaller) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeletePaths = append(f.DeletePaths, path)
	return f.DeleteErr
}

func (f *fakeCaller) setPostErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PostErr = err
}

// ---- helpers ----

func setupStore(t *testing.T) records.Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE statuses (
  address    TEXT    NOT NULL,
  key        TEXT    NOT NULL,
  content    TEXT    NOT NULL,
  created_at INTEGER NOT NULL,
  listed     INTEGER NOT NULL DEFAULT 1,
  submitted  INTEGER NOT NULL DEFAULT 1,
  PRIMARY KEY (address, key)
);
`)
	require.NoError(t, err)
	return records.NewSQLiteRepository(db, "statuses")
}

func newStatusRepo(t *testing.T, api *fakeCaller, authz *fakeAuthz) (*Repository[StatusWire], records.Repository) {
	t.Helper()
	store := setupStore(t)
	return Statuses(api, authz, store, logging.NewDefault(slog.LevelError)), store
}

func recvList(t *testing.T, ch <-chan []records.Record) []records.Record {
	t.Helper()
	select {
	case l := <-ch:
		return l
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func statusResponse(items ...[2]string) func(path string, out any) error {
	return func(path string, out any) error {
		w := out.(*StatusWire)
		w.Statuses = w.Statuses[:0]
		for i, it := range items {
			w.Statuses = append(w.Statuses, struct {
				ID      string `json:"id"`
				Content string `json:"content"`
				Created int64  `json:"created"`
			}{ID: it[0], Content: it[1], Created: int64(1714000000 + i)})
		}
		return nil
	}
}

// ---- tests ----

func TestFetchRequiresToken(t *testing.T) {
	repo, _ := newStatusRepo(t, &fakeCaller{}, &fakeAuthz{})
	err := repo.Fetch(context.Background(), "alice")
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestFetchUpsertsAndObserveIsAddressScoped(t *testing.T) {
	ctx := context.Background()
	api := &fakeCaller{GetFn: statusResponse([2]string{"y", "alice's status"})}
	repo, store := newStatusRepo(t, api, &fakeAuthz{token: "tok"})

	// A record for another address already cached locally.
	require.NoError(t, store.Upsert(ctx, records.Record{
		Address: "bob", Key: "x", Content: "bob's status",
		CreatedAt: time.Now(), Listed: true, Submitted: true,
	}))

	require.NoError(t, repo.Fetch(ctx, "alice"))

	list := recvList(t, repo.Observe(ctx, "alice"))
	require.Len(t, list, 1)
	require.Equal(t, "y", list[0].Key)
	require.Equal(t, "alice", list[0].Address)
}

func TestFetchReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	api := &fakeCaller{GetFn: statusResponse([2]string{"s1", "first"})}
	repo, _ := newStatusRepo(t, api, &fakeAuthz{token: "tok"})

	require.NoError(t, repo.Fetch(ctx, "alice"))

	api.GetFn = statusResponse([2]string{"s1", "rewritten"})
	require.NoError(t, repo.Fetch(ctx, "alice"))

	list := recvList(t, repo.Observe(ctx, "alice"))
	require.Len(t, list, 1, "same key must not duplicate")
	require.Equal(t, "rewritten", list[0].Content)
}

func TestSaveOfflineThenReconcile(t *testing.T) {
	ctx := context.Background()
	api := &fakeCaller{PostErr: common.ErrUnavailable}
	repo, _ := newStatusRepo(t, api, &fakeAuthz{token: "tok"})

	rec := NewLocalRecord("alice", "written offline")
	err := repo.Save(ctx, rec)
	require.ErrorIs(t, err, common.ErrUnavailable)

	// Present locally with the not-submitted flag.
	list := recvList(t, repo.Observe(ctx, "alice"))
	require.Len(t, list, 1)
	require.False(t, list[0].Submitted)

	// Network back: reconcile flips the flag without duplicating.
	api.PostErr = nil
	require.NoError(t, repo.Reconcile(ctx, "alice"))

	list = recvList(t, repo.Observe(ctx, "alice"))
	require.Len(t, list, 1)
	require.True(t, list[0].Submitted)
	require.Equal(t, rec.Key, list[0].Key)
}

func TestReconcileLeavesRejectedWritesCached(t *testing.T) {
	ctx := context.Background()
	api := &fakeCaller{PostErr: common.ErrUnavailable}
	repo, _ := newStatusRepo(t, api, &fakeAuthz{token: "tok"})

	_ = repo.Save(ctx, NewLocalRecord("alice", "doomed"))

	// Server now rejects the write permanently.
	api.PostErr = common.ErrValidation
	err := repo.Reconcile(ctx, "alice")
	require.ErrorIs(t, err, common.ErrValidation)

	list := recvList(t, repo.Observe(ctx, "alice"))
	require.Len(t, list, 1, "rejected write stays cached, nothing silently deleted")
	require.False(t, list[0].Submitted)
}

func TestSaveSuccessIsSubmitted(t *testing.T) {
	ctx := context.Background()
	api := &fakeCaller{}
	repo, _ := newStatusRepo(t, api, &fakeAuthz{token: "tok"})

	require.NoError(t, repo.Save(ctx, NewLocalRecord("alice", "hello")))
	require.Equal(t, []string{"/address/alice/statuses"}, api.PostPaths)

	list := recvList(t, repo.Observe(ctx, "alice"))
	require.Len(t, list, 1)
	require.True(t, list[0].Submitted)
}

func TestDeleteIsOptimisticallyLocal(t *testing.T) {
	ctx := context.Background()
	api := &fakeCaller{DeleteErr: common.ErrUnavailable}
	repo, _ := newStatusRepo(t, api, &fakeAuthz{token: "tok"})

	rec := NewLocalRecord("alice", "to delete")
	require.NoError(t, repo.Save(ctx, rec))

	err := repo.Delete(ctx, rec)
	require.ErrorIs(t, err, common.ErrUnavailable)

	// Local removal already happened despite the network failure.
	list := recvList(t, repo.Observe(ctx, "alice"))
	require.Len(t, list, 0)
	require.Equal(t, []string{"/address/alice/statuses/" + rec.Key}, api.DeletePaths)
}

func TestObserveStreamsMutations(t *testing.T) {
	ctx := context.Background()
	api := &fakeCaller{}
	repo, _ := newStatusRepo(t, api, &fakeAuthz{token: "tok"})

	ch := repo.Observe(ctx, "alice")
	require.Len(t, recvList(t, ch), 0, "current (empty) snapshot first")

	require.NoError(t, repo.Save(ctx, NewLocalRecord("alice", "one")))
	require.Len(t, recvList(t, ch), 1)
}

func TestSaveConfirmsOnlyAfterServerAck(t *testing.T) {
	ctx := context.Background()
	var ops []string
	store := setupStore(t)
	repo := Statuses(&fakeCaller{}, &fakeAuthz{token: "tok"},
		&opRecordingStore{Repository: store, ops: &ops}, logging.NewDefault(slog.LevelError))

	require.NoError(t, repo.Save(ctx, NewLocalRecord("alice", "hello")))

	// The cache never says submitted before the server does: an
	// interrupted save must stay visible to the reconcile pass.
	require.Equal(t, []string{"upsert submitted=false", "mark submitted=true"}, ops)
}

func TestConcurrentSaveAndReconcileKeepObserversCurrent(t *testing.T) {
	ctx := context.Background()
	api := &fakeCaller{PostErr: common.ErrUnavailable}
	repo, store := newStatusRepo(t, api, &fakeAuthz{token: "tok"})

	ch := repo.Observe(ctx, "alice")
	recvList(t, ch)

	// Saves fail over the network while a reconcile loop races them.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_ = repo.Save(ctx, NewLocalRecord("alice", "written offline"))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_ = repo.Reconcile(ctx, "alice")
		}
	}()
	wg.Wait()

	api.setPostErr(nil)
	require.NoError(t, repo.Reconcile(ctx, "alice"))

	truth, err := store.ListByAddress(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, truth, 20)

	// Drain the stream: the last snapshot delivered must match the
	// cache, not an earlier interleaving.
	last := recvList(t, ch)
	for {
		select {
		case l := <-ch:
			last = l
		default:
			require.Equal(t, truth, last)
			return
		}
	}
}

func TestResyncFailureLeavesCacheIntact(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for _, key := range []string{"a", "b"} {
		require.NoError(t, store.Upsert(ctx, records.Record{
			Address: "alice", Key: key, Content: "cached",
			CreatedAt: base, Listed: true, Submitted: true,
		}))
	}

	api := &fakeCaller{GetFn: statusResponse([2]string{"b", "2"}, [2]string{"c", "3"})}
	calls := 0
	repo := Statuses(api, &fakeAuthz{token: "tok"},
		&failingUpserts{Repository: store, calls: &calls, failOn: 2}, logging.NewDefault(slog.LevelError))

	require.Error(t, repo.Resync(ctx, "alice"))

	list, err := store.ListByAddress(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, list, 2, "failed resync must not leave a pruned cache")
	for _, r := range list {
		require.Contains(t, []string{"a", "b"}, r.Key)
	}
}

func TestResyncPrunesServerDeletions(t *testing.T) {
	ctx := context.Background()
	api := &fakeCaller{GetFn: statusResponse([2]string{"a", "1"}, [2]string{"b", "2"})}
	repo, _ := newStatusRepo(t, api, &fakeAuthz{token: "tok"})

	require.NoError(t, repo.Fetch(ctx, "alice"))

	// Offline write that must survive the prune.
	api.PostErr = common.ErrUnavailable
	_ = repo.Save(ctx, NewLocalRecord("alice", "pending"))
	api.PostErr = nil

	// "a" deleted on the server.
	api.GetFn = statusResponse([2]string{"b", "2"})
	require.NoError(t, repo.Resync(ctx, "alice"))

	list := recvList(t, repo.Observe(ctx, "alice"))
	keys := make(map[string]bool, len(list))
	pending := 0
	for _, r := range list {
		keys[r.Key] = true
		if !r.Submitted {
			pending++
		}
	}
	require.False(t, keys["a"], "server deletion reflected")
	require.True(t, keys["b"])
	require.Equal(t, 1, pending, "unsubmitted local write survives the prune")
	require.Len(t, list, 2)
}

// opRecordingStore logs the order of persistence mutations.
type opRecordingStore struct {
	records.Repository
	ops *[]string
}

func (s *opRecordingStore) Upsert(ctx context.Context, rec records.Record) error {
	*s.ops = append(*s.ops, fmt.Sprintf("upsert submitted=%v", rec.Submitted))
	return s.Repository.Upsert(ctx, rec)
}

func (s *opRecordingStore) MarkSubmitted(ctx context.Context, address, key string, submitted bool) error {
	*s.ops = append(*s.ops, fmt.Sprintf("mark submitted=%v", submitted))
	return s.Repository.MarkSubmitted(ctx, address, key, submitted)
}

// failingUpserts fails the nth Upsert, inside transactions included.
type failingUpserts struct {
	records.Repository
	calls  *int
	failOn int
}

func (s *failingUpserts) Upsert(ctx context.Context, rec records.Record) error {
	*s.calls++
	if *s.calls >= s.failOn {
		return errors.New("disk full")
	}
	return s.Repository.Upsert(ctx, rec)
}

func (s *failingUpserts) Transact(ctx context.Context, fn func(ctx context.Context, tx records.Repository) error) error {
	return s.Repository.Transact(ctx, func(ctx context.Context, tx records.Repository) error {
		return fn(ctx, &failingUpserts{Repository: tx, calls: s.calls, failOn: s.failOn})
	})
}
