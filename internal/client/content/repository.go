// Package content implements the generic fetch/cache/observe pattern
// shared by every content vertical. A Repository composes the network
// service, the local record cache, and the auth engine; verticals differ
// only in their wire response type and path/mapping descriptor.
package content

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkotenko/addrhub/internal/broadcast"
	"github.com/dkotenko/addrhub/internal/client/repositories/records"
	"github.com/dkotenko/addrhub/internal/common"
	"github.com/dkotenko/addrhub/internal/logging"
)

// Caller is the network surface the repository uses.
type Caller interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// TokenChecker reports login state so reads can fail fast while logged
// out. *session.AuthEngine satisfies it.
type TokenChecker interface {
	AccessToken() (string, bool)
}

// Vertical describes one content type: its cache table and how records
// map to and from the remote API.
type Vertical[W any] struct {
	// Name is the cache table name and log label.
	Name string

	// ListPath is the authenticated read endpoint for one address.
	ListPath func(address string) string

	// FromWire maps a list response into cache records for address.
	FromWire func(address string, w W) []records.Record

	// SavePath and SaveBody describe the write endpoint for one record.
	SavePath func(rec records.Record) string
	SaveBody func(rec records.Record) any

	// DeletePath describes the delete endpoint for one record.
	DeletePath func(rec records.Record) string
}

// Repository is the generic content repository. All cached state is
// scoped by address; no operation ever returns or touches another
// address's records.
type Repository[W any] struct {
	vertical Vertical[W]
	api      Caller
	authz    TokenChecker
	store    records.Repository
	log      logging.Logger

	// mu guards the maps; addrMu serializes cache mutations and their
	// snapshot publishes per address, so observers always see snapshots
	// in the order the mutations were applied.
	mu     sync.Mutex
	casts  map[string]*broadcast.Broadcaster[[]records.Record]
	addrMu map[string]*sync.Mutex
}

func NewRepository[W any](v Vertical[W], api Caller, authz TokenChecker, store records.Repository, log logging.Logger) *Repository[W] {
	return &Repository[W]{
		vertical: v,
		api:      api,
		authz:    authz,
		store:    store,
		log:      log.With("vertical", v.Name),
		casts:    make(map[string]*broadcast.Broadcaster[[]records.Record]),
		addrMu:   make(map[string]*sync.Mutex),
	}
}

// Fetch reads the remote list for address and upserts it into the cache,
// replacing existing records wholesale by (address, key). Server-side
// deletions are not reflected; use Resync for that. Fails fast with
// common.ErrNotAuthenticated when logged out. Cache write failures are
// logged, not propagated: the network read already happened and local
// truth catches up on the next fetch.
func (r *Repository[W]) Fetch(ctx context.Context, address string) error {
	if _, ok := r.authz.AccessToken(); !ok {
		return common.ErrNotAuthenticated
	}

	var w W
	if err := r.api.Get(ctx, r.vertical.ListPath(address), &w); err != nil {
		return fmt.Errorf("fetch %s for %q failed: %w", r.vertical.Name, address, err)
	}

	mu := r.lockAddress(address)
	defer mu.Unlock()

	for _, rec := range r.vertical.FromWire(address, w) {
		if rec.Address != address {
			// Cross-address leakage is a correctness bug; drop and complain.
			r.log.Error(ctx, "mapped record for wrong address", "want", address, "got", rec.Address)
			continue
		}
		if err := r.store.Upsert(ctx, rec); err != nil {
			r.log.Error(ctx, "cache upsert failed", "address", address, "key", rec.Key, "error", err)
		}
	}

	r.notify(ctx, address)
	return nil
}

// Resync is the full-resync-and-prune variant of Fetch: records deleted
// on the server disappear locally too. Unsubmitted local records survive
// the prune, since they are local truth awaiting reconciliation. Prune
// and re-population run in one transaction, so a failure mid-way leaves
// the cache as it was.
func (r *Repository[W]) Resync(ctx context.Context, address string) error {
	if _, ok := r.authz.AccessToken(); !ok {
		return common.ErrNotAuthenticated
	}

	var w W
	if err := r.api.Get(ctx, r.vertical.ListPath(address), &w); err != nil {
		return fmt.Errorf("resync %s for %q failed: %w", r.vertical.Name, address, err)
	}

	mu := r.lockAddress(address)
	defer mu.Unlock()

	err := r.store.Transact(ctx, func(ctx context.Context, tx records.Repository) error {
		pending, err := tx.ListUnsubmitted(ctx, address)
		if err != nil {
			return fmt.Errorf("listing unsubmitted %s records failed: %w", r.vertical.Name, err)
		}
		if err := tx.DeleteByAddress(ctx, address); err != nil {
			return fmt.Errorf("pruning %s records failed: %w", r.vertical.Name, err)
		}

		for _, rec := range r.vertical.FromWire(address, w) {
			if rec.Address != address {
				r.log.Error(ctx, "mapped record for wrong address", "want", address, "got", rec.Address)
				continue
			}
			if err := tx.Upsert(ctx, rec); err != nil {
				return fmt.Errorf("caching %s record %q failed: %w", r.vertical.Name, rec.Key, err)
			}
		}
		// Pending local writes win over the fetched copy of the same key.
		for _, rec := range pending {
			if err := tx.Upsert(ctx, rec); err != nil {
				return fmt.Errorf("restoring pending %s record %q failed: %w", r.vertical.Name, rec.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.notify(ctx, address)
	return nil
}

// Save applies an optimistic local write-through: the record lands in the
// cache (and on the observe stream) before the network write, marked
// not-submitted until the server confirms it. A record is only ever
// persisted as submitted after a successful network write, so an
// interrupted save stays visible to Reconcile.
func (r *Repository[W]) Save(ctx context.Context, rec records.Record) error {
	rec.Submitted = false

	mu := r.lockAddress(rec.Address)
	if err := r.store.Upsert(ctx, rec); err != nil {
		mu.Unlock()
		return fmt.Errorf("local save of %s record failed: %w", r.vertical.Name, err)
	}
	r.notify(ctx, rec.Address)
	mu.Unlock()

	if err := r.submit(ctx, rec); err != nil {
		return fmt.Errorf("remote save of %s record failed: %w", r.vertical.Name, err)
	}

	mu = r.lockAddress(rec.Address)
	defer mu.Unlock()
	if err := r.store.MarkSubmitted(ctx, rec.Address, rec.Key, true); err != nil {
		// The server has the record; the flag stays pending and the next
		// Reconcile pass re-submits, which the upsert endpoints tolerate.
		return fmt.Errorf("confirming %s record failed: %w", r.vertical.Name, err)
	}
	r.notify(ctx, rec.Address)
	return nil
}

// Delete removes the record locally first (optimistic), then issues the
// network delete. A failed network delete is reported but the local
// removal stands.
func (r *Repository[W]) Delete(ctx context.Context, rec records.Record) error {
	mu := r.lockAddress(rec.Address)
	if err := r.store.Delete(ctx, rec.Address, rec.Key); err != nil {
		mu.Unlock()
		return fmt.Errorf("local delete of %s record failed: %w", r.vertical.Name, err)
	}
	r.notify(ctx, rec.Address)
	mu.Unlock()

	if _, ok := r.authz.AccessToken(); !ok {
		return common.ErrNotAuthenticated
	}
	if err := r.api.Delete(ctx, r.vertical.DeletePath(rec)); err != nil {
		return fmt.Errorf("remote delete of %s record failed: %w", r.vertical.Name, err)
	}
	return nil
}

// Observe returns a stream of the cached list for one address, newest
// first: the current snapshot at subscribe time, then a fresh snapshot
// after every local mutation for that address. Cancelling ctx tears down
// only this subscription.
func (r *Repository[W]) Observe(ctx context.Context, address string) <-chan []records.Record {
	return r.caster(ctx, address).Subscribe(ctx)
}

// Reconcile retries the network write for every unsubmitted record of
// one address, oldest first. A successful retry flips the flag without
// duplicating the record. Transient and permanent failures both leave
// the record cached and unsubmitted; the collected errors tell the
// caller which writes are still outstanding.
func (r *Repository[W]) Reconcile(ctx context.Context, address string) error {
	pending, err := r.store.ListUnsubmitted(ctx, address)
	if err != nil {
		return fmt.Errorf("listing unsubmitted %s records failed: %w", r.vertical.Name, err)
	}

	// Network retries run without the address lock; only the flag flips
	// and the resulting publish are serialized with other writers.
	var errs []error
	var confirmed []records.Record
	for _, rec := range pending {
		if err := r.submit(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("record %q: %w", rec.Key, err))
			continue
		}
		confirmed = append(confirmed, rec)
	}

	if len(confirmed) > 0 {
		mu := r.lockAddress(address)
		for _, rec := range confirmed {
			if err := r.store.MarkSubmitted(ctx, rec.Address, rec.Key, true); err != nil {
				errs = append(errs, fmt.Errorf("record %q: %w", rec.Key, err))
			}
		}
		r.notify(ctx, address)
		mu.Unlock()
	}
	return errors.Join(errs...)
}

// submit issues the authenticated network write for one record.
func (r *Repository[W]) submit(ctx context.Context, rec records.Record) error {
	if _, ok := r.authz.AccessToken(); !ok {
		return common.ErrNotAuthenticated
	}
	return r.api.Post(ctx, r.vertical.SavePath(rec), r.vertical.SaveBody(rec), nil)
}

// lockAddress locks the per-address write mutex, creating it on first
// use. Callers unlock once the mutation and its notify are both done.
func (r *Repository[W]) lockAddress(address string) *sync.Mutex {
	r.mu.Lock()
	m, ok := r.addrMu[address]
	if !ok {
		m = &sync.Mutex{}
		r.addrMu[address] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m
}

// caster returns the per-address broadcaster, creating and seeding it
// with the current snapshot on first use. Seeding takes the address lock
// so the seed never lands after a fresher snapshot.
func (r *Repository[W]) caster(ctx context.Context, address string) *broadcast.Broadcaster[[]records.Record] {
	mu := r.lockAddress(address)
	defer mu.Unlock()

	r.mu.Lock()
	c, ok := r.casts[address]
	r.mu.Unlock()
	if ok {
		return c
	}

	c = broadcast.NewSticky[[]records.Record]()
	c.Publish(r.snapshot(ctx, address))
	r.mu.Lock()
	r.casts[address] = c
	r.mu.Unlock()
	return c
}

// notify republishes the current snapshot for address if anyone ever
// observed it. Runs with the address lock held, which orders the publish
// with the mutation that triggered it.
func (r *Repository[W]) notify(ctx context.Context, address string) {
	r.mu.Lock()
	c, ok := r.casts[address]
	r.mu.Unlock()
	if !ok {
		return
	}
	c.Publish(r.snapshot(ctx, address))
}

func (r *Repository[W]) snapshot(ctx context.Context, address string) []records.Record {
	list, err := r.store.ListByAddress(ctx, address, 0)
	if err != nil {
		r.log.Error(ctx, "cache query failed", "address", address, "error", err)
		return nil
	}
	return list
}
