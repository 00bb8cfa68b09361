package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkotenko/addrhub/internal/broadcast"
	"github.com/dkotenko/addrhub/internal/client/models"
	"github.com/dkotenko/addrhub/internal/client/secure"
	"github.com/dkotenko/addrhub/internal/logging"
)

// Engine exclusively owns the current account and the selected address.
// Both sides persist through their own archiver and rehydrate at
// construction. The derived session view recomputes whenever either side
// changes: NotAvailable unless both are set, Active(account, address)
// otherwise.
type Engine struct {
	mu        sync.Mutex
	accounts  *secure.Archiver[models.Account]
	addresses *secure.Archiver[models.Address]

	account    models.Account
	hasAccount bool
	address    models.Address
	hasAddress bool

	accountCast *broadcast.Broadcaster[models.AccountState]
	addressCast *broadcast.Broadcaster[models.AddressState]
	sessionCast *broadcast.Broadcaster[models.Session]

	log logging.Logger
}

// NewEngine rehydrates account and selected address from their archives.
func NewEngine(accounts *secure.Archiver[models.Account], addresses *secure.Archiver[models.Address], log logging.Logger) *Engine {
	e := &Engine{
		accounts:    accounts,
		addresses:   addresses,
		accountCast: broadcast.NewSticky[models.AccountState](),
		addressCast: broadcast.NewSticky[models.AddressState](),
		sessionCast: broadcast.NewSticky[models.Session](),
		log:         log,
	}
	e.account, e.hasAccount = accounts.Load()
	e.address, e.hasAddress = addresses.Load()
	e.publishAll()
	return e
}

// SetCurrentAccount replaces the account wholesale.
func (e *Engine) SetCurrentAccount(ctx context.Context, account models.Account) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.account = account
	e.hasAccount = true
	e.publishAll()

	if err := e.accounts.Save(account); err != nil {
		e.log.Error(ctx, "failed to persist account", "error", err)
		return fmt.Errorf("failed to persist account: %w", err)
	}
	return nil
}

// SetSelectedAddress switches the active address. Selection is
// independent of account identity; validating membership is the account
// repository's job.
func (e *Engine) SetSelectedAddress(ctx context.Context, address models.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.address = address
	e.hasAddress = true
	e.publishAll()

	if err := e.addresses.Save(address); err != nil {
		e.log.Error(ctx, "failed to persist selected address", "error", err)
		return fmt.Errorf("failed to persist selected address: %w", err)
	}
	return nil
}

// ClearSession resets both sides to their empty variants. Called on
// logout.
func (e *Engine) ClearSession(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.account = models.Account{}
	e.hasAccount = false
	e.address = models.Address{}
	e.hasAddress = false
	e.publishAll()

	if err := e.accounts.Clear(); err != nil {
		e.log.Error(ctx, "failed to clear account archive", "error", err)
		return fmt.Errorf("failed to clear account archive: %w", err)
	}
	if err := e.addresses.Clear(); err != nil {
		e.log.Error(ctx, "failed to clear address archive", "error", err)
		return fmt.Errorf("failed to clear address archive: %w", err)
	}
	return nil
}

// Account returns the current account; false when not synchronized.
func (e *Engine) Account() (models.Account, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account, e.hasAccount
}

// SelectedAddress returns the selected address; false when none is set.
func (e *Engine) SelectedAddress() (models.Address, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.address, e.hasAddress
}

// Current returns the derived session view.
func (e *Engine) Current() models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session()
}

// ObserveAccount streams account snapshots, current value first.
func (e *Engine) ObserveAccount(ctx context.Context) <-chan models.AccountState {
	return e.accountCast.Subscribe(ctx)
}

// ObserveAddress streams selected-address snapshots, current value first.
func (e *Engine) ObserveAddress(ctx context.Context) <-chan models.AddressState {
	return e.addressCast.Subscribe(ctx)
}

// ObserveSession streams the derived session, current value first, and
// re-emits whenever either input changes.
func (e *Engine) ObserveSession(ctx context.Context) <-chan models.Session {
	return e.sessionCast.Subscribe(ctx)
}

// session runs with e.mu held.
func (e *Engine) session() models.Session {
	if !e.hasAccount || !e.hasAddress {
		return models.SessionNotAvailableValue()
	}
	return models.SessionActiveValue(e.account, e.address)
}

// publishAll runs with e.mu held (or during construction before the
// engine escapes).
func (e *Engine) publishAll() {
	e.accountCast.Publish(models.AccountState{Synchronized: e.hasAccount, Account: e.account})
	e.addressCast.Publish(models.AddressState{Set: e.hasAddress, Address: e.address})
	e.sessionCast.Publish(e.session())
}
