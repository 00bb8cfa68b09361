// Package account keeps the session engine's account side in sync with
// the remote service: it fetches the identity record, validates address
// selection, and clears the session when the user logs out.
package account

import (
	"context"
	"fmt"

	"github.com/dkotenko/addrhub/internal/client/models"
	"github.com/dkotenko/addrhub/internal/client/session"
	"github.com/dkotenko/addrhub/internal/common"
	"github.com/dkotenko/addrhub/internal/logging"
)

// Fetcher is the network surface this repository needs.
type Fetcher interface {
	AccountInfo(ctx context.Context) (models.Account, error)
}

type Repository struct {
	api     Fetcher
	authz   *session.AuthEngine
	session *session.Engine
	log     logging.Logger
}

func NewRepository(api Fetcher, authz *session.AuthEngine, sess *session.Engine, log logging.Logger) *Repository {
	return &Repository{api: api, authz: authz, session: sess, log: log}
}

// Refresh fetches the account record and replaces the session engine's
// copy wholesale. If no address is selected yet and the account has
// exactly one, that address becomes selected. Fails fast when logged out.
func (r *Repository) Refresh(ctx context.Context) error {
	if _, ok := r.authz.AccessToken(); !ok {
		return common.ErrNotAuthenticated
	}

	acct, err := r.api.AccountInfo(ctx)
	if err != nil {
		return err
	}
	if err := r.session.SetCurrentAccount(ctx, acct); err != nil {
		return err
	}

	if _, ok := r.session.SelectedAddress(); !ok && len(acct.Addresses) == 1 {
		return r.session.SetSelectedAddress(ctx, acct.Addresses[0])
	}
	return nil
}

// SelectAddress switches the active address after checking it belongs to
// the current account.
func (r *Repository) SelectAddress(ctx context.Context, handle string) error {
	acct, ok := r.session.Account()
	if !ok {
		return fmt.Errorf("%w: no account synchronized", common.ErrNotFound)
	}
	for _, addr := range acct.Addresses {
		if addr.Handle == handle {
			return r.session.SetSelectedAddress(ctx, addr)
		}
	}
	return fmt.Errorf("%w: address %q", common.ErrNotFound, handle)
}

// WatchLogouts clears the session whenever the auth engine reports an
// explicit logout. It blocks until ctx is cancelled; run it in its own
// goroutine.
func (r *Repository) WatchLogouts(ctx context.Context) {
	events := r.authz.ObserveLogoutEvents(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			if err := r.session.ClearSession(ctx); err != nil {
				r.log.Error(ctx, "failed to clear session on logout", "error", err)
			}
		}
	}
}
