// Package auth implements the OAuth side of login: parsing the callback
// deep link, exchanging the authorization code for an access token, and
// delegating token custody to the auth session engine.
package auth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dkotenko/addrhub/internal/client/session"
	"github.com/dkotenko/addrhub/internal/common"
	"github.com/dkotenko/addrhub/internal/logging"
)

// Exchanger is the single network call this repository needs.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// Repository performs the OAuth code exchange and token lifecycle
// operations. It never touches the token store directly; all custody goes
// through the engine.
type Repository struct {
	api    Exchanger
	engine *session.AuthEngine
	log    logging.Logger
}

func NewRepository(api Exchanger, engine *session.AuthEngine, log logging.Logger) *Repository {
	return &Repository{api: api, engine: engine, log: log}
}

// HandleCallbackURL parses an OAuth callback deep link such as
// "addrhub://callback?code=abc123", exchanges the code, and stores the
// resulting token. A missing or unparsable code yields
// common.ErrMalformedCallback without any network call.
func (r *Repository) HandleCallbackURL(ctx context.Context, raw string) error {
	code, err := parseCallbackCode(raw)
	if err != nil {
		return err
	}

	token, err := r.api.ExchangeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	r.log.Info(ctx, "authorization code exchanged")
	return r.StoreToken(ctx, token)
}

// StoreToken delegates to the auth session engine.
func (r *Repository) StoreToken(ctx context.Context, token string) error {
	return r.engine.SetAccessToken(ctx, token)
}

// RemoveAccessToken logs the user out.
func (r *Repository) RemoveAccessToken(ctx context.Context) error {
	return r.engine.RemoveAccessToken(ctx)
}

// AccessToken returns the current token, or common.ErrNotAuthenticated so
// dependent calls fail fast instead of sending unauthenticated requests.
func (r *Repository) AccessToken() (string, error) {
	token, ok := r.engine.AccessToken()
	if !ok {
		return "", common.ErrNotAuthenticated
	}
	return token, nil
}

func parseCallbackCode(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrMalformedCallback, err)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: missing code parameter", common.ErrMalformedCallback)
	}
	return code, nil
}
