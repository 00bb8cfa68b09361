package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkotenko/addrhub/internal/client/secure"
	"github.com/dkotenko/addrhub/internal/client/session"
	"github.com/dkotenko/addrhub/internal/common"
	"github.com/dkotenko/addrhub/internal/logging"
)

// fakeExchanger implements Exchanger and records the submitted code.
type fakeExchanger struct {
	Token    string
	Err      error
	LastCode string
	Calls    int
}

func (f *fakeExchanger) ExchangeCode(ctx context.Context, code string) (string, error) {
	f.Calls++
	f.LastCode = code
	return f.Token, f.Err
}

func newRepo(t *testing.T, ex *fakeExchanger) (*Repository, *session.AuthEngine) {
	t.Helper()
	store, err := secure.Open(t.TempDir())
	require.NoError(t, err)
	log := logging.NewDefault(slog.LevelError)
	engine := session.NewAuthEngine(secure.NewTokenStore(store, secure.KeyAccessToken), log)
	return NewRepository(ex, engine, log), engine
}

func TestHandleCallbackURL(t *testing.T) {
	ex := &fakeExchanger{Token: "tok-1"}
	repo, engine := newRepo(t, ex)

	require.NoError(t, repo.HandleCallbackURL(context.Background(), "addrhub://callback?code=abc123"))

	require.Equal(t, "abc123", ex.LastCode)
	tok, err := repo.AccessToken()
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)
	require.True(t, engine.IsLoggedIn())
}

func TestHandleCallbackURLMissingCode(t *testing.T) {
	ex := &fakeExchanger{Token: "tok-1"}
	repo, engine := newRepo(t, ex)

	err := repo.HandleCallbackURL(context.Background(), "addrhub://callback?state=x")
	require.ErrorIs(t, err, common.ErrMalformedCallback)
	require.Zero(t, ex.Calls, "no network call for a malformed callback")
	require.False(t, engine.IsLoggedIn())
}

func TestHandleCallbackURLUnparsable(t *testing.T) {
	repo, _ := newRepo(t, &fakeExchanger{})
	err := repo.HandleCallbackURL(context.Background(), "://not a url")
	require.ErrorIs(t, err, common.ErrMalformedCallback)
}

func TestHandleCallbackURLExchangeFails(t *testing.T) {
	ex := &fakeExchanger{Err: errors.New("boom")}
	repo, engine := newRepo(t, ex)

	err := repo.HandleCallbackURL(context.Background(), "addrhub://callback?code=abc")
	require.Error(t, err)
	require.False(t, engine.IsLoggedIn(), "failed exchange must not log in")
}

func TestAccessTokenFailsFastWhenLoggedOut(t *testing.T) {
	repo, _ := newRepo(t, &fakeExchanger{})
	_, err := repo.AccessToken()
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestRemoveAccessToken(t *testing.T) {
	repo, engine := newRepo(t, &fakeExchanger{Token: "tok"})
	require.NoError(t, repo.StoreToken(context.Background(), "tok"))
	require.NoError(t, repo.RemoveAccessToken(context.Background()))
	require.False(t, engine.IsLoggedIn())
}
