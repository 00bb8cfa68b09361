package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkotenko/addrhub/internal/client/models"
	"github.com/dkotenko/addrhub/internal/client/secure"
)

func newEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	store, err := secure.Open(dir)
	require.NoError(t, err)
	return NewEngine(
		secure.NewArchiver[models.Account](store, secure.KeyAccount),
		secure.NewArchiver[models.Address](store, secure.KeySelectedAddress),
		testLogger(),
	)
}

func testAccount() models.Account {
	return models.Account{
		Name:  "Alice",
		Email: "alice@example.com",
		Addresses: []models.Address{
			{Handle: "alice"},
			{Handle: "al"},
		},
	}
}

func recvSession(t *testing.T, ch <-chan models.Session) models.Session {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session")
		return models.Session{}
	}
}

func TestSessionAllInputCombinations(t *testing.T) {
	ctx := context.Background()
	addr := models.Address{Handle: "alice"}

	cases := []struct {
		name       string
		setAccount bool
		setAddress bool
		want       models.SessionState
	}{
		{"neither", false, false, models.SessionNotAvailable},
		{"account only", true, false, models.SessionNotAvailable},
		{"address only", false, true, models.SessionNotAvailable},
		{"both", true, true, models.SessionActive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t, t.TempDir())
			if tc.setAccount {
				require.NoError(t, e.SetCurrentAccount(ctx, testAccount()))
			}
			if tc.setAddress {
				require.NoError(t, e.SetSelectedAddress(ctx, addr))
			}

			got := e.Current()
			require.Equal(t, tc.want, got.State)
			if tc.want == models.SessionActive {
				require.Equal(t, "Alice", got.Account.Name)
				require.Equal(t, "alice", got.Address.Handle)
			}

			// The stream agrees with the snapshot.
			require.Equal(t, tc.want, recvSession(t, e.ObserveSession(ctx)).State)
		})
	}
}

func TestSessionStreamReEmitsOnEitherInput(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, t.TempDir())

	sessions := e.ObserveSession(ctx)
	require.Equal(t, models.SessionNotAvailable, recvSession(t, sessions).State)

	require.NoError(t, e.SetCurrentAccount(ctx, testAccount()))
	require.Equal(t, models.SessionNotAvailable, recvSession(t, sessions).State)

	require.NoError(t, e.SetSelectedAddress(ctx, models.Address{Handle: "alice"}))
	got := recvSession(t, sessions)
	require.Equal(t, models.SessionActive, got.State)

	require.NoError(t, e.SetSelectedAddress(ctx, models.Address{Handle: "al"}))
	got = recvSession(t, sessions)
	require.Equal(t, models.SessionActive, got.State)
	require.Equal(t, "al", got.Address.Handle)
}

func TestClearSessionResetsBothSides(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, t.TempDir())

	require.NoError(t, e.SetCurrentAccount(ctx, testAccount()))
	require.NoError(t, e.SetSelectedAddress(ctx, models.Address{Handle: "alice"}))
	require.NoError(t, e.ClearSession(ctx))

	_, ok := e.Account()
	require.False(t, ok)
	_, ok = e.SelectedAddress()
	require.False(t, ok)
	require.Equal(t, models.SessionNotAvailable, e.Current().State)
}

func TestSessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	e := newEngine(t, dir)
	require.NoError(t, e.SetCurrentAccount(ctx, testAccount()))
	require.NoError(t, e.SetSelectedAddress(ctx, models.Address{Handle: "al"}))

	// Simulated process restart.
	e2 := newEngine(t, dir)
	got := e2.Current()
	require.Equal(t, models.SessionActive, got.State)
	require.Equal(t, "Alice", got.Account.Name)
	require.Equal(t, "al", got.Address.Handle)
}

func TestAccountAndAddressStreams(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, t.TempDir())

	accounts := e.ObserveAccount(ctx)
	addresses := e.ObserveAddress(ctx)

	require.False(t, (<-accounts).Synchronized)
	require.False(t, (<-addresses).Set)

	require.NoError(t, e.SetCurrentAccount(ctx, testAccount()))
	st := <-accounts
	require.True(t, st.Synchronized)
	require.Equal(t, "Alice", st.Account.Name)

	require.NoError(t, e.SetSelectedAddress(ctx, models.Address{Handle: "alice"}))
	ad := <-addresses
	require.True(t, ad.Set)
	require.Equal(t, "alice", ad.Address.Handle)
}
