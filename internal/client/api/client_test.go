package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkotenko/addrhub/internal/common"
	"github.com/dkotenko/addrhub/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewDefault(slog.LevelError)
}

func staticToken(tok string) TokenSource {
	return func() (string, bool) { return tok, tok != "" }
}

func TestGetSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"response": {"ok": true}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok-1"), testLogger())
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.Get(context.Background(), "/x", &out))
	require.Equal(t, "Bearer tok-1", gotAuth)
	require.True(t, out.OK)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, common.ErrUnauthorized},
		{http.StatusForbidden, common.ErrUnauthorized},
		{http.StatusNotFound, common.ErrNotFound},
		{http.StatusUnprocessableEntity, common.ErrValidation},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := New(srv.URL, nil, testLogger())
		err := c.Post(context.Background(), "/x", map[string]string{}, nil)
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)
		srv.Close()
	}
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"response": {}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil, testLogger())
	var out struct{}
	require.NoError(t, c.Get(context.Background(), "/x", &out))
	require.Equal(t, int32(3), calls.Load())
}

func TestPostDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, nil, testLogger())
	err := c.Post(context.Background(), "/x", map[string]string{}, nil)
	require.ErrorIs(t, err, common.ErrUnavailable)
	require.Equal(t, int32(1), calls.Load())
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	c := New("http://127.0.0.1:1", nil, testLogger())
	err := c.Post(context.Background(), "/x", nil, nil)
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/oauth/token", r.URL.Path)
		w.Write([]byte(`{"response": {"access_token": "tok-1"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil, testLogger())
	tok, err := c.ExchangeCode(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)
}

func TestAccountInfoMapsWireShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/account/info", r.URL.Path)
		w.Write([]byte(`{"response": {
			"name": "Alice",
			"email": "alice@example.com",
			"created": 1714000000,
			"addresses": [
				{"address": "alice", "registration": 1714000000, "expiration": 1777000000}
			]
		}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok"), testLogger())
	account, err := c.AccountInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Alice", account.Name)
	require.Len(t, account.Addresses, 1)
	require.Equal(t, "alice", account.Addresses[0].Handle)
	require.True(t, account.HasAddress("alice"))
	require.False(t, account.HasAddress("bob"))
}
