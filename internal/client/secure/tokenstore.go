package secure

// Fixed store keys. Stable across versions for upgrade compatibility.
const (
	KeyAccessToken     = "auth.access-token"
	KeyAccount         = "session.account"
	KeySelectedAddress = "session.selected-address"
)

// TokenStore persists one secret string under a fixed store key. Last
// write wins; setting the empty string removes the entry.
type TokenStore struct {
	store *Store
	key   string
}

// NewTokenStore binds a token store to the given store key, so tokens for
// different purposes never collide.
func NewTokenStore(store *Store, key string) *TokenStore {
	return &TokenStore{store: store, key: key}
}

// Get returns the stored token; false when none is stored.
func (t *TokenStore) Get() (string, bool) {
	data, ok := t.store.Get(t.key)
	if !ok {
		return "", false
	}
	return string(data), true
}

// Set stores the token. An empty token removes the entry.
func (t *TokenStore) Set(token string) error {
	if token == "" {
		return t.store.Set(t.key, nil)
	}
	return t.store.Set(t.key, []byte(token))
}
