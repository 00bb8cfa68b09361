// Package secure provides encrypted-at-rest single-value persistence: a
// keyed blob store (Store), a typed single-value archiver (Archiver), and
// a token store (TokenStore). The access token and the session archives
// live here; nothing else in the client touches the backing file.
package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	secretFileName = "machine.key"
	storeFileName  = "store.json"

	secretSize = 32
	nonceSize  = 12
)

var keySalt = []byte("addrhub.secure.v1")

// Store is an encrypted file-backed key/value store. Each value is sealed
// with AES-GCM under a key derived from a per-machine secret created on
// first open. All methods are safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
	key  []byte
	vals map[string][]byte
}

// Open loads (or creates) the store under dir. Failure to create or read
// the machine secret or the store file is unrecoverable: the client cannot
// guarantee session persistence without it, so callers should treat an
// error here as fatal at startup.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create secure store dir: %w", err)
	}

	secret, err := loadOrCreateSecret(filepath.Join(dir, secretFileName))
	if err != nil {
		return nil, err
	}

	s := &Store{
		path: filepath.Join(dir, storeFileName),
		key:  argon2.IDKey(secret, keySalt, 1, 64*1024, 4, 32),
		vals: make(map[string][]byte),
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secure store: %w", err)
	}
	if err := json.Unmarshal(data, &s.vals); err != nil {
		return nil, fmt.Errorf("failed to decode secure store: %w", err)
	}
	return s, nil
}

func loadOrCreateSecret(path string) ([]byte, error) {
	secret, err := os.ReadFile(path)
	if err == nil {
		if len(secret) != secretSize {
			return nil, fmt.Errorf("machine secret has wrong size: %d", len(secret))
		}
		return secret, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read machine secret: %w", err)
	}

	secret = make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate machine secret: %w", err)
	}
	if err := os.WriteFile(path, secret, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write machine secret: %w", err)
	}
	return secret, nil
}

// Set seals value under key and flushes the store file. Passing nil
// removes the entry.
func (s *Store) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == nil {
		delete(s.vals, key)
		return s.flush()
	}

	sealed, err := s.seal(value)
	if err != nil {
		return err
	}
	s.vals[key] = sealed
	return s.flush()
}

// Get returns the plaintext stored under key. The second return is false
// when the key is absent or the stored blob cannot be opened (treated as
// absence, not an error: a corrupt archive means "nothing saved").
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, ok := s.vals[key]
	if !ok {
		return nil, false
	}
	plain, err := s.open(sealed)
	if err != nil {
		return nil, false
	}
	return plain, true
}

// flush runs with s.mu held. The store file is replaced via rename so a
// crash mid-write never leaves a torn archive behind.
func (s *Store) flush() error {
	data, err := json.Marshal(s.vals)
	if err != nil {
		return fmt.Errorf("failed to encode secure store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write secure store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace secure store: %w", err)
	}
	return nil
}

// seal encrypts plaintext with AES-GCM, prefixing the random nonce.
func (s *Store) seal(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return append(nonce, aesgcm.Seal(nil, nonce, plaintext, nil)...), nil
}

func (s *Store) open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, errors.New("sealed value too short")
	}
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
}
