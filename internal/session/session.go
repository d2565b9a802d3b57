// Package session models the shopper's credential as an explicit value.
// Cart operations take a Session argument instead of reading ambient state,
// so the "not logged in" path is decided by the caller's data alone.
package session

import "sync"

// Session is the credential of a logged-in shopper.
// The zero value is an anonymous session.
type Session struct {
	Token    string // Bearer token issued at login
	Username string
	Balance  string // Wallet balance as returned at login; opaque to the client
}

// Authenticated reports whether the session carries a credential.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Keys under which a session is kept in a Store.
const (
	KeyToken    = "token"
	KeyUsername = "username"
	KeyBalance  = "balance"
)

// Store is an opaque key-value store for session data.
// How it persists is up to the implementation.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// Load reads the session held in store. Missing keys yield an anonymous session.
func Load(store Store) Session {
	var s Session
	s.Token, _ = store.Get(KeyToken)
	s.Username, _ = store.Get(KeyUsername)
	s.Balance, _ = store.Get(KeyBalance)
	return s
}

// Save writes s into store.
func Save(store Store, s Session) {
	store.Set(KeyToken, s.Token)
	store.Set(KeyUsername, s.Username)
	store.Set(KeyBalance, s.Balance)
}

// Clear removes all session keys from store (logout).
func Clear(store Store) {
	store.Delete(KeyToken)
	store.Delete(KeyUsername)
	store.Delete(KeyBalance)
}

// MemoryStore is an in-process Store safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

var _ Store = (*MemoryStore)(nil)
