package identity

import (
	"sort"
	"sync"
)

// User is one account accepted by the server. The config file carries the
// users section; plaintext passwords exist only inside the login handshake.
type User struct {
	// Username is the unique identifier presented in the login frame.
	Username string `json:"username" yaml:"username" mapstructure:"username"`

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"-" yaml:"password_hash" mapstructure:"password_hash"`

	// Enabled indicates whether the account may authenticate.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
}

// Store is the in-memory credential set keyed by username.
//
// The handshake path reads it on every accepted socket; user management
// rewrites it when the config changes. Both directions take the lock, so a
// reload never races a login.
type Store struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewStore builds a store from the configured users. Duplicate usernames
// keep the last entry, matching how the config file would be interpreted.
func NewStore(users []User) *Store {
	s := &Store{users: make(map[string]User, len(users))}
	for _, u := range users {
		s.users[u.Username] = u
	}
	return s
}

// Authenticate verifies a username/password pair against the set.
// Returns ErrInvalidCredentials for unknown users or a wrong password, and
// ErrUserDisabled for a disabled account.
func (s *Store) Authenticate(username, password string) error {
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()

	if !ok {
		// Burn a comparison anyway so unknown usernames cost the same as
		// wrong passwords.
		VerifyPassword(password, dummyHash)
		return ErrInvalidCredentials
	}
	if !user.Enabled {
		return ErrUserDisabled
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	return nil
}

// Lookup returns the stored user for username.
func (s *Store) Lookup(username string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	return u, ok
}

// Upsert adds or replaces a user.
func (s *Store) Upsert(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
}

// Remove deletes a user. Returns true when the user existed.
func (s *Store) Remove(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[username]
	delete(s.users, username)
	return ok
}

// Replace swaps the whole set, used on config reload.
func (s *Store) Replace(users []User) {
	next := make(map[string]User, len(users))
	for _, u := range users {
		next[u.Username] = u
	}
	s.mu.Lock()
	s.users = next
	s.mu.Unlock()
}

// Usernames returns all usernames in sorted order.
func (s *Store) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// dummyHash is a valid bcrypt hash of an unguessable random string, used to
// equalize timing when the username does not exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyO3/PpZXRbP3cWV6qlNw4TBoYQmVUSt2e"
