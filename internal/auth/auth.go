// Package auth matches gateway logins against the user table and answers
// which backends a user may watch.
package auth

import (
	"fmt"
	"sort"

	"golang.org/x/crypto/bcrypt"

	"github.com/firefly-engineering/adminmux/internal/errors"
)

// BcryptCost is the cost used by HashPassword.
const BcryptCost = 12

// Flags is a user's permission bitmask.
type Flags uint8

const (
	FlagDevel Flags = 1 << iota
	FlagAI
	FlagGuest
)

// ParseFlag maps a config flag name to its bit.
func ParseFlag(name string) (Flags, error) {
	switch name {
	case "devel":
		return FlagDevel, nil
	case "ai":
		return FlagAI, nil
	case "guest":
		return FlagGuest, nil
	}
	return 0, fmt.Errorf("unknown user flag %q", name)
}

// User is one account. Users are immutable after load.
type User struct {
	Name         string
	PasswordHash string
	Gender       string
	Flags        Flags
}

// Automated reports whether the account is driven by a bot, whose lines
// never count as chat.
func (u *User) Automated() bool {
	return u.Flags&FlagAI != 0
}

// HashPassword returns the bcrypt hash stored in the user table.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// UserStore is the immutable user table.
type UserStore struct {
	users map[string]*User
}

// NewUserStore indexes users by name.
func NewUserStore(users []*User) *UserStore {
	s := &UserStore{users: make(map[string]*User, len(users))}
	for _, u := range users {
		s.users[u.Name] = u
	}
	return s
}

// Lookup returns the named user, if known.
func (s *UserStore) Lookup(name string) (*User, bool) {
	u, ok := s.users[name]
	return u, ok
}

// Match returns the user whose name and password both match. Unknown
// names and wrong passwords fail the same way.
func (s *UserStore) Match(name, password string) (*User, error) {
	u, ok := s.users[name]
	if !ok {
		return nil, errors.Auth(name)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, errors.Auth(name)
	}
	return u, nil
}

// Authorization maps backend nicknames to the users allowed to watch them.
type Authorization struct {
	allowed map[string]map[string]bool
}

// NewAuthorization builds the lookup from backend → usernames.
func NewAuthorization(byBackend map[string][]string) *Authorization {
	a := &Authorization{allowed: make(map[string]map[string]bool, len(byBackend))}
	for backend, users := range byBackend {
		set := make(map[string]bool, len(users))
		for _, u := range users {
			set[u] = true
		}
		a.allowed[backend] = set
	}
	return a
}

// Allowed reports whether user may watch backend.
func (a *Authorization) Allowed(user, backend string) bool {
	return a.allowed[backend][user]
}

// BackendsFor filters names, in order, to those user may watch.
func (a *Authorization) BackendsFor(user string, names []string) []string {
	var out []string
	for _, name := range names {
		if a.Allowed(user, name) {
			out = append(out, name)
		}
	}
	return out
}

// Backends returns every backend nickname with at least one user, sorted.
func (a *Authorization) Backends() []string {
	names := make([]string, 0, len(a.allowed))
	for name, users := range a.allowed {
		if len(users) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
