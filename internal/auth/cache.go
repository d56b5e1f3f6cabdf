package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserLoader is the part of the repository the cache reads from.
type UserLoader interface {
	GetUsers(ctx context.Context) ([]database.User, error)
}

type snapshot struct {
	byName map[string]database.User
	byID   map[int64]database.User
}

// UserCache is a read-mostly view of the users table.
type UserCache struct {
	loader UserLoader
	users  atomic.Pointer[snapshot]
}

// NewUserCache creates an empty cache. Call Refresh before use.
func NewUserCache(loader UserLoader) *UserCache {
	c := &UserCache{loader: loader}
	c.users.Store(&snapshot{byName: map[string]database.User{}, byID: map[int64]database.User{}})
	return c
}

// Refresh reloads all users and atomically replaces the snapshot. On error
// the previous snapshot stays in place.
func (c *UserCache) Refresh(ctx context.Context) error {
	users, err := c.loader.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}

	s := &snapshot{
		byName: make(map[string]database.User, len(users)),
		byID:   make(map[int64]database.User, len(users)),
	}
	for _, u := range users {
		s.byName[u.UserName] = u
		s.byID[u.ID] = u
	}
	c.users.Store(s)

	logging.Debug("User cache refreshed: %d users", len(users))
	return nil
}

// Get returns the user with the given id.
func (c *UserCache) Get(id int64) (database.User, bool) {
	u, ok := c.users.Load().byID[id]
	return u, ok
}

// Lookup returns the user with the given name.
func (c *UserCache) Lookup(name string) (database.User, bool) {
	u, ok := c.users.Load().byName[name]
	return u, ok
}

// Users returns all cached users ordered by id.
func (c *UserCache) Users() []database.User {
	s := c.users.Load()
	out := make([]database.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of cached users.
func (c *UserCache) Len() int {
	return len(c.users.Load().byID)
}

// Authenticate checks name and password against the snapshot.
func (c *UserCache) Authenticate(name, password string) (database.User, error) {
	u, ok := c.Lookup(name)
	if !ok {
		// Same bcrypt cost whether or not the user exists.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return database.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return database.User{}, ErrInvalidCredentials
	}
	return u, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("media-catalog"), bcrypt.DefaultCost)
