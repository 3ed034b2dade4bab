// Package memory provides in-memory directory stores. They keep tests and
// local development lightweight and intentionally favor clarity over
// performance.
package memory

import (
	"context"
	"sort"
	"sync"

	"mailkeep/internal/directory/models"
	"mailkeep/pkg/platform/sentinel"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]models.User)}
}

func (s *UserStore) Insert(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return sentinel.ErrConflict
	}
	user.Privileges = cloneStrings(user.Privileges)
	s.users[user.Email] = user
	return nil
}

func (s *UserStore) UpdatePassword(_ context.Context, email, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return sentinel.ErrNotFound
	}
	user.Password = credential
	s.users[email] = user
	return nil
}

func (s *UserStore) UpdatePrivileges(_ context.Context, email string, privs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return sentinel.ErrNotFound
	}
	user.Privileges = cloneStrings(privs)
	s.users[email] = user
	return nil
}

func (s *UserStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, email)
	return nil
}

func (s *UserStore) Get(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[email]
	if !ok {
		return models.User{}, sentinel.ErrNotFound
	}
	user.Privileges = cloneStrings(user.Privileges)
	return user, nil
}

func (s *UserStore) GetPassword(_ context.Context, email string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[email]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return user.Password, nil
}

func (s *UserStore) List(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		user.Privileges = cloneStrings(user.Privileges)
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

type AliasStore struct {
	mu      sync.RWMutex
	aliases map[string]models.Alias
}

func NewAliasStore() *AliasStore {
	return &AliasStore{aliases: make(map[string]models.Alias)}
}

func (s *AliasStore) Insert(_ context.Context, alias models.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.aliases[alias.Source]; ok {
		return sentinel.ErrConflict
	}
	alias.Destinations = cloneStrings(alias.Destinations)
	s.aliases[alias.Source] = alias
	return nil
}

func (s *AliasStore) Update(_ context.Context, source string, destinations []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alias, ok := s.aliases[source]
	if !ok {
		return sentinel.ErrNotFound
	}
	alias.Destinations = cloneStrings(destinations)
	s.aliases[source] = alias
	return nil
}

func (s *AliasStore) Delete(_ context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.aliases[source]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.aliases, source)
	return nil
}

func (s *AliasStore) Get(_ context.Context, source string) (models.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alias, ok := s.aliases[source]
	if !ok {
		return models.Alias{}, sentinel.ErrNotFound
	}
	alias.Destinations = cloneStrings(alias.Destinations)
	return alias, nil
}

func (s *AliasStore) List(_ context.Context) ([]models.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	aliases := make([]models.Alias, 0, len(s.aliases))
	for _, alias := range s.aliases {
		alias.Destinations = cloneStrings(alias.Destinations)
		aliases = append(aliases, alias)
	}
	sort.Slice(aliases, func(i, j int) bool { return aliases[i].Source < aliases[j].Source })
	return aliases, nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
