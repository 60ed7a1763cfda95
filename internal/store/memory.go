package store

import (
	"context"
	"sort"
	"sync"

	"github.com/iurnickita/coursebot/internal/model"
)

// memoryStore in-memory хранилище пользователей
type memoryStore struct {
	mu    sync.RWMutex
	users map[int64]model.User
}

func NewMemoryStore() Store {
	return &memoryStore{
		users: make(map[int64]model.User),
	}
}

func (s *memoryStore) GetUser(ctx context.Context, telegramID int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[telegramID]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return user.Clone(), nil
}

func (s *memoryStore) EnsureUser(ctx context.Context, telegramID int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[telegramID]
	if !ok {
		user = model.NewUser(telegramID)
		s.users[telegramID] = user
	}
	return user.Clone(), nil
}

func (s *memoryStore) UpdateUser(ctx context.Context, telegramID int64, fn func(*model.User) error) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[telegramID]
	if !ok {
		return model.User{}, ErrNotFound
	}

	// изменения применяются к копии и сохраняются только целиком
	updated := user.Clone()
	if err := fn(&updated); err != nil {
		return model.User{}, err
	}
	s.users[telegramID] = updated
	return updated.Clone(), nil
}

func (s *memoryStore) ListUsers(ctx context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].TelegramID < users[j].TelegramID })
	return users, nil
}

func (s *memoryStore) ListPending(ctx context.Context) ([]model.PendingEnrollment, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return pendingOf(users), nil
}

func (s *memoryStore) Stats(ctx context.Context) (model.Stats, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return model.Stats{}, err
	}
	return statsOf(users), nil
}

func (s *memoryStore) Close() error {
	return nil
}
