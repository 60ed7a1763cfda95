package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/iurnickita/coursebot/internal/model"
	"github.com/iurnickita/coursebot/internal/store/config"
)

// Store - хранилище документов пользователей. Записи о курсах и уведомления
// живут внутри документа пользователя.
type Store interface {
	GetUser(ctx context.Context, telegramID int64) (model.User, error)
	// EnsureUser создаёт пользователя при первом обращении
	EnsureUser(ctx context.Context, telegramID int64) (model.User, error)
	// UpdateUser атомарно читает документ, применяет fn и сохраняет.
	// Если fn вернула ошибку, документ не меняется.
	UpdateUser(ctx context.Context, telegramID int64, fn func(*model.User) error) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ListPending(ctx context.Context) ([]model.PendingEnrollment, error)
	Stats(ctx context.Context) (model.Stats, error)
	Close() error
}

var (
	ErrNotFound    = errors.New("user not found")
	ErrUnavailable = errors.New("store unavailable")
)

func NewStore(cfg config.Config) (Store, error) {
	if cfg.DBDsn == "" {
		return NewMemoryStore(), nil
	}
	return NewPostgresStore(cfg)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// pendingOf выбирает записи в статусе pending из документов пользователей.
func pendingOf(users []model.User) []model.PendingEnrollment {
	var pending []model.PendingEnrollment
	for _, u := range users {
		for _, e := range u.Courses {
			if e.ApprovalStatus == model.ApprovalStatusPending {
				pending = append(pending, model.PendingEnrollment{
					UserID:     u.TelegramID,
					FullName:   u.FullName,
					Enrollment: e,
				})
			}
		}
	}
	return pending
}

func statsOf(users []model.User) model.Stats {
	stats := model.Stats{Users: len(users)}
	for _, u := range users {
		for _, e := range u.Courses {
			switch e.ApprovalStatus {
			case model.ApprovalStatusPending:
				stats.Pending++
			case model.ApprovalStatusApproved:
				stats.Approved++
			case model.ApprovalStatusRejected:
				stats.Rejected++
			}
		}
	}
	return stats
}
