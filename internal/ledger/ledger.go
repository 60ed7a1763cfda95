package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iurnickita/coursebot/internal/catalog"
	"github.com/iurnickita/coursebot/internal/model"
	"github.com/iurnickita/coursebot/internal/store"
)

// Ledger - записи пользователей на курсы. Единственное место,
// где меняются записи со стороны студента.
type Ledger interface {
	SubmitPayment(ctx context.Context, userID int64, itemIDs []string, method model.PaymentMethod, receipt string) (model.User, error)
	Status(ctx context.Context, userID int64) ([]model.Enrollment, error)
}

var (
	ErrEmptySelection = errors.New("no items to enroll")
	ErrInvalidMethod  = errors.New("unknown payment method")
	ErrEmptyReceipt   = errors.New("empty payment receipt")
)

type ledger struct {
	store   store.Store
	catalog catalog.Catalog
	now     func() time.Time
}

func NewLedger(store store.Store, catalog catalog.Catalog) Ledger {
	return &ledger{
		store:   store,
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SubmitPayment записывает чек по каждой позиции: существующая запись
// перезаписывается и возвращается в pending, новой позиции добавляется запись.
// Документ пользователя меняется целиком или не меняется вовсе.
func (l *ledger) SubmitPayment(ctx context.Context, userID int64, itemIDs []string, method model.PaymentMethod, receipt string) (model.User, error) {
	ids := dedup(itemIDs)
	if len(ids) == 0 {
		return model.User{}, ErrEmptySelection
	}
	if !method.Valid() {
		return model.User{}, ErrInvalidMethod
	}
	if strings.TrimSpace(receipt) == "" {
		return model.User{}, ErrEmptyReceipt
	}

	// Проверка позиций до любой записи
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		item, err := l.catalog.Resolve(id)
		if err != nil {
			return model.User{}, fmt.Errorf("%s: %w", id, err)
		}
		names = append(names, item.Name)
	}

	return l.store.UpdateUser(ctx, userID, func(u *model.User) error {
		now := l.now()
		for _, id := range ids {
			if e, ok := u.Enrollment(id); ok {
				e.PaymentMethod = string(method)
				e.PaymentReceipt = receipt
				e.ApprovalStatus = model.ApprovalStatusPending
				e.UpdatedAt = now
				continue
			}
			u.Courses = append(u.Courses, model.Enrollment{
				ItemID:         id,
				PaymentMethod:  string(method),
				PaymentReceipt: receipt,
				ApprovalStatus: model.ApprovalStatusPending,
				UpdatedAt:      now,
			})
		}
		u.Notifications = append(u.Notifications, model.Notification{
			ID:        uuid.NewString(),
			StudentID: u.TelegramID,
			Type:      model.NotificationPaymentSubmitted,
			Message:   "تم إرسال إثبات الدفع: " + strings.Join(names, "، "),
			CreatedAt: now,
		})
		u.LastActive = now
		return nil
	})
}

// Status возвращает записи пользователя в порядке добавления.
func (l *ledger) Status(ctx context.Context, userID int64) ([]model.Enrollment, error) {
	user, err := l.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user.Courses, nil
}

func dedup(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
