package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iurnickita/coursebot/internal/model"
	"github.com/iurnickita/coursebot/internal/notify"
	"github.com/iurnickita/coursebot/internal/session"
)

// StatusEntry - строка ответа на запрос статуса.
type StatusEntry struct {
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
	Status   string `json:"approval_status"`
}

// ItemView - позиция каталога глазами пользователя.
type ItemView struct {
	Item      model.Item
	Status    string // пусто, если записи нет
	GroupLink string // только для approved
}

// SubmitPayment записывает чек для ожидающей оплаты и уведомляет администраторов.
// Повторный чек без новой оплаты - ErrNoPendingPayment, запись не меняется.
func (s *service) SubmitPayment(ctx context.Context, userID int64, receipt string) ([]model.Item, error) {
	payment, ok := s.sessions.Pending(userID)
	if !ok {
		return nil, ErrNoPendingPayment
	}

	var user model.User
	err := s.withUserLock(ctx, userID, func() error {
		// пока ждали блокировку, чек мог уже прийти
		if current, ok := s.sessions.Pending(userID); !ok || !current.Equal(payment) {
			return session.ErrNoPendingPayment
		}
		if _, err := s.store.EnsureUser(ctx, userID); err != nil {
			return err
		}
		var err error
		user, err = s.ledger.SubmitPayment(ctx, userID, payment.ItemIDs(), payment.Method(), receipt)
		if err != nil {
			return err
		}
		if err := s.sessions.Complete(userID, payment); err != nil {
			// оплату успели заменить новой, она остаётся ждать своего чека
			s.zaplog.Debug("pending payment replaced during submit", zap.Int64("user_id", userID))
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]model.Item, 0, len(payment.ItemIDs()))
	for _, id := range payment.ItemIDs() {
		item, err := s.catalog.Resolve(id)
		if err != nil {
			item = model.Item{ID: id, Name: id}
		}
		items = append(items, item)
	}

	s.deliverUser(ctx, notify.UserNotice{
		UserID: userID,
		Type:   model.NotificationPaymentSubmitted,
	})
	for _, item := range items {
		for _, adminID := range s.cfg.AdminIDs {
			s.deliverAdmin(ctx, notify.AdminNotice{
				AdminID:     adminID,
				Kind:        notify.AdminPaymentReview,
				UserID:      userID,
				StudentName: user.FullName,
				ItemID:      item.ID,
				ItemName:    item.Name,
				Method:      payment.Method(),
				Receipt:     receipt,
			})
		}
	}
	if len(s.cfg.AdminIDs) == 0 {
		s.zaplog.Warn("no admins configured, payment review not delivered", zap.Int64("user_id", userID))
	}
	return items, nil
}

func (s *service) Approve(ctx context.Context, adminID, userID int64, itemID string) (model.Enrollment, error) {
	return s.decide(ctx, adminID, userID, itemID, model.ApprovalStatusApproved)
}

func (s *service) Reject(ctx context.Context, adminID, userID int64, itemID string) (model.Enrollment, error) {
	return s.decide(ctx, adminID, userID, itemID, model.ApprovalStatusRejected)
}

var errNoEnrollment = errors.New("enrollment not found")

// decide переводит запись из pending в approved или rejected.
// Статус проверяется по свежепрочитанному документу внутри блокировки.
func (s *service) decide(ctx context.Context, adminID, userID int64, itemID, status string) (model.Enrollment, error) {
	if !s.IsAdmin(adminID) {
		return model.Enrollment{}, ErrForbidden
	}
	item, err := s.catalog.Resolve(itemID)
	if err != nil {
		return model.Enrollment{}, mapError(err)
	}

	notificationType := model.NotificationPaymentApproved
	message := "تمت الموافقة على الدفع: " + item.Name
	if status == model.ApprovalStatusRejected {
		notificationType = model.NotificationPaymentRejected
		message = "تم رفض إثبات الدفع: " + item.Name
	}

	var enrollment model.Enrollment
	err = s.withUserLock(ctx, userID, func() error {
		_, err := s.store.UpdateUser(ctx, userID, func(u *model.User) error {
			e, ok := u.Enrollment(itemID)
			if !ok {
				return errNoEnrollment
			}
			if e.ApprovalStatus != model.ApprovalStatusPending {
				return ErrStaleTransition
			}
			now := time.Now().UTC()
			e.ApprovalStatus = status
			e.UpdatedAt = now
			enrollment = *e

			u.Notifications = append(u.Notifications, model.Notification{
				ID:        uuid.NewString(),
				StudentID: u.TelegramID,
				Type:      notificationType,
				Message:   message,
				CreatedAt: now,
			})
			return nil
		})
		return err
	})
	switch {
	case errors.Is(err, errNoEnrollment):
		return model.Enrollment{}, ErrNotFound
	case errors.Is(err, ErrStaleTransition):
		s.zaplog.Info("stale admin decision",
			zap.Int64("admin_id", adminID),
			zap.Int64("user_id", userID),
			zap.String("item_id", itemID))
		return model.Enrollment{}, ErrStaleTransition
	case err != nil:
		return model.Enrollment{}, mapError(err)
	}

	s.zaplog.Info("enrollment decided",
		zap.Int64("admin_id", adminID),
		zap.Int64("user_id", userID),
		zap.String("item_id", itemID),
		zap.String("status", status))

	notice := notify.UserNotice{
		UserID:   userID,
		Type:     notificationType,
		ItemID:   item.ID,
		ItemName: item.Name,
		Message:  message,
	}
	if status == model.ApprovalStatusApproved {
		notice.GroupLink, _ = s.catalog.GroupLink(itemID)
	}
	s.deliverUser(ctx, notice)
	return enrollment, nil
}

func (s *service) QueryStatus(ctx context.Context, userID int64) ([]StatusEntry, error) {
	enrollments, err := s.ledger.Status(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}

	entries := make([]StatusEntry, 0, len(enrollments))
	for _, e := range enrollments {
		name := e.ItemID
		if item, err := s.catalog.Resolve(e.ItemID); err == nil {
			name = item.Name
		}
		entries = append(entries, StatusEntry{ItemID: e.ItemID, ItemName: name, Status: e.ApprovalStatus})
	}
	return entries, nil
}

func (s *service) ItemView(ctx context.Context, userID int64, itemID string) (ItemView, error) {
	item, err := s.catalog.Resolve(itemID)
	if err != nil {
		return ItemView{}, mapError(err)
	}
	view := ItemView{Item: item}

	enrollment, err := s.enrollment(ctx, userID, itemID)
	if err != nil {
		return ItemView{}, err
	}
	if enrollment == nil {
		return view, nil
	}
	view.Status = enrollment.ApprovalStatus
	if view.Status == model.ApprovalStatusApproved {
		view.GroupLink, _ = s.catalog.GroupLink(itemID)
	}
	return view, nil
}

// GroupLink открывает ссылку на группу только после одобрения оплаты.
func (s *service) GroupLink(ctx context.Context, userID int64, itemID string) (string, error) {
	if _, err := s.catalog.Resolve(itemID); err != nil {
		return "", mapError(err)
	}
	enrollment, err := s.enrollment(ctx, userID, itemID)
	if err != nil {
		return "", err
	}
	if enrollment == nil || enrollment.ApprovalStatus != model.ApprovalStatusApproved {
		return "", ErrForbidden
	}
	link, ok := s.catalog.GroupLink(itemID)
	if !ok {
		return "", ErrNotFound
	}
	return link, nil
}

func (s *service) enrollment(ctx context.Context, userID int64, itemID string) (*model.Enrollment, error) {
	enrollments, err := s.ledger.Status(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}
	for i := range enrollments {
		if enrollments[i].ItemID == itemID {
			return &enrollments[i], nil
		}
	}
	return nil, nil
}

func (s *service) deliverUser(ctx context.Context, notice notify.UserNotice) {
	if err := s.notifier.NotifyUser(ctx, notice); err != nil {
		s.zaplog.Warn("user notification not delivered",
			zap.Int64("user_id", notice.UserID),
			zap.String("type", notice.Type),
			zap.Error(err))
	}
}

func (s *service) deliverAdmin(ctx context.Context, notice notify.AdminNotice) error {
	err := s.notifier.NotifyAdmin(ctx, notice)
	if err != nil {
		s.zaplog.Warn("admin notification not delivered",
			zap.Int64("admin_id", notice.AdminID),
			zap.Int64("user_id", notice.UserID),
			zap.String("item_id", notice.ItemID),
			zap.Error(err))
	}
	return err
}
