package notify

import (
	"context"
	"errors"

	"github.com/iurnickita/coursebot/internal/model"
)

// UserNotice - событие для студента. Текст сообщения собирает транспорт.
type UserNotice struct {
	UserID    int64  `json:"user_id"`
	Type      string `json:"type"`
	ItemID    string `json:"item_id,omitempty"`
	ItemName  string `json:"item_name,omitempty"`
	GroupLink string `json:"group_link,omitempty"`
	Message   string `json:"message,omitempty"`
}

const (
	AdminPaymentReview = "payment_review"
	AdminContact       = "contact"
)

// AdminNotice - событие для администратора. Для AdminPaymentReview
// транспорт добавляет кнопки одобрения и отклонения (UserID, ItemID).
type AdminNotice struct {
	AdminID     int64               `json:"admin_id"`
	Kind        string              `json:"kind"`
	UserID      int64               `json:"user_id"`
	StudentName string              `json:"student_name,omitempty"`
	ItemID      string              `json:"item_id,omitempty"`
	ItemName    string              `json:"item_name,omitempty"`
	Method      model.PaymentMethod `json:"method,omitempty"`
	Receipt     string              `json:"receipt,omitempty"`
	Text        string              `json:"text,omitempty"`
}

// Notifier доставляет уведомления. Ошибка доставки не должна влиять
// на уже сохранённые изменения.
type Notifier interface {
	NotifyUser(ctx context.Context, notice UserNotice) error
	NotifyAdmin(ctx context.Context, notice AdminNotice) error
}

type multi []Notifier

// Multi рассылает уведомление всем получателям, ошибки объединяются.
func Multi(notifiers ...Notifier) Notifier {
	var m multi
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

func (m multi) NotifyUser(ctx context.Context, notice UserNotice) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.NotifyUser(ctx, notice))
	}
	return errors.Join(errs...)
}

func (m multi) NotifyAdmin(ctx context.Context, notice AdminNotice) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.NotifyAdmin(ctx, notice))
	}
	return errors.Join(errs...)
}

type nop struct{}

func Nop() Notifier { return nop{} }

func (nop) NotifyUser(context.Context, UserNotice) error   { return nil }
func (nop) NotifyAdmin(context.Context, AdminNotice) error { return nil }
