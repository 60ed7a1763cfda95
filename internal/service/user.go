package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iurnickita/coursebot/internal/model"
	"github.com/iurnickita/coursebot/internal/notify"
)

const minPhoneLength = 10

func (s *service) User(ctx context.Context, userID int64) (model.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	return user, mapError(err)
}

// Touch создаёт пользователя при первом обращении и обновляет last_active.
func (s *service) Touch(ctx context.Context, userID int64) (model.User, error) {
	var user model.User
	err := s.withUserLock(ctx, userID, func() error {
		if _, err := s.store.EnsureUser(ctx, userID); err != nil {
			return err
		}
		var err error
		user, err = s.store.UpdateUser(ctx, userID, func(u *model.User) error {
			u.LastActive = time.Now().UTC()
			return nil
		})
		return err
	})
	return user, mapError(err)
}

// ValidatePhone - номер в международном формате: "+" и не короче 10 символов.
func ValidatePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !strings.HasPrefix(phone, "+") || len(phone) < minPhoneLength {
		return "", fmt.Errorf("%w: phone %q", ErrInvalid, phone)
	}
	return phone, nil
}

func ValidateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return "", fmt.Errorf("%w: email %q", ErrInvalid, email)
	}
	return email, nil
}

// Register сохраняет регистрационные данные. Разрешена и повторная регистрация.
func (s *service) Register(ctx context.Context, userID int64, fullName, phone, email string) (model.User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return model.User{}, fmt.Errorf("%w: empty name", ErrInvalid)
	}
	phone, err := ValidatePhone(phone)
	if err != nil {
		return model.User{}, err
	}
	email, err = ValidateEmail(email)
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	err = s.withUserLock(ctx, userID, func() error {
		if _, err := s.store.EnsureUser(ctx, userID); err != nil {
			return err
		}
		var err error
		user, err = s.store.UpdateUser(ctx, userID, func(u *model.User) error {
			u.FullName = fullName
			u.Phone = phone
			u.Email = email
			u.LastActive = time.Now().UTC()
			return nil
		})
		return err
	})
	return user, mapError(err)
}

// ContactAdmin пересылает сообщение студента администраторам.
// Ошибка только если не доставлено ни одному.
func (s *service) ContactAdmin(ctx context.Context, userID int64, name, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: empty message", ErrInvalid)
	}
	if len(s.cfg.AdminIDs) == 0 {
		return ErrDelivery
	}

	var errs []error
	for _, adminID := range s.cfg.AdminIDs {
		err := s.deliverAdmin(ctx, notify.AdminNotice{
			AdminID:     adminID,
			Kind:        notify.AdminContact,
			UserID:      userID,
			StudentName: name,
			Text:        text,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(s.cfg.AdminIDs) {
		return fmt.Errorf("%w: %w", ErrDelivery, errors.Join(errs...))
	}
	return nil
}
