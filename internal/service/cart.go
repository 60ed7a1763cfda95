package service

import (
	"github.com/iurnickita/coursebot/internal/model"
	"github.com/iurnickita/coursebot/internal/pricing"
	"github.com/iurnickita/coursebot/internal/session"
)

// CartView - содержимое корзины с расчётом стоимости.
type CartView struct {
	Items   []model.Item
	Summary pricing.Summary
}

type ToggleResult struct {
	Added bool
	Cart  CartView
}

// PaymentInstructions - что показать пользователю после выбора способа оплаты.
type PaymentInstructions struct {
	Method         model.PaymentMethod
	TransferNumber string
	Items          []model.Item
	Summary        pricing.Summary
}

func (s *service) Toggle(userID int64, itemID string) (ToggleResult, error) {
	if _, err := s.catalog.Resolve(itemID); err != nil {
		return ToggleResult{}, mapError(err)
	}

	added, ids := s.sessions.Toggle(userID, itemID)
	view, err := s.view(ids)
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Added: added, Cart: view}, nil
}

func (s *service) Cart(userID int64) (CartView, error) {
	return s.view(s.sessions.Snapshot(userID).Cart())
}

func (s *service) Clear(userID int64) {
	s.sessions.Clear(userID)
}

func (s *service) SetCoordinates(userID int64, coords session.Coordinates) {
	s.sessions.SetCoordinates(userID, coords)
}

func (s *service) Session(userID int64) session.Session {
	return s.sessions.Snapshot(userID)
}

func (s *service) BeginPayment(userID int64, method model.PaymentMethod) (PaymentInstructions, error) {
	if !method.Valid() {
		return PaymentInstructions{}, ErrInvalid
	}
	payment, err := s.sessions.BeginPayment(userID, method)
	if err != nil {
		return PaymentInstructions{}, mapError(err)
	}
	return s.instructions(payment)
}

// BeginDirect - оплата одной позиции со страницы курса, корзина не меняется.
func (s *service) BeginDirect(userID int64, itemID string, method model.PaymentMethod) (PaymentInstructions, error) {
	if !method.Valid() {
		return PaymentInstructions{}, ErrInvalid
	}
	if _, err := s.catalog.Resolve(itemID); err != nil {
		return PaymentInstructions{}, mapError(err)
	}
	payment, err := s.sessions.BeginDirect(userID, itemID, method)
	if err != nil {
		return PaymentInstructions{}, mapError(err)
	}
	return s.instructions(payment)
}

func (s *service) instructions(payment session.Payment) (PaymentInstructions, error) {
	view, err := s.view(payment.ItemIDs())
	if err != nil {
		return PaymentInstructions{}, err
	}

	number := s.cfg.ShamNumber
	if payment.Method() == model.PaymentMethodHaram {
		number = s.cfg.HaramNumber
	}
	return PaymentInstructions{
		Method:         payment.Method(),
		TransferNumber: number,
		Items:          view.Items,
		Summary:        view.Summary,
	}, nil
}

func (s *service) view(ids []string) (CartView, error) {
	items := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		item, err := s.catalog.Resolve(id)
		if err != nil {
			return CartView{}, mapError(err)
		}
		items = append(items, item)
	}
	return CartView{Items: items, Summary: s.pricing.QuoteItems(items)}, nil
}
