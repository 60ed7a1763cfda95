package session

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/iurnickita/coursebot/internal/model"
)

var (
	ErrEmptySelection   = errors.New("cart is empty")
	ErrNoPendingPayment = errors.New("no pending payment")
)

// Coordinates - где пользователь находится в каталоге.
type Coordinates struct {
	Category model.Category
	Year     int
	Semester int
}

// Phase - фаза сессии: Browsing, CartBuilding или AwaitingReceipt.
type Phase interface {
	phase()
}

// Browsing - корзина пуста, оплаты нет.
type Browsing struct{}

// CartBuilding - в корзине есть хотя бы одна позиция.
type CartBuilding struct {
	Items []string
}

// AwaitingReceipt - выбран способ оплаты, ждём чек.
// Корзину можно менять дальше, на Payment это не влияет.
type AwaitingReceipt struct {
	Items   []string
	Payment Payment
}

func (Browsing) phase()        {}
func (CartBuilding) phase()    {}
func (AwaitingReceipt) phase() {}

// Payment - снимок выбора на момент выбора способа оплаты. Никогда не пустой.
type Payment struct {
	itemIDs []string
	method  model.PaymentMethod
}

func newPayment(itemIDs []string, method model.PaymentMethod) (Payment, error) {
	if len(itemIDs) == 0 {
		return Payment{}, ErrEmptySelection
	}
	return Payment{itemIDs: slices.Clone(itemIDs), method: method}, nil
}

func (p Payment) ItemIDs() []string           { return slices.Clone(p.itemIDs) }
func (p Payment) Method() model.PaymentMethod { return p.method }

// Equal сравнивает снимки оплаты.
func (p Payment) Equal(o Payment) bool {
	return p.method == o.method && slices.Equal(p.itemIDs, o.itemIDs)
}

// Session - состояние диалога одного пользователя. Не сохраняется между перезапусками.
type Session struct {
	UserID  int64
	Coords  Coordinates
	Phase   Phase
	touched time.Time
}

// Cart возвращает выбранные позиции в порядке добавления.
func (s Session) Cart() []string {
	switch p := s.Phase.(type) {
	case CartBuilding:
		return slices.Clone(p.Items)
	case AwaitingReceipt:
		return slices.Clone(p.Items)
	}
	return nil
}

// Pending возвращает ожидающую чека оплату.
func (s Session) Pending() (Payment, bool) {
	if p, ok := s.Phase.(AwaitingReceipt); ok {
		return p.Payment, true
	}
	return Payment{}, false
}

func withCart(phase Phase, items []string) Phase {
	if p, ok := phase.(AwaitingReceipt); ok {
		return AwaitingReceipt{Items: items, Payment: p.Payment}
	}
	if len(items) == 0 {
		return Browsing{}
	}
	return CartBuilding{Items: items}
}

type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	idleTTL  time.Duration
	now      func() time.Time
}

// NewManager создаёт хранилище сессий. idleTTL = 0 - без истечения.
func NewManager(idleTTL time.Duration) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// get возвращает сессию пользователя, создавая пустую. Вызывать под m.mu.
func (m *Manager) get(userID int64) *Session {
	now := m.now()
	s, ok := m.sessions[userID]
	if ok && m.idleTTL > 0 && now.Sub(s.touched) > m.idleTTL {
		ok = false
	}
	if !ok {
		s = &Session{UserID: userID, Phase: Browsing{}}
		m.sessions[userID] = s
	}
	s.touched = now
	return s
}

// Snapshot возвращает копию сессии.
func (m *Manager) Snapshot(userID int64) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *m.get(userID)
	s.Phase = withCart(s.Phase, s.Cart())
	return s
}

// Toggle добавляет позицию в корзину или убирает её, если она уже там.
func (m *Manager) Toggle(userID int64, itemID string) (added bool, cart []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.get(userID)
	items := s.Cart()
	if i := slices.Index(items, itemID); i >= 0 {
		items = slices.Delete(items, i, i+1)
	} else {
		items = append(items, itemID)
		added = true
	}
	s.Phase = withCart(s.Phase, items)
	return added, slices.Clone(items)
}

// Clear сбрасывает корзину и ожидающую оплату.
func (m *Manager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.get(userID).Phase = Browsing{}
}

func (m *Manager) SetCoordinates(userID int64, coords Coordinates) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.get(userID).Coords = coords
}

// BeginPayment фиксирует текущую корзину как ожидающую оплату.
func (m *Manager) BeginPayment(userID int64, method model.PaymentMethod) (Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.get(userID)
	items := s.Cart()
	payment, err := newPayment(items, method)
	if err != nil {
		return Payment{}, err
	}
	s.Phase = AwaitingReceipt{Items: items, Payment: payment}
	return payment, nil
}

// BeginDirect начинает оплату одной позиции, корзина не меняется.
func (m *Manager) BeginDirect(userID int64, itemID string, method model.PaymentMethod) (Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.get(userID)
	payment, err := newPayment([]string{itemID}, method)
	if err != nil {
		return Payment{}, err
	}
	s.Phase = AwaitingReceipt{Items: s.Cart(), Payment: payment}
	return payment, nil
}

func (m *Manager) Pending(userID int64) (Payment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.get(userID).Pending()
}

// Complete снимает ожидающую оплату после записи чека и убирает оплаченные позиции
// из корзины. Если с тех пор была начата другая оплата, возвращает ErrNoPendingPayment.
func (m *Manager) Complete(userID int64, payment Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.get(userID)
	current, ok := s.Pending()
	if !ok || !current.Equal(payment) {
		return ErrNoPendingPayment
	}

	items := slices.DeleteFunc(s.Cart(), func(id string) bool {
		return slices.Contains(payment.itemIDs, id)
	})
	if len(items) == 0 {
		s.Phase = Browsing{}
	} else {
		s.Phase = CartBuilding{Items: items}
	}
	return nil
}
