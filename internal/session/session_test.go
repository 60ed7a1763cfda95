package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iurnickita/coursebot/internal/model"
)

const user = int64(42)

func TestToggle(t *testing.T) {
	m := NewManager(0)

	added, cart := m.Toggle(user, "y4_s1_nn")
	require.True(t, added)
	require.Equal(t, []string{"y4_s1_nn"}, cart)
	require.IsType(t, CartBuilding{}, m.Snapshot(user).Phase)

	added, cart = m.Toggle(user, "y4_s1_multimedia")
	require.True(t, added)
	require.Equal(t, []string{"y4_s1_nn", "y4_s1_multimedia"}, cart)

	// повторный toggle убирает позицию
	added, cart = m.Toggle(user, "y4_s1_nn")
	require.False(t, added)
	require.Equal(t, []string{"y4_s1_multimedia"}, cart)

	_, cart = m.Toggle(user, "y4_s1_multimedia")
	require.Empty(t, cart)
	require.IsType(t, Browsing{}, m.Snapshot(user).Phase)
}

func TestBeginPaymentEmptyCart(t *testing.T) {
	m := NewManager(0)

	_, err := m.BeginPayment(user, model.PaymentMethodSham)
	require.ErrorIs(t, err, ErrEmptySelection)

	_, ok := m.Pending(user)
	require.False(t, ok)
}

func TestPaymentSnapshotIndependentOfToggles(t *testing.T) {
	m := NewManager(0)
	m.Toggle(user, "y4_s1_nn")
	m.Toggle(user, "y4_s1_multimedia")

	payment, err := m.BeginPayment(user, model.PaymentMethodHaram)
	require.NoError(t, err)
	require.Equal(t, model.PaymentMethodHaram, payment.Method())

	m.Toggle(user, "y4_s1_nn")
	m.Toggle(user, "y3_s1_os1")

	pending, ok := m.Pending(user)
	require.True(t, ok)
	require.Equal(t, []string{"y4_s1_nn", "y4_s1_multimedia"}, pending.ItemIDs())
	require.Equal(t, []string{"y4_s1_multimedia", "y3_s1_os1"}, m.Snapshot(user).Cart())

	require.NoError(t, m.Complete(user, pending))
	_, ok = m.Pending(user)
	require.False(t, ok)
	// позиция, добавленная после начала оплаты, остаётся в корзине
	require.Equal(t, []string{"y3_s1_os1"}, m.Snapshot(user).Cart())

	// повторное завершение той же оплаты - no-op с ошибкой
	require.ErrorIs(t, m.Complete(user, pending), ErrNoPendingPayment)
}

func TestCompleteRejectsReplacedPayment(t *testing.T) {
	m := NewManager(0)
	m.Toggle(user, "y4_s1_nn")

	first, err := m.BeginPayment(user, model.PaymentMethodSham)
	require.NoError(t, err)
	second, err := m.BeginPayment(user, model.PaymentMethodHaram)
	require.NoError(t, err)

	require.ErrorIs(t, m.Complete(user, first), ErrNoPendingPayment)
	require.NoError(t, m.Complete(user, second))
	require.IsType(t, Browsing{}, m.Snapshot(user).Phase)
}

func TestBeginDirectKeepsCart(t *testing.T) {
	m := NewManager(0)
	m.Toggle(user, "y4_s1_nn")

	payment, err := m.BeginDirect(user, "nlp_beginner", model.PaymentMethodSham)
	require.NoError(t, err)
	require.Equal(t, []string{"nlp_beginner"}, payment.ItemIDs())
	require.Equal(t, []string{"y4_s1_nn"}, m.Snapshot(user).Cart())

	require.NoError(t, m.Complete(user, payment))
	require.Equal(t, []string{"y4_s1_nn"}, m.Snapshot(user).Cart())
}

func TestClearAndCoordinates(t *testing.T) {
	m := NewManager(0)
	m.SetCoordinates(user, Coordinates{Category: model.CategoryUniversity, Year: 4, Semester: 1})
	m.Toggle(user, "y4_s1_nn")
	_, err := m.BeginPayment(user, model.PaymentMethodSham)
	require.NoError(t, err)

	m.Clear(user)
	s := m.Snapshot(user)
	require.IsType(t, Browsing{}, s.Phase)
	require.Empty(t, s.Cart())
	require.Equal(t, 4, s.Coords.Year)
	_, ok := s.Pending()
	require.False(t, ok)
}

func TestIdleSessionExpires(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }

	m.Toggle(user, "y4_s1_nn")
	now = now.Add(2 * time.Minute)

	require.Empty(t, m.Snapshot(user).Cart())
	_, err := m.BeginPayment(user, model.PaymentMethodSham)
	require.ErrorIs(t, err, ErrEmptySelection)
}
