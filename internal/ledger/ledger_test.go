package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iurnickita/coursebot/internal/catalog"
	"github.com/iurnickita/coursebot/internal/model"
	"github.com/iurnickita/coursebot/internal/store"
)

func newTestLedger(t *testing.T) (Ledger, store.Store) {
	t.Helper()

	st := store.NewMemoryStore()
	cat := catalog.New(catalog.DefaultItems(75000), nil, catalog.Links{})
	_, err := st.EnsureUser(context.Background(), 1)
	require.NoError(t, err)
	return NewLedger(st, cat), st
}

func TestSubmitPaymentCreatesPending(t *testing.T) {
	l, _ := newTestLedger(t)

	user, err := l.SubmitPayment(context.Background(), 1,
		[]string{"y4_s1_nn", "y4_s1_multimedia"}, model.PaymentMethodSham, "photo-1")
	require.NoError(t, err)
	require.Len(t, user.Courses, 2)
	require.Equal(t, "y4_s1_nn", user.Courses[0].ItemID)
	require.Equal(t, "y4_s1_multimedia", user.Courses[1].ItemID)
	for _, e := range user.Courses {
		require.Equal(t, model.ApprovalStatusPending, e.ApprovalStatus)
		require.Equal(t, "sham", e.PaymentMethod)
		require.Equal(t, "photo-1", e.PaymentReceipt)
	}
	require.Len(t, user.Notifications, 1)
	require.Equal(t, model.NotificationPaymentSubmitted, user.Notifications[0].Type)
	require.NotEmpty(t, user.Notifications[0].ID)
}

func TestSubmitPaymentIsIdempotentPerItem(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.SubmitPayment(ctx, 1, []string{"nlp_beginner"}, model.PaymentMethodSham, "photo-1")
	require.NoError(t, err)
	user, err := l.SubmitPayment(ctx, 1, []string{"nlp_beginner", "nlp_beginner"}, model.PaymentMethodHaram, "photo-2")
	require.NoError(t, err)

	require.Len(t, user.Courses, 1)
	require.Equal(t, "haram", user.Courses[0].PaymentMethod)
	require.Equal(t, "photo-2", user.Courses[0].PaymentReceipt)
}

func TestSubmitPaymentResetsRejected(t *testing.T) {
	l, st := newTestLedger(t)
	ctx := context.Background()

	_, err := l.SubmitPayment(ctx, 1, []string{"nlp_beginner"}, model.PaymentMethodSham, "photo-1")
	require.NoError(t, err)
	_, err = st.UpdateUser(ctx, 1, func(u *model.User) error {
		u.Courses[0].ApprovalStatus = model.ApprovalStatusRejected
		return nil
	})
	require.NoError(t, err)

	user, err := l.SubmitPayment(ctx, 1, []string{"nlp_beginner"}, model.PaymentMethodSham, "photo-2")
	require.NoError(t, err)
	require.Len(t, user.Courses, 1)
	require.Equal(t, model.ApprovalStatusPending, user.Courses[0].ApprovalStatus)
}

func TestSubmitPaymentRejectsBadInput(t *testing.T) {
	l, st := newTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		ids     []string
		method  model.PaymentMethod
		receipt string
		wantErr error
	}{
		{"empty", nil, model.PaymentMethodSham, "r", ErrEmptySelection},
		{"method", []string{"nlp_beginner"}, "cash", "r", ErrInvalidMethod},
		{"receipt", []string{"nlp_beginner"}, model.PaymentMethodSham, " ", ErrEmptyReceipt},
		{"unknown item", []string{"nlp_beginner", "nonexistent_id"}, model.PaymentMethodSham, "r", catalog.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.SubmitPayment(ctx, 1, tt.ids, tt.method, tt.receipt)
			require.ErrorIs(t, err, tt.wantErr)

			user, err := st.GetUser(ctx, 1)
			require.NoError(t, err)
			require.Empty(t, user.Courses)
			require.Empty(t, user.Notifications)
		})
	}
}

func TestSubmitPaymentUnknownUser(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.SubmitPayment(context.Background(), 42, []string{"nlp_beginner"}, model.PaymentMethodSham, "r")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestStatus(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	status, err := l.Status(ctx, 42)
	require.NoError(t, err)
	require.Empty(t, status)

	_, err = l.SubmitPayment(ctx, 1, []string{"nlp_beginner"}, model.PaymentMethodSham, "r")
	require.NoError(t, err)
	status, err = l.Status(ctx, 1)
	require.NoError(t, err)
	require.Len(t, status, 1)
}
