package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iurnickita/coursebot/internal/catalog"
	"github.com/iurnickita/coursebot/internal/model"
	"github.com/iurnickita/coursebot/internal/notify"
	"github.com/iurnickita/coursebot/internal/pricing"
	pricingconfig "github.com/iurnickita/coursebot/internal/pricing/config"
	"github.com/iurnickita/coursebot/internal/service/config"
	"github.com/iurnickita/coursebot/internal/store"
)

const (
	adminID   = int64(100)
	studentID = int64(1)
	groupLink = "https://t.me/+nn_group"
)

type recorder struct {
	mu     sync.Mutex
	users  []notify.UserNotice
	admins []notify.AdminNotice
	err    error
}

func (r *recorder) NotifyUser(_ context.Context, n notify.UserNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, n)
	return r.err
}

func (r *recorder) NotifyAdmin(_ context.Context, n notify.AdminNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins = append(r.admins, n)
	return r.err
}

func newTestService(t *testing.T, st store.Store, rec *recorder) Service {
	t.Helper()

	if st == nil {
		st = store.NewMemoryStore()
	}
	cat := catalog.New(catalog.DefaultItems(75000), nil, catalog.Links{
		Flat: map[string]string{"y4_s1_nn": groupLink},
	})
	engine := pricing.New(pricingconfig.Config{SinglePrice: 75000, MultiPrice: 50000}, cat)

	svc, err := NewService(config.Config{
		AdminIDs:    []int64{adminID},
		ShamNumber:  "0930000000",
		HaramNumber: "0940000000",
	}, Deps{
		Store:    st,
		Catalog:  cat,
		Pricing:  engine,
		Notifier: rec,
	})
	require.NoError(t, err)
	return svc
}

func submit(t *testing.T, svc Service, itemID, receipt string) {
	t.Helper()

	_, err := svc.BeginDirect(studentID, itemID, model.PaymentMethodSham)
	require.NoError(t, err)
	_, err = svc.SubmitPayment(context.Background(), studentID, receipt)
	require.NoError(t, err)
}

func statusOf(t *testing.T, svc Service, itemID string) string {
	t.Helper()

	entries, err := svc.QueryStatus(context.Background(), studentID)
	require.NoError(t, err)
	for _, e := range entries {
		if e.ItemID == itemID {
			return e.Status
		}
	}
	return ""
}

func TestCartPricing(t *testing.T) {
	svc := newTestService(t, nil, &recorder{})

	res, err := svc.Toggle(studentID, "y4_s1_nn")
	require.NoError(t, err)
	require.True(t, res.Added)
	require.Equal(t, 75000, res.Cart.Summary.Total)
	require.False(t, res.Cart.Summary.Discounted)

	res, err = svc.Toggle(studentID, "y4_s1_multimedia")
	require.NoError(t, err)
	require.Equal(t, 100000, res.Cart.Summary.Total)
	require.True(t, res.Cart.Summary.Discounted)

	res, err = svc.Toggle(studentID, "y4_s1_nn")
	require.NoError(t, err)
	require.False(t, res.Added)

	cart, err := svc.Cart(studentID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, "y4_s1_multimedia", cart.Items[0].ID)
}

func TestBeginPaymentInstructions(t *testing.T) {
	svc := newTestService(t, nil, &recorder{})

	_, err := svc.Toggle(studentID, "y4_s1_nn")
	require.NoError(t, err)
	_, err = svc.Toggle(studentID, "y4_s1_concurrent")
	require.NoError(t, err)

	instr, err := svc.BeginPayment(studentID, model.PaymentMethodHaram)
	require.NoError(t, err)
	require.Equal(t, "0940000000", instr.TransferNumber)
	require.Len(t, instr.Items, 2)
	require.Equal(t, 100000, instr.Summary.Total)

	_, err = svc.BeginPayment(studentID, "cash")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestBeginPaymentEmptyCart(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newTestService(t, st, &recorder{})

	_, err := svc.BeginPayment(studentID, model.PaymentMethodSham)
	require.ErrorIs(t, err, ErrEmptySelection)

	_, err = svc.SubmitPayment(context.Background(), studentID, "photo")
	require.ErrorIs(t, err, ErrNoPendingPayment)

	_, err = st.GetUser(context.Background(), studentID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubmitApproveGrantsGroupLink(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, nil, rec)
	ctx := context.Background()

	_, err := svc.Toggle(studentID, "y4_s1_nn")
	require.NoError(t, err)
	_, err = svc.BeginPayment(studentID, model.PaymentMethodSham)
	require.NoError(t, err)

	items, err := svc.SubmitPayment(ctx, studentID, "photo-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, model.ApprovalStatusPending, statusOf(t, svc, "y4_s1_nn"))

	require.Len(t, rec.admins, 1)
	require.Equal(t, adminID, rec.admins[0].AdminID)
	require.Equal(t, "y4_s1_nn", rec.admins[0].ItemID)
	require.Equal(t, "photo-1", rec.admins[0].Receipt)

	// корзина очищена после отправки чека
	cart, err := svc.Cart(studentID)
	require.NoError(t, err)
	require.Empty(t, cart.Items)

	_, err = svc.GroupLink(ctx, studentID, "y4_s1_nn")
	require.ErrorIs(t, err, ErrForbidden)

	enrollment, err := svc.Approve(ctx, adminID, studentID, "y4_s1_nn")
	require.NoError(t, err)
	require.Equal(t, model.ApprovalStatusApproved, enrollment.ApprovalStatus)
	require.Equal(t, model.ApprovalStatusApproved, statusOf(t, svc, "y4_s1_nn"))

	link, err := svc.GroupLink(ctx, studentID, "y4_s1_nn")
	require.NoError(t, err)
	require.Equal(t, groupLink, link)

	view, err := svc.ItemView(ctx, studentID, "y4_s1_nn")
	require.NoError(t, err)
	require.Equal(t, groupLink, view.GroupLink)

	last := rec.users[len(rec.users)-1]
	require.Equal(t, model.NotificationPaymentApproved, last.Type)
	require.Equal(t, groupLink, last.GroupLink)
}

func TestRejectThenResubmit(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, nil, rec)
	ctx := context.Background()

	submit(t, svc, "y4_s1_nn", "photo-1")

	_, err := svc.Reject(ctx, adminID, studentID, "y4_s1_nn")
	require.NoError(t, err)
	require.Equal(t, model.ApprovalStatusRejected, statusOf(t, svc, "y4_s1_nn"))
	require.Equal(t, model.NotificationPaymentRejected, rec.users[len(rec.users)-1].Type)

	submit(t, svc, "y4_s1_nn", "photo-2")
	require.Equal(t, model.ApprovalStatusPending, statusOf(t, svc, "y4_s1_nn"))

	user, err := svc.User(ctx, studentID)
	require.NoError(t, err)
	require.Len(t, user.Courses, 1)
	require.Equal(t, "photo-2", user.Courses[0].PaymentReceipt)

	var types []string
	for _, n := range user.Notifications {
		types = append(types, n.Type)
	}
	require.Equal(t, []string{
		model.NotificationPaymentSubmitted,
		model.NotificationPaymentRejected,
		model.NotificationPaymentSubmitted,
	}, types)
}

func TestDecisionOnTerminalIsStale(t *testing.T) {
	svc := newTestService(t, nil, &recorder{})
	ctx := context.Background()

	submit(t, svc, "nlp_beginner", "photo-1")

	_, err := svc.Approve(ctx, adminID, studentID, "nlp_beginner")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, adminID, studentID, "nlp_beginner")
	require.ErrorIs(t, err, ErrStaleTransition)
	_, err = svc.Reject(ctx, adminID, studentID, "nlp_beginner")
	require.ErrorIs(t, err, ErrStaleTransition)

	require.Equal(t, model.ApprovalStatusApproved, statusOf(t, svc, "nlp_beginner"))
}

func TestDecisionChecks(t *testing.T) {
	svc := newTestService(t, nil, &recorder{})
	ctx := context.Background()

	submit(t, svc, "nlp_beginner", "photo-1")

	_, err := svc.Approve(ctx, studentID, studentID, "nlp_beginner")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Approve(ctx, adminID, studentID, "nlp_expert")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Approve(ctx, adminID, 999, "nlp_beginner")
	require.ErrorIs(t, err, ErrNotFound)

	require.Equal(t, model.ApprovalStatusPending, statusOf(t, svc, "nlp_beginner"))
}

func TestUnknownItemIsNotFound(t *testing.T) {
	svc := newTestService(t, nil, &recorder{})
	ctx := context.Background()

	_, err := svc.Toggle(studentID, "nonexistent_id")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.BeginDirect(studentID, "nonexistent_id", model.PaymentMethodSham)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.ItemView(ctx, studentID, "nonexistent_id")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GroupLink(ctx, studentID, "nonexistent_id")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Approve(ctx, adminID, studentID, "nonexistent_id")
	require.ErrorIs(t, err, ErrNotFound)

	cart, err := svc.Cart(studentID)
	require.NoError(t, err)
	require.Empty(t, cart.Items)
}

func TestSecondReceiptIsNoop(t *testing.T) {
	svc := newTestService(t, nil, &recorder{})
	ctx := context.Background()

	submit(t, svc, "nlp_beginner", "photo-1")

	_, err := svc.SubmitPayment(ctx, studentID, "photo-2")
	require.ErrorIs(t, err, ErrNoPendingPayment)

	user, err := svc.User(ctx, studentID)
	require.NoError(t, err)
	require.Len(t, user.Courses, 1)
	require.Equal(t, "photo-1", user.Courses[0].PaymentReceipt)
	require.Len(t, user.Notifications, 1)
}

func TestConcurrentReceiptsApplyOnce(t *testing.T) {
	svc := newTestService(t, nil, &recorder{})
	ctx := context.Background()

	_, err := svc.BeginDirect(studentID, "nlp_beginner", model.PaymentMethodSham)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		errs []error
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.SubmitPayment(ctx, studentID, fmt.Sprintf("photo-%d", i))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			errs = append(errs, err)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.Len(t, errs, 9)
	for _, err := range errs {
		require.ErrorIs(t, err, ErrNoPendingPayment)
	}
	user, err := svc.User(ctx, studentID)
	require.NoError(t, err)
	require.Len(t, user.Courses, 1)
	require.Len(t, user.Notifications, 1)
}

// Решение администратора и повторный чек студента по той же позиции
// выполняются по очереди: запись одна, чек последний.
func TestApproveRacesResubmit(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		svc := newTestService(t, nil, &recorder{})
		submit(t, svc, "y4_s1_nn", "photo-1")
		_, err := svc.BeginDirect(studentID, "y4_s1_nn", model.PaymentMethodHaram)
		require.NoError(t, err)

		var (
			wg                    sync.WaitGroup
			approveErr, submitErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, approveErr = svc.Approve(ctx, adminID, studentID, "y4_s1_nn")
		}()
		go func() {
			defer wg.Done()
			_, submitErr = svc.SubmitPayment(ctx, studentID, "photo-2")
		}()
		wg.Wait()

		require.NoError(t, approveErr)
		require.NoError(t, submitErr)

		user, err := svc.User(ctx, studentID)
		require.NoError(t, err)
		require.Len(t, user.Courses, 1)
		enrollment := user.Courses[0]
		require.Equal(t, "photo-2", enrollment.PaymentReceipt)
		require.Equal(t, string(model.PaymentMethodHaram), enrollment.PaymentMethod)
		require.Contains(t, []string{model.ApprovalStatusPending, model.ApprovalStatusApproved}, enrollment.ApprovalStatus)
	}
}

func TestDeliveryFailureDoesNotBlockLedger(t *testing.T) {
	rec := &recorder{err: errors.New("telegram is down")}
	svc := newTestService(t, nil, rec)
	ctx := context.Background()

	submit(t, svc, "y4_s1_nn", "photo-1")
	_, err := svc.Approve(ctx, adminID, studentID, "y4_s1_nn")
	require.NoError(t, err)
	require.Equal(t, model.ApprovalStatusApproved, statusOf(t, svc, "y4_s1_nn"))

	err = svc.ContactAdmin(ctx, studentID, "Student", "hello")
	require.ErrorIs(t, err, ErrDelivery)
}

// brokenStore отказывает на записи.
type brokenStore struct {
	store.Store
}

func (brokenStore) UpdateUser(context.Context, int64, func(*model.User) error) (model.User, error) {
	return model.User{}, fmt.Errorf("%w: connection refused", store.ErrUnavailable)
}

func TestStoreUnavailableKeepsPendingPayment(t *testing.T) {
	svc := newTestService(t, brokenStore{Store: store.NewMemoryStore()}, &recorder{})

	_, err := svc.BeginDirect(studentID, "nlp_beginner", model.PaymentMethodSham)
	require.NoError(t, err)

	_, err = svc.SubmitPayment(context.Background(), studentID, "photo-1")
	require.ErrorIs(t, err, ErrUnavailable)

	// чек можно отправить повторно
	_, ok := svc.Session(studentID).Pending()
	require.True(t, ok)
}

func TestRegister(t *testing.T) {
	svc := newTestService(t, nil, &recorder{})
	ctx := context.Background()

	tests := []struct {
		name    string
		phone   string
		email   string
		wantErr bool
	}{
		{"valid", "+963999999999", "Student@Example.com", false},
		{"phone without plus", "0999999999", "a@b.c", true},
		{"short phone", "+96399", "a@b.c", true},
		{"email without at", "+963999999999", "student.example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Register(ctx, studentID, "Student Name", tt.phone, tt.email)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			require.True(t, user.IsRegistered())
			require.Equal(t, "student@example.com", user.Email)
		})
	}
}

func TestAdminViews(t *testing.T) {
	svc := newTestService(t, nil, &recorder{})
	ctx := context.Background()

	submit(t, svc, "nlp_beginner", "photo-1")
	submit(t, svc, "y4_s1_nn", "photo-2")
	_, err := svc.Approve(ctx, adminID, studentID, "y4_s1_nn")
	require.NoError(t, err)

	_, err = svc.ListPending(ctx, studentID)
	require.ErrorIs(t, err, ErrForbidden)

	pending, err := svc.ListPending(ctx, adminID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "nlp_beginner", pending[0].Enrollment.ItemID)

	stats, err := svc.Stats(ctx, adminID)
	require.NoError(t, err)
	require.Equal(t, model.Stats{Users: 1, Pending: 1, Approved: 1}, stats)

	students, err := svc.Students(ctx, adminID)
	require.NoError(t, err)
	require.Len(t, students, 1)
}
