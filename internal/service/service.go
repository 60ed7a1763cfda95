package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/iurnickita/coursebot/internal/catalog"
	"github.com/iurnickita/coursebot/internal/ledger"
	"github.com/iurnickita/coursebot/internal/lock"
	"github.com/iurnickita/coursebot/internal/model"
	"github.com/iurnickita/coursebot/internal/notify"
	"github.com/iurnickita/coursebot/internal/pricing"
	"github.com/iurnickita/coursebot/internal/service/config"
	"github.com/iurnickita/coursebot/internal/session"
	"github.com/iurnickita/coursebot/internal/store"
)

type Service interface {
	// Корзина и оплата
	Toggle(userID int64, itemID string) (ToggleResult, error)
	Cart(userID int64) (CartView, error)
	Clear(userID int64)
	SetCoordinates(userID int64, coords session.Coordinates)
	Session(userID int64) session.Session
	BeginPayment(userID int64, method model.PaymentMethod) (PaymentInstructions, error)
	BeginDirect(userID int64, itemID string, method model.PaymentMethod) (PaymentInstructions, error)
	SubmitPayment(ctx context.Context, userID int64, receipt string) ([]model.Item, error)

	// Решение администратора
	Approve(ctx context.Context, adminID, userID int64, itemID string) (model.Enrollment, error)
	Reject(ctx context.Context, adminID, userID int64, itemID string) (model.Enrollment, error)

	// Просмотр
	QueryStatus(ctx context.Context, userID int64) ([]StatusEntry, error)
	ItemView(ctx context.Context, userID int64, itemID string) (ItemView, error)
	GroupLink(ctx context.Context, userID int64, itemID string) (string, error)
	ListItems(category model.Category) []model.Item
	ListSemester(year, semester int) []model.Item
	Years() []int

	// Пользователь
	User(ctx context.Context, userID int64) (model.User, error)
	Touch(ctx context.Context, userID int64) (model.User, error)
	Register(ctx context.Context, userID int64, fullName, phone, email string) (model.User, error)
	ContactAdmin(ctx context.Context, userID int64, name, text string) error

	// Администрирование
	IsAdmin(userID int64) bool
	ListPending(ctx context.Context, adminID int64) ([]model.PendingEnrollment, error)
	Students(ctx context.Context, adminID int64) ([]model.User, error)
	Stats(ctx context.Context, adminID int64) (model.Stats, error)
}

var (
	ErrNotFound         = errors.New("not found")
	ErrEmptySelection   = errors.New("empty selection")
	ErrNoPendingPayment = errors.New("no pending payment")
	ErrStaleTransition  = errors.New("enrollment is not pending")
	ErrUnavailable      = errors.New("storage unavailable, retry later")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalid          = errors.New("invalid input")
	ErrDelivery         = errors.New("delivery failed")
)

// Deps - зависимости сервиса.
type Deps struct {
	Store    store.Store
	Catalog  catalog.Catalog
	Pricing  *pricing.Engine
	Sessions *session.Manager
	Locker   lock.Locker
	Notifier notify.Notifier
	Logger   *zap.Logger
}

type service struct {
	cfg      config.Config
	store    store.Store
	catalog  catalog.Catalog
	pricing  *pricing.Engine
	sessions *session.Manager
	ledger   ledger.Ledger
	locker   lock.Locker
	notifier notify.Notifier
	zaplog   *zap.Logger
}

func NewService(cfg config.Config, deps Deps) (Service, error) {
	if deps.Store == nil || deps.Catalog == nil || deps.Pricing == nil {
		return nil, errors.New("service: store, catalog and pricing are required")
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewManager(cfg.SessionIdleTTL)
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocal()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	service := service{
		cfg:      cfg,
		store:    deps.Store,
		catalog:  deps.Catalog,
		pricing:  deps.Pricing,
		sessions: deps.Sessions,
		ledger:   ledger.NewLedger(deps.Store, deps.Catalog),
		locker:   deps.Locker,
		notifier: deps.Notifier,
		zaplog:   deps.Logger,
	}
	return &service, nil
}

// withUserLock выполняет fn в эксклюзивной секции пользователя.
func (s *service) withUserLock(ctx context.Context, userID int64, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, lock.UserKey(userID))
	if err != nil {
		s.zaplog.Warn("user lock failed", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer unlock()

	return fn()
}

// mapError переводит ошибки нижних слоёв в ошибки сервиса.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return ErrUnavailable
	case errors.Is(err, session.ErrEmptySelection), errors.Is(err, ledger.ErrEmptySelection):
		return ErrEmptySelection
	case errors.Is(err, session.ErrNoPendingPayment):
		return ErrNoPendingPayment
	case errors.Is(err, ledger.ErrInvalidMethod), errors.Is(err, ledger.ErrEmptyReceipt):
		return ErrInvalid
	default:
		return err
	}
}

func (s *service) IsAdmin(userID int64) bool {
	return slices.Contains(s.cfg.AdminIDs, userID)
}

func (s *service) ListItems(category model.Category) []model.Item {
	return s.catalog.List(category)
}

func (s *service) ListSemester(year, semester int) []model.Item {
	return s.catalog.ListSemester(year, semester)
}

// Years - годы обучения, для которых в каталоге есть материалы.
func (s *service) Years() []int {
	return catalog.Years(s.catalog)
}

func (s *service) ListPending(ctx context.Context, adminID int64) ([]model.PendingEnrollment, error) {
	if !s.IsAdmin(adminID) {
		return nil, ErrForbidden
	}
	pending, err := s.store.ListPending(ctx)
	return pending, mapError(err)
}

func (s *service) Students(ctx context.Context, adminID int64) ([]model.User, error) {
	if !s.IsAdmin(adminID) {
		return nil, ErrForbidden
	}
	users, err := s.store.ListUsers(ctx)
	return users, mapError(err)
}

func (s *service) Stats(ctx context.Context, adminID int64) (model.Stats, error) {
	if !s.IsAdmin(adminID) {
		return model.Stats{}, ErrForbidden
	}
	stats, err := s.store.Stats(ctx)
	return stats, mapError(err)
}
