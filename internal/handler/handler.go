package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/coursebot/internal/auth"
	"github.com/iurnickita/coursebot/internal/handler/config"
	"github.com/iurnickita/coursebot/internal/logger"
	"github.com/iurnickita/coursebot/internal/model"
	"github.com/iurnickita/coursebot/internal/service"
)

// Serve запускает админское API и останавливает его при отмене ctx.
func Serve(ctx context.Context, cfg config.Config, auth auth.Auth, service service.Service, zaplog *zap.Logger) error {
	h := newHandler(auth, service, zaplog)
	router := h.newRouter()

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	zaplog.Info("admin API listening", zap.String("addr", cfg.ServerAddr))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type handler struct {
	auth    auth.Auth
	service service.Service
	zaplog  *zap.Logger
}

func newHandler(auth auth.Auth, service service.Service, zaplog *zap.Logger) *handler {
	return &handler{
		auth:    auth,
		service: service,
		zaplog:  zaplog,
	}
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/catalog/{category}", logger.RequestLogMdlw(h.GetCatalog, h.zaplog))
	mux.HandleFunc("GET /api/admin/enrollments/pending", logger.RequestLogMdlw(h.auth.Middleware(h.GetPending), h.zaplog))
	mux.HandleFunc("POST /api/admin/enrollments/{user}/{item}/approve", logger.RequestLogMdlw(h.auth.Middleware(h.PostApprove), h.zaplog))
	mux.HandleFunc("POST /api/admin/enrollments/{user}/{item}/reject", logger.RequestLogMdlw(h.auth.Middleware(h.PostReject), h.zaplog))
	mux.HandleFunc("GET /api/admin/stats", logger.RequestLogMdlw(h.auth.Middleware(h.GetStats), h.zaplog))
	mux.HandleFunc("GET /api/admin/students", logger.RequestLogMdlw(h.auth.Middleware(h.GetStudents), h.zaplog))
	mux.HandleFunc("GET /api/users/{user}/status", logger.RequestLogMdlw(h.auth.Middleware(h.GetStatus), h.zaplog))

	return mux
}

// writeError переводит ошибки сервиса в коды ответа.
func (h *handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrEmptySelection), errors.Is(err, service.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrStaleTransition), errors.Is(err, service.ErrNoPendingPayment):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, service.ErrUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		h.zaplog.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(responseJSON)
}

func adminID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get(auth.HeaderAdminIDKey), 10, 64)
	return id
}

type ItemJSONResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int    `json:"price"`
	Category    string `json:"category"`
	Year        int    `json:"year,omitempty"`
	Semester    int    `json:"semester,omitempty"`
}

func (h *handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	category := model.Category(r.PathValue("category"))
	if category != model.CategoryProfessional && category != model.CategoryUniversity {
		http.Error(w, "unknown category", http.StatusNotFound)
		return
	}

	itemsJSON := []ItemJSONResponse{}
	for _, item := range h.service.ListItems(category) {
		itemsJSON = append(itemsJSON, ItemJSONResponse{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price,
			Category:    string(item.Category),
			Year:        item.Year,
			Semester:    item.Semester,
		})
	}
	h.writeJSON(w, itemsJSON)
}

type PendingJSONResponse struct {
	UserID        int64     `json:"user_id"`
	FullName      string    `json:"full_name"`
	ItemID        string    `json:"item_id"`
	PaymentMethod string    `json:"payment_method"`
	Receipt       string    `json:"payment_receipt"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (h *handler) GetPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.ListPending(r.Context(), adminID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	pendingJSON := []PendingJSONResponse{}
	for _, p := range pending {
		pendingJSON = append(pendingJSON, PendingJSONResponse{
			UserID:        p.UserID,
			FullName:      p.FullName,
			ItemID:        p.Enrollment.ItemID,
			PaymentMethod: p.Enrollment.PaymentMethod,
			Receipt:       p.Enrollment.PaymentReceipt,
			UpdatedAt:     p.Enrollment.UpdatedAt,
		})
	}
	h.writeJSON(w, pendingJSON)
}

type DecisionJSONResponse struct {
	UserID int64  `json:"user_id"`
	ItemID string `json:"item_id"`
	Status string `json:"approval_status"`
}

func (h *handler) PostApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

func (h *handler) PostReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

type decideFunc func(ctx context.Context, adminID, userID int64, itemID string) (model.Enrollment, error)

func (h *handler) decide(w http.ResponseWriter, r *http.Request, decide decideFunc) {
	userID, err := strconv.ParseInt(r.PathValue("user"), 10, 64)
	if err != nil {
		http.Error(w, "bad user id", http.StatusBadRequest)
		return
	}

	enrollment, err := decide(r.Context(), adminID(r), userID, r.PathValue("item"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, DecisionJSONResponse{
		UserID: userID,
		ItemID: enrollment.ItemID,
		Status: enrollment.ApprovalStatus,
	})
}

func (h *handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if !h.service.IsAdmin(adminID(r)) {
		h.writeError(w, service.ErrForbidden)
		return
	}
	userID, err := strconv.ParseInt(r.PathValue("user"), 10, 64)
	if err != nil {
		http.Error(w, "bad user id", http.StatusBadRequest)
		return
	}

	entries, err := h.service.QueryStatus(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []service.StatusEntry{}
	}
	h.writeJSON(w, entries)
}

type StatsJSONResponse struct {
	Users    int `json:"users"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

func (h *handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), adminID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, StatsJSONResponse{
		Users:    stats.Users,
		Pending:  stats.Pending,
		Approved: stats.Approved,
		Rejected: stats.Rejected,
	})
}

type StudentJSONResponse struct {
	TelegramID int64     `json:"telegram_id"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email"`
	LastActive time.Time `json:"last_active"`
	Courses    int       `json:"courses"`
}

func (h *handler) GetStudents(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Students(r.Context(), adminID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(users) == 0 {
		http.Error(w, "", http.StatusNoContent)
		return
	}

	studentsJSON := make([]StudentJSONResponse, 0, len(users))
	for _, u := range users {
		studentsJSON = append(studentsJSON, StudentJSONResponse{
			TelegramID: u.TelegramID,
			FullName:   u.FullName,
			Phone:      u.Phone,
			Email:      u.Email,
			LastActive: u.LastActive,
			Courses:    len(u.Courses),
		})
	}
	h.writeJSON(w, studentsJSON)
}
