// Package handler содержит HTTP-обработчики API бэк-офиса.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/liamroyal/etsy-software/internal/finance"
	"github.com/liamroyal/etsy-software/internal/lifecycle"
	"github.com/liamroyal/etsy-software/internal/middleware"
	"github.com/liamroyal/etsy-software/internal/model"
	"github.com/liamroyal/etsy-software/internal/orderquery"
	"github.com/liamroyal/etsy-software/internal/repository"
	"github.com/liamroyal/etsy-software/internal/service"
	"github.com/liamroyal/etsy-software/internal/validation"
)

func init() {
	// Денежные суммы отдаются числами, а не строками.
	decimal.MarshalJSONWithoutQuotes = true
}

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, email, password string, role model.Role) (string, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)

	ListOrders(ctx context.Context, view service.OrderView, q repository.OrderListQuery) ([]model.Order, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	OrderBreakdown(ctx context.Context, id string) (model.FinancialBreakdown, finance.ValidationResult, error)
	FulfillOrder(ctx context.Context, id string, confirmed bool, in lifecycle.FulfillInput) (model.Order, error)
	RefundOrder(ctx context.Context, id string, in lifecycle.RefundInput) (model.Order, error)
	FlagOrder(ctx context.Context, id string, in lifecycle.FlagInput) (model.Order, error)
	ResolveOrder(ctx context.Context, id string, in lifecycle.ResolveInput) (model.Order, error)
	SetOrdersStatus(ctx context.Context, ids []string, status model.OrderStatus) (service.BulkStatusResult, error)

	Stats(ctx context.Context, period orderquery.Period) (service.StatsReport, error)
	FulfilledStats(ctx context.Context) (service.StatsReport, error)
	Analytics(ctx context.Context, period orderquery.Period) (finance.Analytics, error)
	Validation(ctx context.Context, period orderquery.Period) (service.ValidationReport, error)
	Health(ctx context.Context, period orderquery.Period) (finance.HealthReport, error)

	ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) (model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) (model.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListNotes(ctx context.Context) ([]model.Note, error)
	CreateNote(ctx context.Context, n model.Note) (model.Note, error)
	CompleteNote(ctx context.Context, id string) error

	UploadTracking(ctx context.Context, r io.Reader) (service.TrackingUploadResult, error)
	ListTracking(ctx context.Context) ([]model.TrackingRecord, error)
	UpdateTracking(ctx context.Context, orderNumber string, u repository.TrackingUpdate) (model.TrackingRecord, error)

	OverdueDays() int
	Now() time.Time
}

// Handler реализует HTTP-обработчики API бэк-офиса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// statusFor сопоставляет ошибку бизнес-логики HTTP-статусу.
func statusFor(err error) int {
	switch {
	case errors.Is(err, validation.ErrValidation),
		errors.Is(err, lifecycle.ErrInvalidInput),
		errors.Is(err, service.ErrUnknownView),
		errors.Is(err, service.ErrUnknownPeriod):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrNoteNotFound),
		errors.Is(err, repository.ErrTrackingNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, repository.ErrTrackingExists),
		errors.Is(err, repository.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, repository.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError отвечает статусом, соответствующим ошибке. Текст клиентских
// ошибок возвращается как есть, серверные ошибки пишутся в лог.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error, fields ...zap.Field) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(op+" error", append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(code), code)
		return
	}
	http.Error(w, err.Error(), code)
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func decodeJSON(r *http.Request, v any) bool {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v) == nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Role: u.Role}
}

// Login выполняет аутентификацию пользователя и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(r, &req) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, "login user", err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, user)
	h.writeJSON(w, http.StatusOK, newUserResponse(user))
}

// Logout удаляет cookie авторизации.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me возвращает текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	h.writeJSON(w, http.StatusOK, newUserResponse(user))
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// RegisterUser создаёт учётную запись сотрудника. Доступно администратору.
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(r, &req) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	role := model.ParseRole(req.Role)
	id, err := h.service.RegisterUser(r.Context(), req.Email, req.Password, role)
	if err != nil {
		h.writeError(w, "register user", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, userResponse{ID: id, Email: req.Email, Role: role})
}
