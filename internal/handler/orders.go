package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/liamroyal/etsy-software/internal/finance"
	"github.com/liamroyal/etsy-software/internal/lifecycle"
	"github.com/liamroyal/etsy-software/internal/model"
	"github.com/liamroyal/etsy-software/internal/repository"
	"github.com/liamroyal/etsy-software/internal/service"
	"github.com/liamroyal/etsy-software/internal/validation"
)

const dateLayout = "2006-01-02"

// parseTime принимает RFC 3339 или дату. Для даты с endOfDay возвращается
// последняя наносекунда дня.
func parseTime(value string, endOfDay bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", validation.ErrValidation, value)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func parseListQuery(r *http.Request) (repository.OrderListQuery, error) {
	var q repository.OrderListQuery
	var err error

	values := r.URL.Query()
	if q.From, err = parseTime(values.Get("from"), false); err != nil {
		return q, err
	}
	if q.To, err = parseTime(values.Get("to"), true); err != nil {
		return q, err
	}
	if limit := values.Get("limit"); limit != "" {
		q.Limit, err = strconv.Atoi(limit)
		if err != nil || q.Limit < 0 {
			return q, fmt.Errorf("%w: invalid limit %q", validation.ErrValidation, limit)
		}
	}
	return q, nil
}

func (h *Handler) orderResponses(orders []model.Order) []orderResponse {
	now := h.service.Now()
	days := h.service.OverdueDays()

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o, now, days))
	}
	return resp
}

// ListOrders возвращает заказы выбранного представления.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		h.writeError(w, "list orders", err)
		return
	}

	view := service.OrderView(r.URL.Query().Get("view"))
	orders, err := h.service.ListOrders(r.Context(), view, q)
	if err != nil {
		h.writeError(w, "list orders", err, zap.String("view", string(view)))
		return
	}

	h.writeJSON(w, http.StatusOK, h.orderResponses(orders))
}

// GetOrder возвращает заказ по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, "get order", err, zap.String("order_id", id))
		return
	}

	h.writeJSON(w, http.StatusOK, newOrderResponse(order, h.service.Now(), h.service.OverdueDays()))
}

type breakdownResponse struct {
	Breakdown  model.FinancialBreakdown `json:"breakdown"`
	Display    breakdownDisplay         `json:"display"`
	Validation finance.ValidationResult `json:"validation"`
}

// breakdownDisplay содержит суммы раскладки, отформатированные в AUD.
type breakdownDisplay struct {
	GrossRevenue           string `json:"grossRevenue"`
	EtsyFeePercentage      string `json:"etsyFeePercentage"`
	EtsyFeeAmount          string `json:"etsyFeeAmount"`
	NetRevenue             string `json:"netRevenue"`
	FulfillmentCosts       string `json:"fulfillmentCosts"`
	Profit                 string `json:"profit"`
	ProfitMarginPercentage string `json:"profitMarginPercentage"`
}

func newBreakdownDisplay(b model.FinancialBreakdown) breakdownDisplay {
	return breakdownDisplay{
		GrossRevenue:           finance.FormatAmount(b.GrossRevenue, "AUD"),
		EtsyFeePercentage:      finance.FormatPercentage(b.EtsyFeePercentage, 1),
		EtsyFeeAmount:          finance.FormatAmount(b.EtsyFeeAmount, "AUD"),
		NetRevenue:             finance.FormatAmount(b.NetRevenue, "AUD"),
		FulfillmentCosts:       finance.FormatAmount(b.FulfillmentCosts, "AUD"),
		Profit:                 finance.FormatAmount(b.Profit, "AUD"),
		ProfitMarginPercentage: finance.FormatPercentage(b.ProfitMarginPercentage, 1),
	}
}

// GetOrderBreakdown возвращает финансовую раскладку заказа и её проверку.
func (h *Handler) GetOrderBreakdown(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b, res, err := h.service.OrderBreakdown(r.Context(), id)
	if err != nil {
		h.writeError(w, "order breakdown", err, zap.String("order_id", id))
		return
	}

	h.writeJSON(w, http.StatusOK, breakdownResponse{
		Breakdown:  b,
		Display:    newBreakdownDisplay(b),
		Validation: res,
	})
}

type fulfillRequest struct {
	Confirmed       bool            `json:"confirmed"`
	FulfilledAt     string          `json:"fulfilledAt"`
	FulfillmentCost decimal.Decimal `json:"fulfillmentCost"`
}

// FulfillOrder отмечает заказ выполненным.
func (h *Handler) FulfillOrder(w http.ResponseWriter, r *http.Request) {
	var req fulfillRequest
	if !decodeJSON(r, &req) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	order, err := h.service.FulfillOrder(r.Context(), id, req.Confirmed, lifecycle.FulfillInput{
		FulfilledAt:     req.FulfilledAt,
		FulfillmentCost: req.FulfillmentCost,
	})
	h.writeOrderAction(w, "fulfill order", id, order, err)
}

type refundRequest struct {
	RefundReason           string          `json:"refundReason"`
	RefundPercentage       decimal.Decimal `json:"refundPercentage"`
	CustomerReturningItems bool            `json:"customerReturningItems"`
}

// RefundOrder оформляет возврат по выполненному заказу.
func (h *Handler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if !decodeJSON(r, &req) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	order, err := h.service.RefundOrder(r.Context(), id, lifecycle.RefundInput{
		Reason:                 req.RefundReason,
		Percentage:             req.RefundPercentage,
		CustomerReturningItems: req.CustomerReturningItems,
	})
	h.writeOrderAction(w, "refund order", id, order, err)
}

type flagRequest struct {
	IssueDescription string `json:"issueDescription"`
}

// FlagOrder отмечает проблему с выполненным заказом.
func (h *Handler) FlagOrder(w http.ResponseWriter, r *http.Request) {
	var req flagRequest
	if !decodeJSON(r, &req) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	order, err := h.service.FlagOrder(r.Context(), id, lifecycle.FlagInput{IssueDescription: req.IssueDescription})
	h.writeOrderAction(w, "flag order", id, order, err)
}

type resolveRequest struct {
	Confirmed           bool   `json:"confirmed"`
	ResolvedDescription string `json:"resolvedDescription"`
}

// ResolveOrder закрывает проблему по заказу.
func (h *Handler) ResolveOrder(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeJSON(r, &req) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	order, err := h.service.ResolveOrder(r.Context(), id, lifecycle.ResolveInput{
		Confirmed:           req.Confirmed,
		ResolvedDescription: req.ResolvedDescription,
	})
	h.writeOrderAction(w, "resolve order", id, order, err)
}

func (h *Handler) writeOrderAction(w http.ResponseWriter, op, id string, order model.Order, err error) {
	if err != nil {
		h.writeError(w, op, err, zap.String("order_id", id))
		return
	}
	h.writeJSON(w, http.StatusOK, newOrderResponse(order, h.service.Now(), h.service.OverdueDays()))
}

type bulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

// SetOrdersStatus выставляет статус нескольким заказам. Доступно администратору.
func (h *Handler) SetOrdersStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if !decodeJSON(r, &req) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if len(req.IDs) == 0 {
		http.Error(w, "ids are required", http.StatusBadRequest)
		return
	}

	status := model.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	res, err := h.service.SetOrdersStatus(r.Context(), req.IDs, status)
	if err != nil {
		h.writeError(w, "set orders status", err, zap.Int("orders", len(req.IDs)))
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}
