package handler

import (
	"fmt"
	"net/http"

	"github.com/liamroyal/etsy-software/internal/orderquery"
	"github.com/liamroyal/etsy-software/internal/service"
	"github.com/liamroyal/etsy-software/internal/validation"
)

func period(r *http.Request) orderquery.Period {
	return orderquery.Period(r.URL.Query().Get("period"))
}

// GetStats возвращает финансовую статистику. Параметр scope выбирает заказы:
// received (по умолчанию) считает полученные за period, fulfilled считает
// обработанные в текущем месяце.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	var (
		report service.StatsReport
		err    error
	)
	switch scope := service.StatsScope(r.URL.Query().Get("scope")); scope {
	case service.StatsScopeReceived, "":
		report, err = h.service.Stats(r.Context(), period(r))
	case service.StatsScopeFulfilled:
		report, err = h.service.FulfilledStats(r.Context())
	default:
		err = fmt.Errorf("%w: unknown stats scope %q", validation.ErrValidation, scope)
	}
	if err != nil {
		h.writeError(w, "get stats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// GetAnalytics возвращает производные показатели прибыли.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Analytics(r.Context(), period(r))
	if err != nil {
		h.writeError(w, "get analytics", err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

// GetValidation возвращает результаты проверки финансовых данных.
func (h *Handler) GetValidation(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Validation(r.Context(), period(r))
	if err != nil {
		h.writeError(w, "get validation", err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// GetHealth возвращает отчёт о качестве финансовых данных.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Health(r.Context(), period(r))
	if err != nil {
		h.writeError(w, "get health", err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}
