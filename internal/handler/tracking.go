package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/liamroyal/etsy-software/internal/repository"
)

const maxUploadSize = 10 << 20

// UploadTracking принимает таблицу трек-номеров в поле формы "file".
func (h *Handler) UploadTracking(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "multipart form with file is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	res, err := h.service.UploadTracking(r.Context(), file)
	if err != nil {
		h.writeError(w, "upload tracking", err, zap.String("file", header.Filename))
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// ListTracking возвращает сохранённые трек-номера.
func (h *Handler) ListTracking(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListTracking(r.Context())
	if err != nil {
		h.writeError(w, "list tracking", err)
		return
	}

	resp := make([]trackingResponse, 0, len(records))
	for _, t := range records {
		resp = append(resp, newTrackingResponse(t))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type trackingUpdateRequest struct {
	TrackingNumber *string `json:"trackingNumber"`
	Fulfilled      *bool   `json:"fulfilled"`
}

// UpdateTracking изменяет трек-номер заказа или отметку об отправке.
func (h *Handler) UpdateTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingUpdateRequest
	if !decodeJSON(r, &req) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	// Номер заказа начинается с "#", поэтому в пути он приходит экранированным.
	number, err := url.PathUnescape(chi.URLParam(r, "number"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	rec, err := h.service.UpdateTracking(r.Context(), number, repository.TrackingUpdate{
		TrackingNumber: req.TrackingNumber,
		Fulfilled:      req.Fulfilled,
	})
	if err != nil {
		h.writeError(w, "update tracking", err, zap.String("order_number", number))
		return
	}
	h.writeJSON(w, http.StatusOK, newTrackingResponse(rec))
}
