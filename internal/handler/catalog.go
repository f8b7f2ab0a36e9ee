package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/liamroyal/etsy-software/internal/model"
	"github.com/liamroyal/etsy-software/internal/validation"
)

func parsePrice(name, value string) (decimal.NullDecimal, error) {
	if value == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: invalid %s %q", validation.ErrValidation, name, value)
	}
	return decimal.NewNullDecimal(d), nil
}

// ListProducts возвращает товары каталога с учётом фильтра.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	f := model.ProductFilter{
		Search:            values.Get("search"),
		FulfillmentMethod: values.Get("method"),
	}
	var err error
	if f.MinPrice, err = parsePrice("minPrice", values.Get("minPrice")); err != nil {
		h.writeError(w, "list products", err)
		return
	}
	if f.MaxPrice, err = parsePrice("maxPrice", values.Get("maxPrice")); err != nil {
		h.writeError(w, "list products", err)
		return
	}

	products, err := h.service.ListProducts(r.Context(), f)
	if err != nil {
		h.writeError(w, "list products", err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, newProductResponse(p))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CreateProduct добавляет товар в каталог.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(r, &req) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	p, err := h.service.CreateProduct(r.Context(), req.product(""))
	if err != nil {
		h.writeError(w, "create product", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newProductResponse(p))
}

// UpdateProduct изменяет товар каталога.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(r, &req) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	p, err := h.service.UpdateProduct(r.Context(), req.product(id))
	if err != nil {
		h.writeError(w, "update product", err, zap.String("product_id", id))
		return
	}
	h.writeJSON(w, http.StatusOK, newProductResponse(p))
}

// DeleteProduct удаляет товар из каталога.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, "delete product", err, zap.String("product_id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotes возвращает заметки.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.ListNotes(r.Context())
	if err != nil {
		h.writeError(w, "list notes", err)
		return
	}

	resp := make([]noteResponse, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, noteResponse{ID: n.ID, Title: n.Title, Body: n.Body, CreatedAt: timePtr(n.CreatedAt)})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type noteRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CreateNote добавляет заметку.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !decodeJSON(r, &req) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	n, err := h.service.CreateNote(r.Context(), model.Note{Title: req.Title, Body: req.Body})
	if err != nil {
		h.writeError(w, "create note", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, noteResponse{ID: n.ID, Title: n.Title, Body: n.Body, CreatedAt: timePtr(n.CreatedAt)})
}

// CompleteNote отмечает заметку выполненной.
func (h *Handler) CompleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.CompleteNote(r.Context(), id); err != nil {
		h.writeError(w, "complete note", err, zap.String("note_id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
