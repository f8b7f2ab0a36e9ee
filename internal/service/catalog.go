package service

import (
	"context"
	"strings"

	"github.com/liamroyal/etsy-software/internal/model"
	"github.com/liamroyal/etsy-software/internal/validation"
)

// ListProducts возвращает товары каталога, подходящие под фильтр.
func (s *Service) ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return filterProducts(products, f), nil
}

// filterProducts применяет фильтр каталога. Поиск ищет подстроку без учёта
// регистра в названии и способе выполнения.
func filterProducts(products []model.Product, f model.ProductFilter) []model.Product {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if f.FulfillmentMethod != "" && p.FulfillmentMethod != f.FulfillmentMethod {
			continue
		}
		if f.MinPrice.Valid && p.Price.LessThan(f.MinPrice.Decimal) {
			continue
		}
		if f.MaxPrice.Valid && p.Price.GreaterThan(f.MaxPrice.Decimal) {
			continue
		}
		if search != "" {
			text := strings.ToLower(p.Name + " " + p.FulfillmentMethod)
			if !strings.Contains(text, search) {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func sanitizeProduct(p model.Product) model.Product {
	p.Name = validation.SanitizeText(p.Name)
	p.Store = validation.SanitizeText(p.Store)
	p.Description = validation.SanitizeText(p.Description)
	p.Category = validation.SanitizeText(p.Category)
	p.FulfillmentMethod = validation.SanitizeText(p.FulfillmentMethod)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	p.ListingLink = strings.TrimSpace(p.ListingLink)
	p.FulfillmentLink = strings.TrimSpace(p.FulfillmentLink)
	return p
}

// CreateProduct добавляет товар в каталог.
func (s *Service) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	p = sanitizeProduct(p)
	if err := validation.ValidateProduct(p); err != nil {
		return model.Product{}, err
	}
	return s.repo.CreateProduct(ctx, p)
}

// UpdateProduct изменяет товар каталога.
func (s *Service) UpdateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	p = sanitizeProduct(p)
	if err := validation.ValidateProduct(p); err != nil {
		return model.Product{}, err
	}
	return s.repo.UpdateProduct(ctx, p)
}

// DeleteProduct удаляет товар из каталога.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.DeleteProduct(ctx, id)
}

// ListNotes возвращает заметки.
func (s *Service) ListNotes(ctx context.Context) ([]model.Note, error) {
	return s.repo.ListNotes(ctx)
}

// CreateNote добавляет заметку.
func (s *Service) CreateNote(ctx context.Context, n model.Note) (model.Note, error) {
	n.Title = validation.SanitizeText(n.Title)
	n.Body = validation.SanitizeText(n.Body)
	if err := validation.ValidateNote(n); err != nil {
		return model.Note{}, err
	}
	return s.repo.CreateNote(ctx, n)
}

// CompleteNote отмечает заметку выполненной. Выполненные заметки не хранятся.
func (s *Service) CompleteNote(ctx context.Context, id string) error {
	return s.repo.DeleteNote(ctx, id)
}
