package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/liamroyal/etsy-software/internal/finance"
	"github.com/liamroyal/etsy-software/internal/model"
	"github.com/liamroyal/etsy-software/internal/validation"
)

// StartIngest запускает фоновую загрузку новых заказов из сервиса разбора писем.
func (s *Service) StartIngest(ctx context.Context) {
	if s.ingestClient == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(s.ingestInterval)
		defer ticker.Stop()

		s.processIngestBatch(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processIngestBatch(ctx)
			}
		}
	}()
}

// processIngestBatch загружает письма, полученные после последнего успешного
// запроса, и сохраняет новые заказы. Возвращает число вставленных заказов.
func (s *Service) processIngestBatch(ctx context.Context) int {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	parsed, statusCode, retryAfter, err := s.ingestClient.FetchOrders(ctx, s.ingestSince)
	if err != nil {
		s.logger.Warn("failed to fetch parsed orders", zap.Error(err))
		return 0
	}

	if statusCode == http.StatusTooManyRequests {
		if retryAfter > 0 {
			timer := time.NewTimer(retryAfter)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
		return 0
	}

	inserted := 0
	since := s.ingestSince
	for _, p := range parsed {
		order := p.Order()
		if !validation.IsValidOrderNumber(order.OrderNumber) {
			s.logger.Warn("skipping parsed order with invalid number",
				zap.String("order_number", order.OrderNumber),
				zap.String("message_id", order.MessageID),
			)
			continue
		}

		order = prepareIngestedOrder(order, s.now())

		id, ok, err := s.repo.AddOrder(ctx, order)
		if err != nil {
			s.logger.Error("failed to save parsed order",
				zap.Error(err),
				zap.String("order_number", order.OrderNumber),
			)
			// Курсор не сдвигается: повтор безопасен, дубликаты отсекаются по messageId.
			if inserted > 0 {
				s.invalidateOrders()
			}
			return inserted
		}
		if ok {
			inserted++
			s.logger.Info("order ingested",
				zap.String("order_id", id),
				zap.String("order_number", order.OrderNumber),
				zap.String("type", string(order.Type)),
			)
		}
		if order.ReceivedAt.After(since) {
			since = order.ReceivedAt
		}
	}

	s.ingestSince = since
	if inserted > 0 {
		s.invalidateOrders()
	}
	return inserted
}

// prepareIngestedOrder очищает текстовые поля письма и дополняет заказ
// комиссией Etsy и чистой выручкой.
func prepareIngestedOrder(o model.Order, now time.Time) model.Order {
	o.Store = validation.SanitizeText(o.Store)
	o.CustomerName = validation.SanitizeText(o.CustomerName)
	o.ShippingAddress = validation.SanitizeText(o.ShippingAddress)
	o.RefundReason = validation.SanitizeText(o.RefundReason)
	if o.OriginalCurrency == "" {
		o.OriginalCurrency = "AUD"
	}
	if o.ReceivedAt.IsZero() {
		o.ReceivedAt = now
	}
	o.CreatedAt = now
	o.UpdatedAt = now

	if o.Type == model.OrderTypeOrder {
		o = finance.OrderFinancialFields(o)
	}
	return o
}
