package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/liamroyal/etsy-software/internal/finance"
	"github.com/liamroyal/etsy-software/internal/lifecycle"
	"github.com/liamroyal/etsy-software/internal/model"
	"github.com/liamroyal/etsy-software/internal/orderquery"
	"github.com/liamroyal/etsy-software/internal/repository"
	"github.com/liamroyal/etsy-software/internal/validation"
)

// OrderView задаёт представление списка заказов.
type OrderView string

const (
	// OrderViewAttention — заказы, ожидающие действий оператора.
	OrderViewAttention OrderView = "attention"
	// OrderViewFulfilled — обработанные заказы текущего месяца.
	OrderViewFulfilled OrderView = "fulfilled"
	// OrderViewAll — все заказы в порядке приоритета.
	OrderViewAll OrderView = "all"
)

// ErrUnknownView возвращается для неизвестного представления списка.
var ErrUnknownView = errors.New("unknown order view")

func ordersCacheKey(q repository.OrderListQuery) string {
	return fmt.Sprintf("orders:%d:%d:%d", q.From.UnixNano(), q.To.UnixNano(), q.Limit)
}

// loadOrders возвращает заказы из кэша или из хранилища.
func (s *Service) loadOrders(ctx context.Context, q repository.OrderListQuery) ([]model.Order, error) {
	key := ordersCacheKey(q)
	if cached, ok := s.orders.Get(key); ok {
		return cached.([]model.Order), nil
	}

	orders, err := s.repo.ListOrders(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	s.orders.Set(key, orders, cache.DefaultExpiration)
	return orders, nil
}

func (s *Service) invalidateOrders() {
	s.orders.Flush()
}

// ListOrders возвращает заказы выбранного представления.
func (s *Service) ListOrders(ctx context.Context, view OrderView, q repository.OrderListQuery) ([]model.Order, error) {
	orders, err := s.loadOrders(ctx, q)
	if err != nil {
		return nil, err
	}

	switch view {
	case OrderViewAttention:
		return orderquery.SortByPriority(orderquery.FilterNeedsAttention(orders)), nil
	case OrderViewFulfilled:
		return orderquery.SortByPriority(orderquery.FulfilledForMonth(orders, s.now())), nil
	case OrderViewAll, "":
		return orderquery.SortByPriority(orders), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, id string) (model.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// OrderBreakdown возвращает финансовую раскладку заказа и результат её проверки.
func (s *Service) OrderBreakdown(ctx context.Context, id string) (model.FinancialBreakdown, finance.ValidationResult, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return model.FinancialBreakdown{}, finance.ValidationResult{}, err
	}
	return finance.OrderFinancialBreakdown(order), finance.ValidateOrderFinancials(order), nil
}

// applyOrderAction читает заказ, вычисляет изменение и записывает его.
// Возвращаемый заказ обновляется только после успешной записи.
func (s *Service) applyOrderAction(
	ctx context.Context,
	id string,
	action func(model.Order, time.Time) (lifecycle.Change, error),
) (model.Order, error) {
	unlock := s.lockOrder(id)
	defer unlock()

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return model.Order{}, err
	}

	change, err := action(order, s.now())
	if err != nil {
		return order, err
	}

	if err := s.repo.UpdateOrderFields(ctx, id, change.Fields); err != nil {
		s.logger.Error("failed to update order",
			zap.Error(err),
			zap.String("order_id", id),
			zap.String("order_number", order.OrderNumber),
		)
		return order, fmt.Errorf("update order %s: %w", id, err)
	}

	s.invalidateOrders()
	s.logger.Info("order updated",
		zap.String("order_id", id),
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(order.Status)),
		zap.String("to", string(change.Order.Status)),
	)
	return change.Order, nil
}

// FulfillOrder отмечает заказ выполненным.
func (s *Service) FulfillOrder(ctx context.Context, id string, confirmed bool, in lifecycle.FulfillInput) (model.Order, error) {
	in.FulfilledAt = validation.SanitizeText(in.FulfilledAt)
	if err := validation.ValidateFulfillment(confirmed, in.FulfilledAt, in.FulfillmentCost); err != nil {
		return model.Order{}, err
	}

	return s.applyOrderAction(ctx, id, func(o model.Order, now time.Time) (lifecycle.Change, error) {
		return lifecycle.Fulfill(o, in, now)
	})
}

// RefundOrder оформляет возврат по выполненному заказу.
func (s *Service) RefundOrder(ctx context.Context, id string, in lifecycle.RefundInput) (model.Order, error) {
	in.Reason = validation.SanitizeText(in.Reason)
	if err := validation.ValidateRefund(in.Reason, in.Percentage); err != nil {
		return model.Order{}, err
	}

	return s.applyOrderAction(ctx, id, func(o model.Order, now time.Time) (lifecycle.Change, error) {
		return lifecycle.Refund(o, in, now)
	})
}

// FlagOrder отмечает проблему с выполненным заказом.
func (s *Service) FlagOrder(ctx context.Context, id string, in lifecycle.FlagInput) (model.Order, error) {
	in.IssueDescription = validation.SanitizeText(in.IssueDescription)
	if err := validation.ValidateFlag(in.IssueDescription); err != nil {
		return model.Order{}, err
	}

	return s.applyOrderAction(ctx, id, func(o model.Order, now time.Time) (lifecycle.Change, error) {
		return lifecycle.Flag(o, in, now)
	})
}

// ResolveOrder закрывает проблему по отмеченному заказу.
func (s *Service) ResolveOrder(ctx context.Context, id string, in lifecycle.ResolveInput) (model.Order, error) {
	in.ResolvedDescription = validation.SanitizeText(in.ResolvedDescription)
	if err := validation.ValidateResolve(in.Confirmed, in.ResolvedDescription); err != nil {
		return model.Order{}, err
	}

	return s.applyOrderAction(ctx, id, func(o model.Order, now time.Time) (lifecycle.Change, error) {
		return lifecycle.Resolve(o, in, now)
	})
}

// BulkStatusResult содержит итог массовой смены статуса.
type BulkStatusResult struct {
	Updated []string          `json:"updated"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// SetOrdersStatus выставляет статус нескольким заказам без проверки переходов.
// Ошибка по одному заказу не прерывает обработку остальных.
func (s *Service) SetOrdersStatus(ctx context.Context, ids []string, status model.OrderStatus) (BulkStatusResult, error) {
	if !status.Valid() {
		return BulkStatusResult{}, fmt.Errorf("%w: unknown status %q", lifecycle.ErrInvalidInput, status)
	}

	res := BulkStatusResult{Updated: make([]string, 0, len(ids))}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		_, err := s.applyOrderAction(ctx, id, func(o model.Order, now time.Time) (lifecycle.Change, error) {
			return lifecycle.SetStatus(o, status, now)
		})
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			if res.Failed == nil {
				res.Failed = make(map[string]string)
			}
			res.Failed[id] = err.Error()
			continue
		}
		res.Updated = append(res.Updated, id)
	}
	return res, nil
}

// watchRetryDelay задаёт паузу перед повторной подпиской после ошибки хранилища.
var watchRetryDelay = 5 * time.Second

// WatchOrders подписывается на изменения заказов в хранилище и сбрасывает
// кэш при каждом изменении. После ошибки подписка возобновляется.
// Блокируется до отмены ctx.
func (s *Service) WatchOrders(ctx context.Context) {
	first := true
	onChange := func(orders []model.Order) {
		s.invalidateOrders()
		s.orders.Set(ordersCacheKey(repository.OrderListQuery{}), orders, cache.DefaultExpiration)
		if first {
			first = false
			s.logger.Info("order subscription started", zap.Int("orders", len(orders)))
		}
	}

	for {
		err := s.repo.SubscribeOrders(ctx, repository.OrderListQuery{}, onChange)
		if err == nil || ctx.Err() != nil {
			return
		}
		s.logger.Warn("order subscription failed, retrying",
			zap.Error(err),
			zap.Duration("delay", watchRetryDelay),
		)

		// Пока подписки нет, список заказов читается из хранилища напрямую.
		s.invalidateOrders()

		timer := time.NewTimer(watchRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
