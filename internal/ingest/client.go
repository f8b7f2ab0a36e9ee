// Package ingest предоставляет клиент сервиса разбора писем о заказах Etsy.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamroyal/etsy-software/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие с сервисом разбора писем.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ParsedOrder описывает заказ, извлечённый из письма Etsy.
type ParsedOrder struct {
	OrderNumber      string              `json:"orderNumber"`
	Store            string              `json:"store"`
	Type             string              `json:"type"`
	Amount           decimal.NullDecimal `json:"amount"`
	OriginalCurrency string              `json:"originalCurrency"`
	AmountAUD        decimal.NullDecimal `json:"amountAUD"`
	CustomerName     string              `json:"customerName,omitempty"`
	MessageID        string              `json:"messageId"`
	ShippingAddress  string              `json:"shippingAddress,omitempty"`
	RefundReason     string              `json:"refundReason,omitempty"`
	RefundAmount     decimal.NullDecimal `json:"refundAmount"`
	ReceivedAt       time.Time           `json:"receivedAt"`
}

// Order преобразует разобранное письмо в новый заказ со статусом pending.
func (p ParsedOrder) Order() model.Order {
	typ := model.OrderType(strings.ToUpper(strings.TrimSpace(p.Type)))
	if typ != model.OrderTypeRefund {
		typ = model.OrderTypeOrder
	}
	return model.Order{
		OrderNumber:      strings.TrimSpace(p.OrderNumber),
		Store:            p.Store,
		Type:             typ,
		Status:           model.OrderStatusPending,
		Amount:           p.Amount,
		OriginalCurrency: p.OriginalCurrency,
		AmountAUD:        p.AmountAUD,
		CustomerName:     p.CustomerName,
		MessageID:        p.MessageID,
		ShippingAddress:  p.ShippingAddress,
		RefundReason:     p.RefundReason,
		RefundAmount:     p.RefundAmount,
		ReceivedAt:       p.ReceivedAt,
	}
}

// NewClient создаёт HTTP-клиент для обращения к сервису разбора писем по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchOrders запрашивает заказы, полученные после since. Для ответа 429
// возвращается пауза из заголовка Retry-After.
func (c *Client) FetchOrders(ctx context.Context, since time.Time) ([]ParsedOrder, int, time.Duration, error) {
	if c == nil || c.baseURL == "" {
		return nil, 0, 0, fmt.Errorf("ingest client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	endpoint := base + "/api/orders"
	if !since.IsZero() {
		endpoint += "?" + url.Values{"since": {since.UTC().Format(time.RFC3339Nano)}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, resp.StatusCode, retryAfter, nil
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.StatusCode, 0, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result []ParsedOrder
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, 0, fmt.Errorf("decode response: %w", err)
	}

	return result, resp.StatusCode, 0, nil
}
