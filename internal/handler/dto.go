package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamroyal/etsy-software/internal/model"
	"github.com/liamroyal/etsy-software/internal/orderquery"
)

type orderResponse struct {
	ID              string            `json:"id"`
	OrderNumber     string            `json:"orderNumber"`
	Store           string            `json:"store,omitempty"`
	Type            model.OrderType   `json:"type"`
	Status          model.OrderStatus `json:"status"`
	DisplayStatus   model.OrderStatus `json:"displayStatus"`
	StatusLabel     string            `json:"statusLabel"`
	CustomerName    string            `json:"customerName,omitempty"`
	MessageID       string            `json:"messageId,omitempty"`
	ShippingAddress string            `json:"shippingAddress,omitempty"`

	Amount           decimal.NullDecimal `json:"amount"`
	OriginalCurrency string              `json:"originalCurrency,omitempty"`
	AmountAUD        decimal.NullDecimal `json:"amountAUD"`

	EtsyFeePercentage decimal.NullDecimal `json:"etsyFeePercentage"`
	EtsyFeeAmount     decimal.NullDecimal `json:"etsyFeeAmount"`
	NetRevenue        decimal.NullDecimal `json:"netRevenue"`
	FulfillmentCost   decimal.NullDecimal `json:"fulfillmentCost"`
	RefundAmount      decimal.NullDecimal `json:"refundAmount"`
	RefundPercentage  decimal.NullDecimal `json:"refundPercentage"`

	OriginalAmountAUD       decimal.NullDecimal `json:"originalAmountAUD"`
	OriginalEtsyFeeAmount   decimal.NullDecimal `json:"originalEtsyFeeAmount"`
	OriginalNetRevenue      decimal.NullDecimal `json:"originalNetRevenue"`
	OriginalFulfillmentCost decimal.NullDecimal `json:"originalFulfillmentCost"`

	FulfilledAt            string `json:"fulfilledAt,omitempty"`
	IssueDescription       string `json:"issueDescription,omitempty"`
	WasEverFlagged         bool   `json:"wasEverFlagged"`
	ResolvedDescription    string `json:"resolvedDescription,omitempty"`
	RefundReason           string `json:"refundReason,omitempty"`
	CustomerReturningItems bool   `json:"customerReturningItems"`

	ReceivedAt *time.Time `json:"receivedAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
	RefundedAt *time.Time `json:"refundedAt,omitempty"`

	AgeDays  int    `json:"ageDays"`
	Received string `json:"received,omitempty"`

	DaysSinceFulfillment *int   `json:"daysSinceFulfillment,omitempty"`
	Fulfilled            string `json:"fulfilled,omitempty"`

	TypeErrors map[string]string `json:"typeErrors,omitempty"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func newOrderResponse(o model.Order, now time.Time, overdueDays int) orderResponse {
	display := orderquery.DisplayStatus(o, now, overdueDays)

	resp := orderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		Store:           o.Store,
		Type:            o.Type,
		Status:          o.Status,
		DisplayStatus:   display,
		StatusLabel:     display.Label(),
		CustomerName:    o.CustomerName,
		MessageID:       o.MessageID,
		ShippingAddress: o.ShippingAddress,

		Amount:           o.Amount,
		OriginalCurrency: o.OriginalCurrency,
		AmountAUD:        o.AmountAUD,

		EtsyFeePercentage: o.EtsyFeePercentage,
		EtsyFeeAmount:     o.EtsyFeeAmount,
		NetRevenue:        o.NetRevenue,
		FulfillmentCost:   o.FulfillmentCost,
		RefundAmount:      o.RefundAmount,
		RefundPercentage:  o.RefundPercentage,

		OriginalAmountAUD:       o.OriginalAmountAUD,
		OriginalEtsyFeeAmount:   o.OriginalEtsyFeeAmount,
		OriginalNetRevenue:      o.OriginalNetRevenue,
		OriginalFulfillmentCost: o.OriginalFulfillmentCost,

		FulfilledAt:            o.FulfilledAt,
		IssueDescription:       o.IssueDescription,
		WasEverFlagged:         o.WasEverFlagged,
		ResolvedDescription:    o.ResolvedDescription,
		RefundReason:           o.RefundReason,
		CustomerReturningItems: o.CustomerReturningItems,

		ReceivedAt: timePtr(o.ReceivedAt),
		UpdatedAt:  timePtr(o.UpdatedAt),
		RefundedAt: timePtr(o.RefundedAt),

		TypeErrors: o.TypeErrors,
	}

	if !o.ReceivedAt.IsZero() {
		resp.AgeDays = orderquery.AgeDays(o, now)
		resp.Received = orderquery.DaysAgoText(resp.AgeDays)
	}
	if orderquery.IsProcessed(o) && !o.UpdatedAt.IsZero() {
		days := orderquery.DaysSinceFulfillment(o, now)
		resp.DaysSinceFulfillment = &days
		resp.Fulfilled = orderquery.DaysAgoText(days)
	}
	return resp
}

type productRequest struct {
	Name              string          `json:"name"`
	Store             string          `json:"store"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	Currency          string          `json:"currency"`
	ImageURL          string          `json:"imageUrl"`
	Category          string          `json:"category"`
	ListingLink       string          `json:"listingLink"`
	FulfillmentLink   string          `json:"fulfillmentLink"`
	FulfillmentMethod string          `json:"fulfillmentMethod"`
	PhotoURL          string          `json:"photoUrl"`
	PhotoPublicID     string          `json:"photoPublicId"`
}

func (p productRequest) product(id string) model.Product {
	return model.Product{
		ID:                id,
		Name:              p.Name,
		Store:             p.Store,
		Description:       p.Description,
		Price:             p.Price,
		Currency:          p.Currency,
		ImageURL:          p.ImageURL,
		Category:          p.Category,
		ListingLink:       p.ListingLink,
		FulfillmentLink:   p.FulfillmentLink,
		FulfillmentMethod: p.FulfillmentMethod,
		PhotoURL:          p.PhotoURL,
		PhotoPublicID:     p.PhotoPublicID,
	}
}

type productResponse struct {
	ID string `json:"id"`
	productRequest
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func newProductResponse(p model.Product) productResponse {
	return productResponse{
		ID: p.ID,
		productRequest: productRequest{
			Name:              p.Name,
			Store:             p.Store,
			Description:       p.Description,
			Price:             p.Price,
			Currency:          p.Currency,
			ImageURL:          p.ImageURL,
			Category:          p.Category,
			ListingLink:       p.ListingLink,
			FulfillmentLink:   p.FulfillmentLink,
			FulfillmentMethod: p.FulfillmentMethod,
			PhotoURL:          p.PhotoURL,
			PhotoPublicID:     p.PhotoPublicID,
		},
		CreatedAt: timePtr(p.CreatedAt),
		UpdatedAt: timePtr(p.UpdatedAt),
	}
}

type noteResponse struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type trackingResponse struct {
	OrderNumber    string     `json:"orderNumber"`
	TrackingNumber string     `json:"trackingNumber"`
	TrackingLink   string     `json:"trackingLink"`
	Fulfilled      bool       `json:"fulfilled"`
	DateAdded      *time.Time `json:"dateAdded,omitempty"`
	LastUpdated    *time.Time `json:"lastUpdated,omitempty"`
}

func newTrackingResponse(t model.TrackingRecord) trackingResponse {
	return trackingResponse{
		OrderNumber:    t.OrderNumber,
		TrackingNumber: t.TrackingNumber,
		TrackingLink:   t.TrackingLink,
		Fulfilled:      t.Fulfilled,
		DateAdded:      timePtr(t.DateAdded),
		LastUpdated:    timePtr(t.LastUpdated),
	}
}
