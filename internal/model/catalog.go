package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает товар каталога вместе со ссылками на листинг и поставщика.
type Product struct {
	ID                string
	Name              string
	Store             string
	Description       string
	Price             decimal.Decimal
	Currency          string
	ImageURL          string
	Category          string
	ListingLink       string
	FulfillmentLink   string
	FulfillmentMethod string
	PhotoURL          string
	PhotoPublicID     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProductFilter задаёт условия выборки товаров каталога.
type ProductFilter struct {
	Search            string
	MinPrice          decimal.NullDecimal
	MaxPrice          decimal.NullDecimal
	FulfillmentMethod string
}

// Note описывает заметку на доске задач. Выполненная заметка удаляется.
type Note struct {
	ID        string
	Title     string
	Body      string
	CreatedAt time.Time
}

// TrackingRecord связывает номер заказа с трек-номером отправления.
type TrackingRecord struct {
	OrderNumber    string
	TrackingNumber string
	TrackingLink   string
	Fulfilled      bool
	DateAdded      time.Time
	LastUpdated    time.Time
}

// InvalidTrackingRow описывает строку таблицы, не прошедшую проверку.
type InvalidTrackingRow struct {
	Row            int      `json:"row"`
	OrderNumber    string   `json:"orderNumber,omitempty"`
	TrackingNumber string   `json:"trackingNumber,omitempty"`
	Errors         []string `json:"errors"`
}

// TrackingImport содержит результат разбора загруженной таблицы трек-номеров.
type TrackingImport struct {
	Valid   []TrackingRecord
	Invalid []InvalidTrackingRow
}
