// Package repository содержит реализации хранилища заказов, каталога, заметок
// и трек-номеров: документное хранилище Firestore и PostgreSQL.
package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserExists возвращается при попытке создать пользователя с уже существующим email.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrOrderNotFound возвращается, если заказ с указанным идентификатором не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrNoteNotFound возвращается, если заметка не найдена.
	ErrNoteNotFound = errors.New("note not found")
	// ErrTrackingExists возвращается при повторной загрузке трек-номера для заказа.
	ErrTrackingExists = errors.New("tracking record already exists")
	// ErrTrackingNotFound возвращается, если запись о трек-номере не найдена.
	ErrTrackingNotFound = errors.New("tracking record not found")
	// ErrUnavailable возвращается при временной недоступности хранилища.
	ErrUnavailable = errors.New("store unavailable")
)

// OrderListQuery задаёт выборку заказов. Нулевые значения не ограничивают выборку.
type OrderListQuery struct {
	From  time.Time
	To    time.Time
	Limit int
}

// TrackingUpdate содержит изменяемые поля записи о трек-номере.
type TrackingUpdate struct {
	TrackingNumber *string
	Fulfilled      *bool
}

const (
	collectionOrders   = "email_orders"
	collectionProducts = "products"
	collectionNotes    = "notes"
	collectionTracking = "orders"
	collectionUsers    = "users"
)

const trackingLinkPrefix = "https://parcelsapp.com/en/tracking/"

// TrackingLink возвращает ссылку на страницу отслеживания отправления.
func TrackingLink(trackingNumber string) string {
	return trackingLinkPrefix + trackingNumber
}

var orderNamespace = uuid.MustParse("6f1c5c1e-2d7a-4f5e-9c1b-3a8e2b7d4c10")

// orderDocID возвращает идентификатор документа заказа. Для писем с messageId
// идентификатор детерминирован, поэтому повторная доставка письма не создаёт дубликат.
func orderDocID(messageID string) string {
	if messageID == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(orderNamespace, []byte(messageID)).String()
}
