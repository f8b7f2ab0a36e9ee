package repository

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/liamroyal/etsy-software/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultPollInterval задаёт период опроса таблицы заказов для подписки.
const DefaultPollInterval = 5 * time.Second

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
// Заказы хранятся как JSONB-документы с теми же полями, что и в Firestore.
type PostgresRepository struct {
	pool         *pgxpool.Pool
	pollInterval time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool, pollInterval: DefaultPollInterval}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, email string, passwordHash []byte, role model.Role) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, role) VALUES ($1, $2, $3, $4)`,
		id, email, passwordHash, string(role),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, role, created_at FROM users WHERE email = $1`,
		email,
	)

	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.ParseRole(role)

	return &u, nil
}

// ListOrders возвращает заказы, отсортированные по дате получения (новые первыми).
func (r *PostgresRepository) ListOrders(ctx context.Context, q OrderListQuery) ([]model.Order, error) {
	var orders []model.Order
	err := r.withRetry(ctx, func() error {
		var err error
		orders, err = r.listOrders(ctx, q)
		return err
	})
	return orders, err
}

func (r *PostgresRepository) listOrders(ctx context.Context, q OrderListQuery) ([]model.Order, error) {
	var from, to *time.Time
	if !q.From.IsZero() {
		from = &q.From
	}
	if !q.To.IsZero() {
		to = &q.To
	}
	var limit *int
	if q.Limit > 0 {
		limit = &q.Limit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, doc
		 FROM email_orders
		 WHERE ($1::timestamptz IS NULL OR received_at >= $1)
		   AND ($2::timestamptz IS NULL OR received_at <= $2)
		 ORDER BY received_at DESC NULLS LAST
		 LIMIT $3`,
		from, to, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		o, err := decodeJSONOrder(id, raw)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

func decodeJSONOrder(id string, raw []byte) (model.Order, error) {
	var data map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return model.Order{}, fmt.Errorf("decode order %s: %w", id, err)
	}
	return DecodeOrderDocument(id, data), nil
}

// GetOrder возвращает заказ по идентификатору документа.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (model.Order, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM email_orders WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}
	return decodeJSONOrder(id, raw)
}

// AddOrder сохраняет заказ, полученный из почты, и сообщает, был ли он вставлен.
// Повторное письмо с тем же messageId игнорируется.
func (r *PostgresRepository) AddOrder(ctx context.Context, o model.Order) (string, bool, error) {
	id := orderDocID(o.MessageID)

	doc, err := json.Marshal(encodeFields(OrderDocument(o), jsonValue))
	if err != nil {
		return "", false, fmt.Errorf("encode order: %w", err)
	}

	var messageID *string
	if o.MessageID != "" {
		messageID = &o.MessageID
	}
	var receivedAt *time.Time
	if !o.ReceivedAt.IsZero() {
		receivedAt = &o.ReceivedAt
	}

	var inserted bool
	err = r.withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`INSERT INTO email_orders (id, message_id, received_at, doc)
			 VALUES ($1, $2, $3, $4::jsonb)
			 ON CONFLICT DO NOTHING`,
			id, messageID, receivedAt, doc,
		)
		if err != nil {
			return err
		}
		inserted = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("insert order: %w", err)
	}

	return id, inserted, nil
}

// UpdateOrderFields объединяет переданные поля с документом заказа.
func (r *PostgresRepository) UpdateOrderFields(ctx context.Context, id string, fields map[string]any) error {
	patch, err := json.Marshal(encodeFields(fields, jsonValue))
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	return r.withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE email_orders SET doc = doc || $2::jsonb, updated_at = now() WHERE id = $1`,
			id, patch,
		)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return nil
	})
}

// SubscribeOrders опрашивает таблицу заказов и вызывает fn с полным списком
// при каждом изменении. Блокируется до отмены ctx.
func (r *PostgresRepository) SubscribeOrders(ctx context.Context, q OrderListQuery, fn func([]model.Order)) error {
	var last string

	poll := func() error {
		var (
			count   int64
			updated *time.Time
		)
		err := r.pool.QueryRow(ctx,
			`SELECT count(*), max(updated_at) FROM email_orders`,
		).Scan(&count, &updated)
		if err != nil {
			return fmt.Errorf("poll orders: %w", err)
		}

		mark := fmt.Sprint(count)
		if updated != nil {
			mark += "/" + updated.UTC().Format(time.RFC3339Nano)
		}
		if mark == last {
			return nil
		}

		orders, err := r.ListOrders(ctx, q)
		if err != nil {
			return err
		}
		last = mark
		fn(orders)
		return nil
	}

	if err := poll(); err != nil {
		return err
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := poll(); err != nil && ctx.Err() == nil {
				return err
			}
		}
	}
}

const productColumns = `id, name, store, description, price::text, currency, image_url, category,
	listing_link, fulfillment_link, fulfillment_method, photo_url, photo_public_id, created_at, updated_at`

func scanProduct(row pgx.Row) (model.Product, error) {
	var (
		p     model.Product
		price string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Store, &p.Description, &price, &p.Currency, &p.ImageURL,
		&p.Category, &p.ListingLink, &p.FulfillmentLink, &p.FulfillmentMethod, &p.PhotoURL,
		&p.PhotoPublicID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return p, fmt.Errorf("parse price: %w", err)
	}
	return p, nil
}

// ListProducts возвращает товары каталога, новые первыми.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateProduct сохраняет новый товар и возвращает его с идентификатором.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	p.ID = uuid.NewString()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO products (id, name, store, description, price, currency, image_url, category,
			listing_link, fulfillment_link, fulfillment_method, photo_url, photo_public_id)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+productColumns,
		p.ID, p.Name, p.Store, p.Description, p.Price.String(), p.Currency, p.ImageURL, p.Category,
		p.ListingLink, p.FulfillmentLink, p.FulfillmentMethod, p.PhotoURL, p.PhotoPublicID,
	)

	created, err := scanProduct(row)
	if err != nil {
		return model.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return created, nil
}

// UpdateProduct перезаписывает поля товара.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE products SET name = $2, store = $3, description = $4, price = $5::numeric,
			currency = $6, image_url = $7, category = $8, listing_link = $9, fulfillment_link = $10,
			fulfillment_method = $11, photo_url = $12, photo_public_id = $13, updated_at = now()
		 WHERE id = $1
		 RETURNING `+productColumns,
		p.ID, p.Name, p.Store, p.Description, p.Price.String(), p.Currency, p.ImageURL, p.Category,
		p.ListingLink, p.FulfillmentLink, p.FulfillmentMethod, p.PhotoURL, p.PhotoPublicID,
	)

	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, p.ID)
		}
		return model.Product{}, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

// DeleteProduct удаляет товар.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return nil
}

// ListNotes возвращает заметки, новые первыми.
func (r *PostgresRepository) ListNotes(ctx context.Context) ([]model.Note, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, body, created_at FROM notes ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select notes: %w", err)
	}
	defer rows.Close()

	var res []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		res = append(res, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateNote сохраняет заметку.
func (r *PostgresRepository) CreateNote(ctx context.Context, n model.Note) (model.Note, error) {
	n.ID = uuid.NewString()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notes (id, title, body) VALUES ($1, $2, $3) RETURNING created_at`,
		n.ID, n.Title, n.Body,
	).Scan(&n.CreatedAt)
	if err != nil {
		return model.Note{}, fmt.Errorf("insert note: %w", err)
	}
	return n, nil
}

// DeleteNote удаляет заметку.
func (r *PostgresRepository) DeleteNote(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	return nil
}

const trackingColumns = `order_number, tracking_number, tracking_link, fulfilled, date_added, last_updated`

func scanTracking(row pgx.Row) (model.TrackingRecord, error) {
	var t model.TrackingRecord
	err := row.Scan(&t.OrderNumber, &t.TrackingNumber, &t.TrackingLink, &t.Fulfilled, &t.DateAdded, &t.LastUpdated)
	return t, err
}

// ListTracking возвращает записи о трек-номерах, новые первыми.
func (r *PostgresRepository) ListTracking(ctx context.Context) ([]model.TrackingRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+trackingColumns+` FROM tracking ORDER BY date_added DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select tracking: %w", err)
	}
	defer rows.Close()

	var res []model.TrackingRecord
	for rows.Next() {
		t, err := scanTracking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracking: %w", err)
		}
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AddTracking сохраняет трек-номер заказа. Если для заказа уже есть запись,
// возвращается ErrTrackingExists.
func (r *PostgresRepository) AddTracking(ctx context.Context, t model.TrackingRecord) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO tracking (order_number, tracking_number, tracking_link, fulfilled)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (order_number) DO NOTHING`,
		t.OrderNumber, t.TrackingNumber, TrackingLink(t.TrackingNumber), t.Fulfilled,
	)
	if err != nil {
		return fmt.Errorf("insert tracking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrTrackingExists, t.OrderNumber)
	}
	return nil
}

// UpdateTracking изменяет трек-номер или отметку о выполнении.
func (r *PostgresRepository) UpdateTracking(ctx context.Context, orderNumber string, u TrackingUpdate) (model.TrackingRecord, error) {
	var number, link *string
	if u.TrackingNumber != nil {
		l := TrackingLink(*u.TrackingNumber)
		number, link = u.TrackingNumber, &l
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE tracking
		 SET tracking_number = COALESCE($2, tracking_number),
		     tracking_link = COALESCE($3, tracking_link),
		     fulfilled = COALESCE($4, fulfilled),
		     last_updated = now()
		 WHERE order_number = $1
		 RETURNING `+trackingColumns,
		orderNumber, number, link, u.Fulfilled,
	)

	t, err := scanTracking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TrackingRecord{}, fmt.Errorf("%w: %s", ErrTrackingNotFound, orderNumber)
		}
		return model.TrackingRecord{}, fmt.Errorf("update tracking: %w", err)
	}
	return t, nil
}
