package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/liamroyal/etsy-software/internal/model"
)

const (
	firestoreDialTimeout = 10 * time.Second
	envEmulatorHost      = "FIRESTORE_EMULATOR_HOST"
)

// FirestoreConfig задаёт параметры подключения к Firestore.
type FirestoreConfig struct {
	ProjectID       string
	EmulatorHost    string
	CredentialsFile string
}

// FirestoreRepository хранит данные в Firestore в тех же коллекциях, что
// пишет почтовый парсер.
type FirestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository создаёт клиент Firestore. При заданном EmulatorHost
// подключается к эмулятору без аутентификации.
func NewFirestoreRepository(ctx context.Context, cfg FirestoreConfig) (*FirestoreRepository, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errors.New("firestore: project id is required")
	}

	var opts []option.ClientOption
	if host := strings.TrimSpace(cfg.EmulatorHost); host != "" {
		if os.Getenv(envEmulatorHost) == "" {
			_ = os.Setenv(envEmulatorHost, host)
		}
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	dialCtx, cancel := context.WithTimeout(ctx, firestoreDialTimeout)
	defer cancel()

	client, err := firestore.NewClient(dialCtx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}
	return &FirestoreRepository{client: client}, nil
}

// wrapFirestoreError переводит коды gRPC в ошибки репозитория. Отмена
// контекста передаётся как есть.
func wrapFirestoreError(op string, err, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	switch status.Code(err) {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.NotFound:
		if notFound != nil {
			return fmt.Errorf("%s: %w", op, notFound)
		}
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal:
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Close закрывает клиент Firestore.
func (r *FirestoreRepository) Close() error {
	return r.client.Close()
}

type userDocument struct {
	Email        string    `firestore:"email"`
	PasswordHash []byte    `firestore:"passwordHash"`
	Role         string    `firestore:"role"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

// CreateUser создаёт пользователя, если email ещё не занят.
func (r *FirestoreRepository) CreateUser(ctx context.Context, email string, passwordHash []byte, role model.Role) (string, error) {
	coll := r.client.Collection(collectionUsers)
	id := uuid.NewString()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.Documents(coll.Where("email", "==", email).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(snaps) > 0 {
			return fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return tx.Create(coll.Doc(id), userDocument{
			Email:        email,
			PasswordHash: passwordHash,
			Role:         string(role),
			CreatedAt:    time.Now().UTC(),
		})
	})
	if errors.Is(err, ErrUserExists) {
		return "", err
	}
	if err != nil {
		return "", wrapFirestoreError("users.create", err, nil)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *FirestoreRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	iter := r.client.Collection(collectionUsers).Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, wrapFirestoreError("users.get", err, ErrUserNotFound)
	}

	var doc userDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("users.get: decode: %w", err)
	}
	return &model.User{
		ID:           snap.Ref.ID,
		Email:        doc.Email,
		Role:         model.ParseRole(doc.Role),
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (r *FirestoreRepository) ordersQuery(q OrderListQuery) firestore.Query {
	query := r.client.Collection(collectionOrders).OrderBy(model.FieldReceivedAt, firestore.Desc)
	if !q.From.IsZero() {
		query = query.Where(model.FieldReceivedAt, ">=", q.From)
	}
	if !q.To.IsZero() {
		query = query.Where(model.FieldReceivedAt, "<=", q.To)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query
}

func decodeOrderSnapshots(snaps []*firestore.DocumentSnapshot) []model.Order {
	orders := make([]model.Order, 0, len(snaps))
	for _, snap := range snaps {
		orders = append(orders, DecodeOrderDocument(snap.Ref.ID, snap.Data()))
	}
	return orders
}

// ListOrders возвращает заказы, отсортированные по дате получения (новые первыми).
func (r *FirestoreRepository) ListOrders(ctx context.Context, q OrderListQuery) ([]model.Order, error) {
	snaps, err := r.ordersQuery(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, wrapFirestoreError("orders.list", err, nil)
	}
	return decodeOrderSnapshots(snaps), nil
}

// GetOrder возвращает заказ по идентификатору документа.
func (r *FirestoreRepository) GetOrder(ctx context.Context, id string) (model.Order, error) {
	snap, err := r.client.Collection(collectionOrders).Doc(id).Get(ctx)
	if err != nil {
		return model.Order{}, wrapFirestoreError("orders.get", err, ErrOrderNotFound)
	}
	return DecodeOrderDocument(snap.Ref.ID, snap.Data()), nil
}

// AddOrder сохраняет заказ, полученный из почты, и сообщает, был ли он вставлен.
func (r *FirestoreRepository) AddOrder(ctx context.Context, o model.Order) (string, bool, error) {
	id := orderDocID(o.MessageID)
	_, err := r.client.Collection(collectionOrders).Doc(id).
		Create(ctx, encodeFields(OrderDocument(o), firestoreValue))
	if status.Code(err) == codes.AlreadyExists {
		return id, false, nil
	}
	if err != nil {
		return "", false, wrapFirestoreError("orders.add", err, nil)
	}
	return id, true, nil
}

// UpdateOrderFields записывает поля документа заказа. Документ должен существовать.
func (r *FirestoreRepository) UpdateOrderFields(ctx context.Context, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range encodeFields(fields, firestoreValue) {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}

	_, err := r.client.Collection(collectionOrders).Doc(id).Update(ctx, updates)
	return wrapFirestoreError("orders.update", err, ErrOrderNotFound)
}

// SubscribeOrders вызывает fn с полным списком заказов при каждом изменении
// коллекции. Блокируется до отмены ctx.
func (r *FirestoreRepository) SubscribeOrders(ctx context.Context, q OrderListQuery, fn func([]model.Order)) error {
	it := r.ordersQuery(q).Snapshots(ctx)
	defer it.Stop()

	for {
		qs, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return wrapFirestoreError("orders.subscribe", err, nil)
		}

		snaps, err := qs.Documents.GetAll()
		if err != nil {
			return wrapFirestoreError("orders.subscribe", err, nil)
		}
		fn(decodeOrderSnapshots(snaps))
	}
}

type productDocument struct {
	Name              string    `firestore:"name"`
	Store             string    `firestore:"store"`
	Description       string    `firestore:"description"`
	Price             float64   `firestore:"price"`
	Currency          string    `firestore:"currency"`
	ImageURL          string    `firestore:"imageUrl"`
	Category          string    `firestore:"category"`
	ListingLink       string    `firestore:"listingLink"`
	FulfillmentLink   string    `firestore:"fulfillmentLink"`
	FulfillmentMethod string    `firestore:"fulfillmentMethod"`
	PhotoURL          string    `firestore:"photoUrl"`
	PhotoPublicID     string    `firestore:"photoPublicId"`
	CreatedAt         time.Time `firestore:"createdAt"`
	UpdatedAt         time.Time `firestore:"updatedAt"`
}

func newProductDocument(p model.Product) productDocument {
	return productDocument{
		Name:              p.Name,
		Store:             p.Store,
		Description:       p.Description,
		Price:             p.Price.InexactFloat64(),
		Currency:          p.Currency,
		ImageURL:          p.ImageURL,
		Category:          p.Category,
		ListingLink:       p.ListingLink,
		FulfillmentLink:   p.FulfillmentLink,
		FulfillmentMethod: p.FulfillmentMethod,
		PhotoURL:          p.PhotoURL,
		PhotoPublicID:     p.PhotoPublicID,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func (d productDocument) product(id string) model.Product {
	return model.Product{
		ID:                id,
		Name:              d.Name,
		Store:             d.Store,
		Description:       d.Description,
		Price:             decimal.NewFromFloat(d.Price),
		Currency:          d.Currency,
		ImageURL:          d.ImageURL,
		Category:          d.Category,
		ListingLink:       d.ListingLink,
		FulfillmentLink:   d.FulfillmentLink,
		FulfillmentMethod: d.FulfillmentMethod,
		PhotoURL:          d.PhotoURL,
		PhotoPublicID:     d.PhotoPublicID,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// ListProducts возвращает товары каталога, новые первыми.
func (r *FirestoreRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	iter := r.client.Collection(collectionProducts).OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var res []model.Product
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, wrapFirestoreError("products.list", err, nil)
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("products.list: decode %s: %w", snap.Ref.ID, err)
		}
		res = append(res, doc.product(snap.Ref.ID))
	}
	return res, nil
}

// CreateProduct сохраняет новый товар и возвращает его с идентификатором.
func (r *FirestoreRepository) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	ref := r.client.Collection(collectionProducts).NewDoc()
	if _, err := ref.Create(ctx, newProductDocument(p)); err != nil {
		return model.Product{}, wrapFirestoreError("products.create", err, nil)
	}
	p.ID = ref.ID
	return p, nil
}

// UpdateProduct перезаписывает поля товара, сохраняя дату создания.
func (r *FirestoreRepository) UpdateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	ref := r.client.Collection(collectionProducts).Doc(p.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var existing productDocument
		if err := snap.DataTo(&existing); err != nil {
			return err
		}
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = time.Now().UTC()
		return tx.Set(ref, newProductDocument(p))
	})
	if err != nil {
		return model.Product{}, wrapFirestoreError("products.update", err, ErrProductNotFound)
	}
	return p, nil
}

// DeleteProduct удаляет товар.
func (r *FirestoreRepository) DeleteProduct(ctx context.Context, id string) error {
	_, err := r.client.Collection(collectionProducts).Doc(id).Delete(ctx, firestore.Exists)
	return wrapFirestoreError("products.delete", err, ErrProductNotFound)
}

type noteDocument struct {
	Title     string    `firestore:"title"`
	Body      string    `firestore:"body"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// ListNotes возвращает заметки, новые первыми.
func (r *FirestoreRepository) ListNotes(ctx context.Context) ([]model.Note, error) {
	snaps, err := r.client.Collection(collectionNotes).OrderBy("createdAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, wrapFirestoreError("notes.list", err, nil)
	}

	res := make([]model.Note, 0, len(snaps))
	for _, snap := range snaps {
		var doc noteDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("notes.list: decode %s: %w", snap.Ref.ID, err)
		}
		res = append(res, model.Note{ID: snap.Ref.ID, Title: doc.Title, Body: doc.Body, CreatedAt: doc.CreatedAt})
	}
	return res, nil
}

// CreateNote сохраняет заметку.
func (r *FirestoreRepository) CreateNote(ctx context.Context, n model.Note) (model.Note, error) {
	n.CreatedAt = time.Now().UTC()
	ref := r.client.Collection(collectionNotes).NewDoc()
	if _, err := ref.Create(ctx, noteDocument{Title: n.Title, Body: n.Body, CreatedAt: n.CreatedAt}); err != nil {
		return model.Note{}, wrapFirestoreError("notes.create", err, nil)
	}
	n.ID = ref.ID
	return n, nil
}

// DeleteNote удаляет заметку.
func (r *FirestoreRepository) DeleteNote(ctx context.Context, id string) error {
	_, err := r.client.Collection(collectionNotes).Doc(id).Delete(ctx, firestore.Exists)
	return wrapFirestoreError("notes.delete", err, ErrNoteNotFound)
}

type trackingDocument struct {
	OrderNumber    string    `firestore:"orderNumber"`
	TrackingNumber string    `firestore:"trackingNumber"`
	TrackingLink   string    `firestore:"trackingLink"`
	Fulfilled      bool      `firestore:"fulfilled"`
	DateAdded      time.Time `firestore:"dateAdded"`
	LastUpdated    time.Time `firestore:"lastUpdated"`
}

func (d trackingDocument) record() model.TrackingRecord {
	return model.TrackingRecord{
		OrderNumber:    d.OrderNumber,
		TrackingNumber: d.TrackingNumber,
		TrackingLink:   d.TrackingLink,
		Fulfilled:      d.Fulfilled,
		DateAdded:      d.DateAdded,
		LastUpdated:    d.LastUpdated,
	}
}

// ListTracking возвращает записи о трек-номерах, новые первыми.
func (r *FirestoreRepository) ListTracking(ctx context.Context) ([]model.TrackingRecord, error) {
	snaps, err := r.client.Collection(collectionTracking).OrderBy("dateAdded", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, wrapFirestoreError("tracking.list", err, nil)
	}

	res := make([]model.TrackingRecord, 0, len(snaps))
	for _, snap := range snaps {
		var doc trackingDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("tracking.list: decode %s: %w", snap.Ref.ID, err)
		}
		res = append(res, doc.record())
	}
	return res, nil
}

// AddTracking сохраняет трек-номер заказа. Документ называется по номеру заказа,
// поэтому повторная запись возвращает ErrTrackingExists.
func (r *FirestoreRepository) AddTracking(ctx context.Context, t model.TrackingRecord) error {
	now := time.Now().UTC()
	_, err := r.client.Collection(collectionTracking).Doc(t.OrderNumber).Create(ctx, trackingDocument{
		OrderNumber:    t.OrderNumber,
		TrackingNumber: t.TrackingNumber,
		TrackingLink:   TrackingLink(t.TrackingNumber),
		Fulfilled:      t.Fulfilled,
		DateAdded:      now,
		LastUpdated:    now,
	})
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("%w: %s", ErrTrackingExists, t.OrderNumber)
	}
	return wrapFirestoreError("tracking.add", err, nil)
}

// UpdateTracking изменяет трек-номер или отметку о выполнении.
func (r *FirestoreRepository) UpdateTracking(ctx context.Context, orderNumber string, u TrackingUpdate) (model.TrackingRecord, error) {
	updates := []firestore.Update{{Path: "lastUpdated", Value: time.Now().UTC()}}
	if u.TrackingNumber != nil {
		updates = append(updates,
			firestore.Update{Path: "trackingNumber", Value: *u.TrackingNumber},
			firestore.Update{Path: "trackingLink", Value: TrackingLink(*u.TrackingNumber)},
		)
	}
	if u.Fulfilled != nil {
		updates = append(updates, firestore.Update{Path: "fulfilled", Value: *u.Fulfilled})
	}

	ref := r.client.Collection(collectionTracking).Doc(orderNumber)
	if _, err := ref.Update(ctx, updates); err != nil {
		return model.TrackingRecord{}, wrapFirestoreError("tracking.update", err, ErrTrackingNotFound)
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return model.TrackingRecord{}, wrapFirestoreError("tracking.get", err, ErrTrackingNotFound)
	}
	var doc trackingDocument
	if err := snap.DataTo(&doc); err != nil {
		return model.TrackingRecord{}, fmt.Errorf("tracking.get: decode: %w", err)
	}
	return doc.record(), nil
}
