// Package service реализует бизнес-логику бэк-офиса магазина на Etsy.
package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/liamroyal/etsy-software/internal/ingest"
	"github.com/liamroyal/etsy-software/internal/model"
	"github.com/liamroyal/etsy-software/internal/orderquery"
	"github.com/liamroyal/etsy-software/internal/repository"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, email string, passwordHash []byte, role model.Role) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	ListOrders(ctx context.Context, q repository.OrderListQuery) ([]model.Order, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	AddOrder(ctx context.Context, o model.Order) (string, bool, error)
	UpdateOrderFields(ctx context.Context, id string, fields map[string]any) error
	SubscribeOrders(ctx context.Context, q repository.OrderListQuery, fn func([]model.Order)) error

	ListProducts(ctx context.Context) ([]model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) (model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) (model.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListNotes(ctx context.Context) ([]model.Note, error)
	CreateNote(ctx context.Context, n model.Note) (model.Note, error)
	DeleteNote(ctx context.Context, id string) error

	ListTracking(ctx context.Context) ([]model.TrackingRecord, error)
	AddTracking(ctx context.Context, t model.TrackingRecord) error
	UpdateTracking(ctx context.Context, orderNumber string, u repository.TrackingUpdate) (model.TrackingRecord, error)
}

// IngestClient получает разобранные письма о заказах.
type IngestClient interface {
	FetchOrders(ctx context.Context, since time.Time) ([]ingest.ParsedOrder, int, time.Duration, error)
}

// Options задаёт необязательные параметры сервиса.
type Options struct {
	Logger         *zap.Logger
	CacheTTL       time.Duration
	OverdueDays    int
	IngestInterval time.Duration
	// Now подменяет текущее время в тестах.
	Now func() time.Time
}

// Service содержит бизнес-логику бэк-офиса.
type Service struct {
	repo         Repository
	ingestClient IngestClient
	logger       *zap.Logger
	now          func() time.Time

	orders *cache.Cache

	overdueDays    int
	ingestInterval time.Duration

	locksMu sync.Mutex
	locks   map[string]*orderLock

	ingestMu    sync.Mutex
	ingestSince time.Time
}

type orderLock struct {
	mu   sync.Mutex
	refs int
}

// NewService создаёт новый сервис с указанным репозиторием и клиентом сервиса разбора писем.
// Клиент может быть nil: тогда фоновая загрузка заказов не запускается.
func NewService(repo Repository, ingestClient IngestClient, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.OverdueDays <= 0 {
		opts.OverdueDays = orderquery.DefaultOverdueDays
	}
	if opts.IngestInterval <= 0 {
		opts.IngestInterval = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:           repo,
		ingestClient:   ingestClient,
		logger:         opts.Logger,
		now:            opts.Now,
		orders:         cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		overdueDays:    opts.OverdueDays,
		ingestInterval: opts.IngestInterval,
		locks:          make(map[string]*orderLock),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// OverdueDays возвращает порог просрочки заказа в днях.
func (s *Service) OverdueDays() int {
	return s.overdueDays
}

// Now возвращает текущее время сервиса.
func (s *Service) Now() time.Time {
	return s.now()
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, email, password string, role model.Role) (string, error) {
	email = normalizeEmail(email)
	id, err := s.repo.CreateUser(ctx, email, hashPassword(email, password), role)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return "", repository.ErrUserExists
		}
		return "", err
	}
	return id, nil
}

// AuthenticateUser проверяет email и пароль пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if subtle.ConstantTimeCompare(hashPassword(email, password), u.PasswordHash) != 1 {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

// lockOrder сериализует действия над одним заказом.
func (s *Service) lockOrder(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &orderLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}
