package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ridloal/agri-traceability/internal/identity"
	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/platform/metrics"
	"github.com/ridloal/agri-traceability/internal/product/domain"
	"github.com/ridloal/agri-traceability/internal/product/repository"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("role is not allowed to perform this action")
	ErrInvalidState = errors.New("product is not in a state that allows this action")
	// ErrAlreadyVoted adalah kasus khusus ErrInvalidState: errors.Is cocok untuk keduanya.
	ErrAlreadyVoted   = fmt.Errorf("%w: validator has already voted on this product", ErrInvalidState)
	ErrQRCodeConflict = errors.New("could not generate a unique qr code")
)

type ProductService interface {
	CreateProduct(ctx context.Context, caller identity.Principal, req domain.CreateProductRequest) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductByQRCode(ctx context.Context, code string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListVotes(ctx context.Context, productID string) ([]domain.Vote, error)

	CastVote(ctx context.Context, caller identity.Principal, productID string, req domain.CastVoteRequest) (*domain.Product, error)
	AcceptForDistribution(ctx context.Context, caller identity.Principal, productID string) (*domain.Product, error)
	AcceptForRetail(ctx context.Context, caller identity.Principal, productID string) (*domain.Product, error)
}

// Policy holds the deployment-level rules of the registry.
type Policy struct {
	TotalValidators int
	// AllowPendingDistribution mengizinkan distributor menerima produk yang
	// belum disetujui validator.
	AllowPendingDistribution bool
	QRCodeMaxAttempts        int
}

func DefaultPolicy() Policy {
	return Policy{TotalValidators: 5, AllowPendingDistribution: true, QRCodeMaxAttempts: 5}
}

// LookupCache is the cache-aside store for QR lookups. *cache.RedisCache
// satisfies it.
type LookupCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

type Option func(*productServiceImpl)

func WithCache(c LookupCache) Option {
	return func(s *productServiceImpl) { s.cache = c }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(s *productServiceImpl) { s.metrics = m }
}

func WithQRCodeGenerator(g QRCodeGenerator) Option {
	return func(s *productServiceImpl) { s.newQRCode = g }
}

func WithClock(now func() time.Time) Option {
	return func(s *productServiceImpl) { s.now = now }
}

type productServiceImpl struct {
	repo      repository.ProductRepository
	directory ProducerDirectory
	policy    Policy

	cache     LookupCache
	metrics   *metrics.Registry
	newQRCode QRCodeGenerator
	now       func() time.Time
	lookups   singleflight.Group
}

func NewProductService(repo repository.ProductRepository, directory ProducerDirectory, policy Policy, opts ...Option) (ProductService, error) {
	if policy.TotalValidators < 1 {
		return nil, fmt.Errorf("total validators must be at least 1, got %d", policy.TotalValidators)
	}
	if policy.QRCodeMaxAttempts < 1 {
		policy.QRCodeMaxAttempts = 1
	}

	s := &productServiceImpl{
		repo:      repo,
		directory: directory,
		policy:    policy,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newQRCode == nil {
		gen, err := NewQRCodeGenerator(s.now)
		if err != nil {
			return nil, err
		}
		s.newQRCode = gen
	}
	return s, nil
}

// mutate runs change under the product lock and translates store errors into
// service errors. Cache entries for the product are dropped on success.
func (s *productServiceImpl) mutate(ctx context.Context, productID string, change repository.ChangeFunc) (*domain.Product, error) {
	p, err := s.repo.UpdateProductLocked(ctx, productID, change)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateVote):
			return nil, ErrAlreadyVoted
		case errors.Is(err, repository.ErrVersionConflict):
			logger.Error("mutate: concurrent modification despite row lock", err, logger.Fields{"product_id": productID})
			return nil, err
		}
		return nil, err
	}
	s.invalidate(ctx, p.QRCode)
	return p, nil
}

func (s *productServiceImpl) invalidate(ctx context.Context, qrCode string) {
	if s.cache == nil || qrCode == "" {
		return
	}
	if err := s.cache.Delete(ctx, qrCode); err != nil {
		logger.Warn("failed to invalidate qr cache", logger.Fields{"qr_code": qrCode, "error": err})
	}
}

func (s *productServiceImpl) countTransition(to domain.Status) {
	if s.metrics != nil {
		s.metrics.TransitionsTotal.WithLabelValues(string(to)).Inc()
	}
}

func forbidden(caller identity.Principal, action string) error {
	return fmt.Errorf("%w: %s cannot %s", ErrForbidden, caller.Role, action)
}

func invalidState(p *domain.Product, action string) error {
	return fmt.Errorf("%w: cannot %s a product in status %s", ErrInvalidState, action, p.Status)
}
