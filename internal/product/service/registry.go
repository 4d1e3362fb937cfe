package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"

	"github.com/ridloal/agri-traceability/internal/identity"
	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/product/domain"
	"github.com/ridloal/agri-traceability/internal/product/repository"
)

// QRCodeGenerator returns a fresh candidate code. Uniqueness is enforced by
// the store, not by the generator.
type QRCodeGenerator func() (string, error)

const (
	qrAlphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	qrSuffixLength = 10
)

// NewQRCodeGenerator builds codes of the form QR-<millis base36>-<nanoid>.
func NewQRCodeGenerator(now func() time.Time) (QRCodeGenerator, error) {
	suffix, err := nanoid.CustomASCII(qrAlphabet, qrSuffixLength)
	if err != nil {
		return nil, fmt.Errorf("failed to build qr code generator: %w", err)
	}
	return func() (string, error) {
		ts := strings.ToUpper(strconv.FormatInt(now().UnixMilli(), 36))
		return "QR-" + ts + "-" + suffix(), nil
	}, nil
}

func (s *productServiceImpl) CreateProduct(ctx context.Context, caller identity.Principal, req domain.CreateProductRequest) (*domain.Product, error) {
	if !caller.Is(identity.RoleProducer) {
		return nil, forbidden(caller, "create products")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if req.Quantity == nil {
		return nil, fmt.Errorf("%w: quantity is required", ErrValidation)
	}
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be a positive number", ErrValidation)
	}
	if req.PricePerKg == nil {
		return nil, fmt.Errorf("%w: price_per_kg is required", ErrValidation)
	}
	if !req.PricePerKg.IsPositive() {
		return nil, fmt.Errorf("%w: price_per_kg must be a positive number", ErrValidation)
	}

	now := s.now()
	harvest := now.Format(domain.HarvestDateLayout)
	if req.HarvestDate != nil && strings.TrimSpace(*req.HarvestDate) != "" {
		d, err := time.Parse(domain.HarvestDateLayout, strings.TrimSpace(*req.HarvestDate))
		if err != nil {
			return nil, fmt.Errorf("%w: harvest_date must be formatted as YYYY-MM-DD", ErrValidation)
		}
		harvest = d.Format(domain.HarvestDateLayout)
	}

	product := &domain.Product{
		ID:              uuid.NewString(),
		OwnerID:         caller.SubjectID,
		Name:            name,
		Description:     req.Description,
		Quantity:        *req.Quantity,
		PricePerKg:      *req.PricePerKg,
		HarvestDate:     harvest,
		Status:          domain.StatusPending,
		TotalValidators: s.policy.TotalValidators,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// Satu-satunya retry internal: tabrakan qr_code di store.
	for attempt := 1; attempt <= s.policy.QRCodeMaxAttempts; attempt++ {
		code, err := s.newQRCode()
		if err != nil {
			return nil, err
		}
		product.QRCode = code

		err = s.repo.CreateProduct(ctx, product)
		if err == nil {
			logger.Info("product created", logger.Fields{"product_id": product.ID, "owner_id": product.OwnerID, "qr_code": code})
			return product, nil
		}
		if !errors.Is(err, repository.ErrQRCodeTaken) {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.QRCollisions.Inc()
		}
		logger.Warn("qr code collision, retrying", logger.Fields{"attempt": attempt, "qr_code": code})
	}

	err := fmt.Errorf("%w after %d attempts", ErrQRCodeConflict, s.policy.QRCodeMaxAttempts)
	logger.Error("CreateProduct: giving up", err, logger.Fields{"owner_id": caller.SubjectID})
	return nil, err
}

func (s *productServiceImpl) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

func (s *productServiceImpl) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}
