package mocks

import (
	"context"
	"errors"

	pDomain "github.com/ridloal/agri-traceability/internal/product/domain"
	pRepo "github.com/ridloal/agri-traceability/internal/product/repository"

	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a testify mock. UpdateProductLocked menjalankan
// ChangeFunc terhadap produk yang dikembalikan oleh expectation-nya, jadi
// logika service tetap teruji.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) CreateProduct(ctx context.Context, p *pDomain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductRepository) GetProductByID(ctx context.Context, id string) (*pDomain.Product, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*pDomain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) GetProductByQRCode(ctx context.Context, code string) (*pDomain.Product, error) {
	args := m.Called(ctx, code)
	if res := args.Get(0); res != nil {
		return res.(*pDomain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) ListProducts(ctx context.Context) ([]pDomain.Product, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]pDomain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) ListVotes(ctx context.Context, productID string) ([]pDomain.Vote, error) {
	args := m.Called(ctx, productID)
	if res := args.Get(0); res != nil {
		return res.([]pDomain.Vote), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) UpdateProductLocked(ctx context.Context, id string, change pRepo.ChangeFunc) (*pDomain.Product, error) {
	args := m.Called(ctx, id)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	current := args.Get(0).(*pDomain.Product)
	next := current.Clone()
	if _, err := change(&next); err != nil {
		if errors.Is(err, pRepo.ErrNoChange) {
			return current, nil
		}
		return nil, err
	}
	next.Version = current.Version + 1
	return &next, nil
}

func (m *MockProductRepository) CountApprovals(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.(map[string]int), args.Error(1)
	}
	return nil, args.Error(1)
}
