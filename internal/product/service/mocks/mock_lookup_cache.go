package mocks

import (
	"context"

	pDomain "github.com/ridloal/agri-traceability/internal/product/domain"
	"github.com/stretchr/testify/mock"
)

// MockLookupCache mengembalikan *pDomain.Product dari expectation Get
// sebagai cache hit; nil berarti miss.
type MockLookupCache struct {
	mock.Mock
}

func (m *MockLookupCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	args := m.Called(ctx, key)
	if p, ok := args.Get(0).(*pDomain.Product); ok && p != nil {
		*(dest.(*pDomain.Product)) = p.Clone()
		return true, args.Error(1)
	}
	return false, args.Error(1)
}

func (m *MockLookupCache) Set(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockLookupCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
