package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockProducerDirectory struct {
	mock.Mock
}

func (m *MockProducerDirectory) DisplayName(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}
