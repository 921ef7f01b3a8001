package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockMemoryService is a mock implementation of the memory.Service
// interface.
type MockMemoryService struct {
	mock.Mock
}

func (m *MockMemoryService) Search(ctx context.Context, sessionID, query string) (string, error) {
	args := m.Called(ctx, sessionID, query)

	return args.String(0), args.Error(1)
}

func (m *MockMemoryService) Store(ctx context.Context, sessionID, text string) error {
	args := m.Called(ctx, sessionID, text)

	return args.Error(0)
}
