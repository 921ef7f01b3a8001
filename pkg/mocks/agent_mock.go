package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/planward/planward/pkg/agent"
)

// MockAgent is a mock implementation of the agent.Agent interface. Tests
// script validation behavior through Run callbacks that receive the Tools
// argument and call it like the real agent would.
type MockAgent struct {
	mock.Mock
}

func (m *MockAgent) ProposeGraph(ctx context.Context, planText string) (*agent.ProposedGraph, error) {
	args := m.Called(ctx, planText)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*agent.ProposedGraph), args.Error(1)
}

func (m *MockAgent) ValidateChanges(ctx context.Context, req agent.ValidationRequest, tools agent.Tools) error {
	args := m.Called(ctx, req, tools)

	return args.Error(0)
}
