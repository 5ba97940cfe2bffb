package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/devext/internal/domain/session"
	"github.com/GriffinCanCode/devext/internal/types"
)

// MockSupervisor is a testify mock of the supervisor surface used by tools
// and HTTP handlers.
type MockSupervisor struct {
	mock.Mock
}

func (m *MockSupervisor) Run(ctx context.Context, targetPath, prompt, workingDir string) (string, session.CompletionResult, error) {
	args := m.Called(ctx, targetPath, prompt, workingDir)
	return args.String(0), args.Get(1).(session.CompletionResult), args.Error(2)
}

func (m *MockSupervisor) StopByID(ctx context.Context, sessionID string) (*session.CompletionResult, bool) {
	args := m.Called(ctx, sessionID)
	res, _ := args.Get(0).(*session.CompletionResult)
	return res, args.Bool(1)
}

func (m *MockSupervisor) StopCurrent(ctx context.Context) (*session.CompletionResult, bool) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*session.CompletionResult)
	return res, args.Bool(1)
}

func (m *MockSupervisor) ListSessions() []session.SessionInfo {
	args := m.Called()
	infos, _ := args.Get(0).([]session.SessionInfo)
	return infos
}

func (m *MockSupervisor) Current() (string, bool) {
	args := m.Called()
	return args.String(0), args.Bool(1)
}

// MockProvider is a testify mock of a tool provider.
type MockProvider struct {
	mock.Mock
	Service types.Service
}

func (m *MockProvider) Definition() types.Service {
	return m.Service
}

func (m *MockProvider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	args := m.Called(ctx, toolID, params, appCtx)
	res, _ := args.Get(0).(*types.Result)
	return res, args.Error(1)
}
