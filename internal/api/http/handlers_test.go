package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/devext/internal/api/middleware"
	"github.com/GriffinCanCode/devext/internal/domain/service"
	"github.com/GriffinCanCode/devext/internal/domain/session"
	"github.com/GriffinCanCode/devext/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/devext/internal/testutil"
	"github.com/GriffinCanCode/devext/internal/types"
)

type fixture struct {
	router   *gin.Engine
	provider *testutil.MockProvider
	sessions *testutil.MockSupervisor
	metrics  *monitoring.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := &testutil.MockProvider{Service: types.Service{
		ID:          "devext",
		Name:        "Extension Development Host",
		Description: "launch and stop extension sessions",
		Category:    types.CategoryDevelopment,
		Tools: []types.Tool{
			{ID: "launch_dev_extension", Name: "Launch"},
			{ID: "stop_dev_extension", Name: "Stop"},
		},
	}}
	registry := service.NewRegistry()
	require.NoError(t, registry.Register(provider))

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	sessions := &testutil.MockSupervisor{}

	router := gin.New()
	router.Use(middleware.RequestID())
	NewHandlers(registry, sessions, metrics, reg, nil).Register(router)

	return &fixture{router: router, provider: provider, sessions: sessions, metrics: metrics}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRoot(t *testing.T) {
	f := newFixture(t)
	w := f.do("GET", "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", decode(t, w)["status"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	f.sessions.On("Current").Return("test-abcd1234", true)
	f.sessions.On("ListSessions").Return([]session.SessionInfo{{ID: "test-abcd1234"}})

	w := f.do("GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	sessions := body["sessions"].(map[string]interface{})
	assert.Equal(t, float64(1), sessions["active"])
	assert.Equal(t, "test-abcd1234", sessions["current"])
	assert.Contains(t, body, "metrics")
}

func TestListTools(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/tools", "")
	require.Equal(t, http.StatusOK, w.Code)
	services := decode(t, w)["services"].([]interface{})
	require.Len(t, services, 1)
	assert.Equal(t, "devext", services[0].(map[string]interface{})["id"])

	w = f.do("GET", "/tools?category=ai", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["services"])

	w = f.do("GET", "/tools?category=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListToolsDiscover(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/tools?q=launch+extension", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "launch extension", body["query"])
	assert.NotEmpty(t, body["services"])

	w = f.do("GET", "/tools?q=x&limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExecuteTool(t *testing.T) {
	f := newFixture(t)
	f.provider.On("Execute", mock.Anything, "launch_dev_extension",
		map[string]interface{}{"workspaceDir": "/tmp/ws"},
		mock.MatchedBy(func(c *types.Context) bool {
			return c != nil && c.RequestID != nil && strings.HasPrefix(*c.RequestID, "req_")
		}),
	).Return(&types.Result{Success: true, Text: "Session test-abcd1234 finished"}, nil)

	w := f.do("POST", "/tools/execute", `{"tool_id":"launch_dev_extension","params":{"workspaceDir":"/tmp/ws"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Session test-abcd1234 finished", body["text"])
	assert.Equal(t, int64(1), f.metrics.Snapshot().ToolCalls)
	f.provider.AssertExpectations(t)
}

func TestExecuteToolFailureResultIsOK(t *testing.T) {
	f := newFixture(t)
	msg := "invalid path"
	f.provider.On("Execute", mock.Anything, "launch_dev_extension", mock.Anything, mock.Anything).
		Return(&types.Result{Success: false, Text: msg, Error: &msg}, nil)

	w := f.do("POST", "/tools/execute", `{"tool_id":"launch_dev_extension"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
	assert.Equal(t, int64(1), f.metrics.Snapshot().ToolFailures)
}

func TestExecuteToolErrors(t *testing.T) {
	f := newFixture(t)
	f.provider.On("Execute", mock.Anything, "stop_dev_extension", mock.Anything, mock.Anything).
		Return(nil, errors.New("boom"))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"tool_id":`, http.StatusBadRequest},
		{"missing tool id", `{"params":{}}`, http.StatusBadRequest},
		{"bad tool id", `{"tool_id":"../etc"}`, http.StatusBadRequest},
		{"unknown tool", `{"tool_id":"nope"}`, http.StatusNotFound},
		{"provider error", `{"tool_id":"stop_dev_extension"}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do("POST", "/tools/execute", tt.body)
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, decode(t, w), "error")
		})
	}
}

func TestExecuteToolRejectsDeepParams(t *testing.T) {
	f := newFixture(t)
	deep := strings.Repeat(`{"a":`, maxDepth+2) + "1" + strings.Repeat("}", maxDepth+2)

	w := f.do("POST", "/tools/execute", `{"tool_id":"launch_dev_extension","params":`+deep+`}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSessions(t *testing.T) {
	f := newFixture(t)
	f.sessions.On("ListSessions").Return(nil)
	f.sessions.On("Current").Return("", false)

	w := f.do("GET", "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []interface{}{}, body["sessions"])
	assert.Equal(t, "", body["current"])
}

func TestStopSession(t *testing.T) {
	code := 0
	result := &session.CompletionResult{
		SessionID: "test-abcd1234",
		Duration:  1500 * time.Millisecond,
		ExitCode:  &code,
		Cause:     session.CauseStopped,
	}

	t.Run("current", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("StopCurrent", mock.Anything).Return(result, true)

		w := f.do("POST", "/sessions/stop", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, true, body["stopped"])
		assert.Contains(t, body["text"], "test-abcd1234")
	})

	t.Run("by id", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("StopByID", mock.Anything, "test-abcd1234").Return(result, true)

		w := f.do("POST", "/sessions/stop", `{"session_id":"test-abcd1234"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		f.sessions.AssertExpectations(t)
	})

	t.Run("nothing to stop", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("StopCurrent", mock.Anything).Return(nil, false)

		w := f.do("POST", "/sessions/stop", `{}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("POST", "/sessions/stop", `{"session_id":"rm -rf"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	f.sessions.On("StopByID", mock.Anything, "test-00000000").Return(nil, false)

	w := f.do("DELETE", "/sessions/test-00000000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do("DELETE", "/sessions/other", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.metrics.SessionLaunched(session.SessionInfo{ID: "test-abcd1234"})

	w := f.do("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "devext_sessions_launched_total 1")
}
