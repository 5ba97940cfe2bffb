package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/devext/internal/domain/session"
)

func TestSessionObserver(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SessionLaunched(session.SessionInfo{ID: "test-00000001"})
	m.SessionLaunched(session.SessionInfo{ID: "test-00000002"})
	m.SessionCompleted(session.CompletionResult{SessionID: "test-00000001", Cause: session.CauseStopped, Duration: 3 * time.Second})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsLaunched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsCompleted.WithLabelValues("stopped")))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.SessionsLaunched)
	assert.Equal(t, int64(1), snap.SessionsActive)
	assert.Equal(t, int64(1), snap.SessionsCompleted)
}

func TestToolTimer(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	NewTimer(m, "i18n.get").Stop(true)
	NewTimer(m, "i18n.get").Stop(false)
	NewTimer(nil, "ignored").Stop(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("i18n.get", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("i18n.get", "failure")))
	assert.Equal(t, int64(1), m.Snapshot().ToolFailures)
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	r := gin.New()
	r.Use(Middleware(m))
	r.DELETE("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/sessions/test-12345678", nil))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("DELETE", "/sessions/:id", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.TotalErrors)
}

func TestRegistersOnInjectedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "devext_uptime_seconds")

	assert.NotPanics(t, func() { NewMetrics(prometheus.NewRegistry()) }, "separate registries do not collide")
}
