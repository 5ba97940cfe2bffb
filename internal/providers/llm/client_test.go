package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/devext/internal/infrastructure/resilience"
)

func chatServer(t *testing.T, handler func(w http.ResponseWriter, req ChatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func reply(w http.ResponseWriter, content string) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
}

func TestCompleteMissingKey(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	assert.False(t, c.Configured())

	_, err := c.Complete(context.Background(), ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestComplete(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, req ChatRequest) {
		assert.Equal(t, "test/model", req.Model)
		if !assert.Len(t, req.Messages, 2) {
			return
		}
		assert.Equal(t, "system", req.Messages[0].Role)
		reply(w, "pong")
	})

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL + "/"}, nil)
	got, err := c.Complete(context.Background(), ChatRequest{Model: "test/model", Messages: messages("be brief", "ping")})
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
}

func TestCompleteStatusError(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, req ChatRequest) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"unknown model"}}`))
	})

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL}, nil)
	_, err := c.Complete(context.Background(), ChatRequest{Model: "nope"})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, "unknown model", se.Message)
	assert.Equal(t, resilience.StateClosed, c.BreakerState(), "client errors do not trip the breaker")
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, req ChatRequest) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL}, nil)
	_, err := c.Complete(context.Background(), ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, func(w http.ResponseWriter, req ChatRequest) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		reply(w, "second time lucky")
	})

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL, Retries: 2}, nil)
	got, err := c.Complete(context.Background(), ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "second time lucky", got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCompleteBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, func(w http.ResponseWriter, req ChatRequest) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)
	for i := 0; i < 5; i++ {
		_, err := c.Complete(context.Background(), ChatRequest{Model: "m"})
		require.Error(t, err)
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	_, err := c.Complete(context.Background(), ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(5), calls.Load())
}
