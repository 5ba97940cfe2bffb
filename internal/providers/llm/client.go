package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/devext/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devext/internal/infrastructure/resilience"
)

var (
	// ErrMissingAPIKey is returned at call time when no API key is configured.
	ErrMissingAPIKey = errors.New("LLM API key is not configured")
	// ErrEmptyResponse is returned when the endpoint answers without a choice.
	ErrEmptyResponse = errors.New("LLM returned no choices")
)

// Config configures the chat-completions client
type Config struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second; <= 0 means unlimited
	Retries   int
}

// Message is one chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is an OpenAI-compatible chat-completions request
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StatusError is a non-2xx answer from the endpoint
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("LLM request failed with status %d", e.Status)
	}
	return fmt.Sprintf("LLM request failed with status %d: %s", e.Status, e.Message)
}

// Client wraps resty with rate limiting, retries and a circuit breaker
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	apiKey  string
	logger  *logging.Logger
}

// NewClient creates a chat-completions client
func NewClient(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	logger = logger.Named("llm")

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	restyClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "devext/1.0").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	limit := rate.Inf
	burst := 0
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
	}

	breaker := resilience.New("llm", resilience.Settings{
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) && se.Status < 500 && se.Status != http.StatusTooManyRequests {
				return true
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// Configured reports whether an API key is set
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Complete sends one chat-completions request and returns the first
// choice's content
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if !c.Configured() {
		return "", ErrMissingAPIKey
	}
	if req.Model == "" {
		return "", fmt.Errorf("model cannot be empty")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	start := time.Now()
	content, err := resilience.Do(ctx, c.breaker, func(ctx context.Context) (string, error) {
		var out chatResponse
		var apiErr apiError
		resp, err := c.resty.R().
			SetContext(ctx).
			SetAuthToken(c.apiKey).
			SetBody(req).
			SetResult(&out).
			SetError(&apiErr).
			Post("/chat/completions")
		if err != nil {
			return "", fmt.Errorf("LLM request: %w", err)
		}
		if resp.IsError() {
			return "", &StatusError{Status: resp.StatusCode(), Message: apiErr.Error.Message}
		}
		if len(out.Choices) == 0 {
			return "", ErrEmptyResponse
		}
		return out.Choices[0].Message.Content, nil
	})

	if err != nil {
		c.logger.Warn("LLM request failed", zap.String("model", req.Model), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", err
	}
	c.logger.Debug("LLM request completed", zap.String("model", req.Model), zap.Duration("elapsed", time.Since(start)))
	return content, nil
}

// BreakerState exposes the breaker state for health reporting
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}
