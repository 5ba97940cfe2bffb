package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"
)

const maxPanelConcurrency = 4

// PanelConfig is the optional panel file
type PanelConfig struct {
	Models []string `yaml:"models" toml:"models"`
	System string   `yaml:"system" toml:"system"`
}

// LoadPanel reads a YAML (.yaml/.yml) or TOML (.toml) panel file
func LoadPanel(path string) (*PanelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read panel file: %w", err)
	}

	var cfg PanelConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return nil, fmt.Errorf("unsupported panel file type: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse panel file %s: %w", path, err)
	}

	models := cfg.Models[:0]
	for _, m := range cfg.Models {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	cfg.Models = models
	return &cfg, nil
}

// Answer is one model's reply in a panel
type Answer struct {
	Model    string        `json:"model"`
	Content  string        `json:"content,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the model answered
func (a Answer) OK() bool {
	return a.Error == ""
}

// Completer is what the panel needs from the client
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// RunPanel asks every model the same question concurrently. Each model
// gets its own slot in the result, in input order; one model failing does
// not cancel the others.
func RunPanel(ctx context.Context, c Completer, models []string, system, prompt string) []Answer {
	answers := make([]Answer, len(models))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPanelConcurrency)
	for i, model := range models {
		i, model := i, model
		g.Go(func() error {
			start := time.Now()
			content, err := c.Complete(ctx, ChatRequest{Model: model, Messages: messages(system, prompt)})
			answers[i] = Answer{Model: model, Content: content, Duration: time.Since(start)}
			if err != nil {
				answers[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()
	return answers
}

func messages(system, prompt string) []Message {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	return append(msgs, Message{Role: "user", Content: prompt})
}
