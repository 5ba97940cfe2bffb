package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/devext/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devext/internal/providers"
	"github.com/GriffinCanCode/devext/internal/types"
)

// Provider implements the LLM query tools
type Provider struct {
	client       Completer
	defaultModel string
	panelFile    string
	logger       *logging.Logger
}

// NewProvider creates an LLM provider. panelFile may be empty.
func NewProvider(client Completer, defaultModel, panelFile string, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provider{
		client:       client,
		defaultModel: defaultModel,
		panelFile:    panelFile,
		logger:       logger.Named("llm"),
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "llm",
		Name:        "LLM Panel",
		Description: "Ask one language model, or a panel of models in parallel",
		Category:    types.CategoryAI,
		Capabilities: []string{
			"query",
			"panel",
		},
		Tools: []types.Tool{
			{
				ID:          "llm.query",
				Name:        "Query Model",
				Description: "Send a prompt to one model",
				Parameters: []types.Parameter{
					{Name: "prompt", Type: "string", Description: "User prompt", Required: true},
					{Name: "model", Type: "string", Description: "Model name (defaults to the configured model)", Required: false},
					{Name: "system", Type: "string", Description: "System prompt", Required: false},
				},
				Returns: "text",
			},
			{
				ID:          "llm.panel",
				Name:        "Query Panel",
				Description: "Send the same prompt to several models concurrently",
				Parameters: []types.Parameter{
					{Name: "prompt", Type: "string", Description: "User prompt", Required: true},
					{Name: "models", Type: "array", Description: "Model names (defaults to the panel file, then the configured model)", Required: false},
					{Name: "system", Type: "string", Description: "System prompt", Required: false},
				},
				Returns: "array",
			},
		},
	}
}

// Execute runs an LLM tool
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "llm.query":
		return p.query(ctx, params)
	case "llm.panel":
		return p.panel(ctx, params)
	default:
		return providers.Failuref("unknown tool: %s", toolID)
	}
}

func (p *Provider) query(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	prompt, err := providers.GetString(params, "prompt", true)
	if err != nil {
		return providers.Failure(err.Error())
	}
	model, err := providers.GetString(params, "model", false)
	if err != nil {
		return providers.Failure(err.Error())
	}
	system, err := providers.GetString(params, "system", false)
	if err != nil {
		return providers.Failure(err.Error())
	}
	if model == "" {
		model = p.defaultModel
	}

	content, err := p.client.Complete(ctx, ChatRequest{Model: model, Messages: messages(system, prompt)})
	if err != nil {
		if errors.Is(err, ErrMissingAPIKey) {
			return providers.Failuref("%v; set LLM_API_KEY", err)
		}
		return providers.Failure(err.Error())
	}
	return providers.Text(content, map[string]interface{}{"model": model, "content": content})
}

func (p *Provider) panel(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	prompt, err := providers.GetString(params, "prompt", true)
	if err != nil {
		return providers.Failure(err.Error())
	}
	system, err := providers.GetString(params, "system", false)
	if err != nil {
		return providers.Failure(err.Error())
	}
	models, err := providers.GetStringSlice(params, "models")
	if err != nil {
		return providers.Failure(err.Error())
	}

	models, panelSystem, err := p.resolvePanel(models)
	if err != nil {
		return providers.Failure(err.Error())
	}
	if system == "" {
		system = panelSystem
	}

	answers := RunPanel(ctx, p.client, models, system, prompt)

	failed := 0
	var b strings.Builder
	for i, a := range answers {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n", a.Model)
		if a.OK() {
			b.WriteString(a.Content)
		} else {
			failed++
			fmt.Fprintf(&b, "(error: %s)", a.Error)
		}
	}

	p.logger.Info("Panel completed", zap.Int("models", len(answers)), zap.Int("failed", failed))
	data := map[string]interface{}{"answers": answers, "failed": failed}
	if failed == len(answers) {
		msg := "every model failed:\n" + b.String()
		return &types.Result{Success: false, Text: msg, Error: &msg, Data: data}, nil
	}
	return providers.Text(b.String(), data)
}

// resolvePanel picks the model list: explicit models, then the panel file,
// then the default model.
func (p *Provider) resolvePanel(explicit []string) ([]string, string, error) {
	if len(explicit) > 0 {
		return explicit, "", nil
	}
	if p.panelFile != "" {
		cfg, err := LoadPanel(p.panelFile)
		if err != nil {
			return nil, "", err
		}
		if len(cfg.Models) > 0 {
			return cfg.Models, cfg.System, nil
		}
	}
	if p.defaultModel == "" {
		return nil, "", fmt.Errorf("no models given and no default model configured")
	}
	return []string{p.defaultModel}, "", nil
}
