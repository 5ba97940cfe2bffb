package devext

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/devext/internal/domain/session"
	"github.com/GriffinCanCode/devext/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devext/internal/providers"
	"github.com/GriffinCanCode/devext/internal/shared/id"
	"github.com/GriffinCanCode/devext/internal/types"
)

const (
	ToolLaunch       = "launch_dev_extension"
	ToolStop         = session.StopToolName
	ToolWritePrompt  = "write_prompt_file"
	ToolListSessions = "list_dev_sessions"

	// DefaultOutputBudget is how many characters of process output a result carries.
	DefaultOutputBudget = 1000

	extensionSubdir = "src"
	examplesSubdir  = "examples"

	noSessionText = "No active extension session to stop."
)

// Supervisor is the part of session.Supervisor the tools drive.
type Supervisor interface {
	Run(ctx context.Context, targetPath, prompt, workingDir string) (string, session.CompletionResult, error)
	StopByID(ctx context.Context, sessionID string) (*session.CompletionResult, bool)
	StopCurrent(ctx context.Context) (*session.CompletionResult, bool)
	ListSessions() []session.SessionInfo
	Current() (string, bool)
}

// Provider exposes the extension development host tools
type Provider struct {
	sup        Supervisor
	budget     int
	debugTools bool
	logger     *logging.Logger
}

// Option configures a Provider
type Option func(*Provider)

// WithOutputBudget caps the output text returned per result.
func WithOutputBudget(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.budget = n
		}
	}
}

// WithDebugTools enables write_prompt_file.
func WithDebugTools(enabled bool) Option {
	return func(p *Provider) { p.debugTools = enabled }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l.Named("devext")
		}
	}
}

// NewProvider creates the devext provider over a supervisor
func NewProvider(sup Supervisor, opts ...Option) *Provider {
	p := &Provider{
		sup:    sup,
		budget: DefaultOutputBudget,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "devext",
		Name:        "Extension Development Host",
		Description: "Launch an editor extension in a development host, wait for the interactive test to finish, and stop it from another call",
		Category:    types.CategoryDevelopment,
		Capabilities: []string{
			"launch",
			"stop",
			"sessions",
			"prompt",
		},
		Tools: p.tools(),
	}
}

// Execute runs a devext tool
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case ToolLaunch:
		return p.launch(ctx, params)
	case ToolStop:
		return p.stop(ctx, params)
	case ToolListSessions:
		return p.listSessions()
	case ToolWritePrompt:
		if !p.debugTools {
			return providers.Failuref("%s is only available with debug tools enabled", ToolWritePrompt)
		}
		return p.writePrompt(params)
	default:
		return providers.Failuref("unknown tool: %s", toolID)
	}
}

func (p *Provider) tools() []types.Tool {
	tools := []types.Tool{
		{
			ID:          ToolLaunch,
			Name:        "Launch Dev Extension",
			Description: "Launch the extension in <workspaceDir>/src against <workspaceDir>/examples and block until the session is stopped or the editor exits",
			Parameters: []types.Parameter{
				{Name: "workspaceDir", Type: "string", Description: "Workspace containing src/ and examples/", Required: true},
				{Name: "prompt", Type: "string", Description: "Task for the tester, written to examples/.PROMPT", Required: true},
			},
			Returns: "text",
		},
		{
			ID:          ToolStop,
			Name:        "Stop Dev Extension",
			Description: "Stop the named extension session, or the current one when no id is given",
			Parameters: []types.Parameter{
				{Name: "sessionId", Type: "string", Description: "Session to stop (defaults to current)", Required: false},
			},
			Returns: "text",
		},
		{
			ID:          ToolListSessions,
			Name:        "List Dev Sessions",
			Description: "List live extension sessions and the current session id",
			Parameters:  []types.Parameter{},
			Returns:     "array",
		},
	}
	if p.debugTools {
		tools = append(tools, types.Tool{
			ID:          ToolWritePrompt,
			Name:        "Write Prompt File",
			Description: "Write examples/.PROMPT and examples/PROMPT.txt without launching anything",
			Parameters: []types.Parameter{
				{Name: "workspaceDir", Type: "string", Description: "Workspace containing examples/", Required: true},
				{Name: "prompt", Type: "string", Description: "Prompt text", Required: true},
			},
			Returns: "text",
		})
	}
	return tools
}

func (p *Provider) launch(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	workspace, err := providers.GetString(params, "workspaceDir", true)
	if err != nil {
		return providers.Failure(err.Error())
	}
	prompt, err := providers.GetString(params, "prompt", true)
	if err != nil {
		return providers.Failure(err.Error())
	}

	src := filepath.Join(workspace, extensionSubdir)
	examples := filepath.Join(workspace, examplesSubdir)

	sid, res, err := p.sup.Run(ctx, src, prompt, examples)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		p.logger.Warn("Launch call ended before the session", zap.String("session_id", sid), zap.Error(err))
		return providers.Failuref("session %s is still running (%v); stop it with %s", sid, err, ToolStop)
	default:
		return providers.Failuref("failed to launch extension: %v", err)
	}

	return p.completed(res)
}

func (p *Provider) stop(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	sid, err := providers.GetString(params, "sessionId", false)
	if err != nil {
		return providers.Failure(err.Error())
	}

	var (
		res *session.CompletionResult
		ok  bool
	)
	if sid == "" {
		res, ok = p.sup.StopCurrent(ctx)
	} else {
		res, ok = p.sup.StopByID(ctx, sid)
	}
	if !ok {
		return providers.Text(noSessionText, map[string]interface{}{
			"stopped":    false,
			"session_id": sid,
		})
	}
	return p.completed(*res)
}

func (p *Provider) listSessions() (*types.Result, error) {
	sessions := p.sup.ListSessions()
	current, _ := p.sup.Current()

	var b strings.Builder
	if len(sessions) == 0 {
		b.WriteString("No extension sessions running.")
	}
	for i, s := range sessions {
		if i > 0 {
			b.WriteByte('\n')
		}
		marker := " "
		if s.Current {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s  %s  pid=%d  started=%s", marker, s.ID, s.State, s.PID, s.StartedAt.Format("15:04:05"))
	}

	return providers.Text(b.String(), map[string]interface{}{
		"sessions": sessions,
		"current":  current,
		"count":    len(sessions),
	})
}

func (p *Provider) writePrompt(params map[string]interface{}) (*types.Result, error) {
	workspace, err := providers.GetString(params, "workspaceDir", true)
	if err != nil {
		return providers.Failure(err.Error())
	}
	prompt, err := providers.GetString(params, "prompt", true)
	if err != nil {
		return providers.Failure(err.Error())
	}

	examples := filepath.Join(workspace, examplesSubdir)
	if info, err := os.Stat(examples); err != nil || !info.IsDir() {
		return providers.Failure((&session.InvalidPathError{Path: examples, Role: "working directory"}).Error())
	}

	sid := id.NewSessionID().String()
	artifacts, err := session.WritePrompt(examples, sid, prompt)
	if err != nil {
		return providers.Failuref("failed to write prompt file: %v", err)
	}

	p.logger.Debug("Prompt file written", zap.String("path", artifacts.PromptPath), zap.String("session_id", sid))
	return providers.Text(
		fmt.Sprintf("Prompt written to %s and %s (session %s)", artifacts.PromptPath, artifacts.TextPath, sid),
		map[string]interface{}{
			"session_id":  sid,
			"prompt_path": artifacts.PromptPath,
			"text_path":   artifacts.TextPath,
		},
	)
}

func (p *Provider) completed(res session.CompletionResult) (*types.Result, error) {
	output, truncated := TruncateOutput(CombineOutput(res.Stdout, res.Stderr), p.budget)

	data := map[string]interface{}{
		"stopped":          true,
		"session_id":       res.SessionID,
		"duration_seconds": res.Duration.Seconds(),
		"cause":            string(res.Cause),
		"output":           output,
		"truncated":        truncated,
	}
	if res.ExitCode != nil {
		data["exit_code"] = *res.ExitCode
	}
	return providers.Text(FormatResult(res, p.budget), data)
}
