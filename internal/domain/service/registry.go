package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GriffinCanCode/devext/internal/types"
)

var (
	// ErrToolNotFound is returned when no registered provider owns a tool ID.
	ErrToolNotFound = errors.New("tool not found")
	// ErrDuplicateTool is returned when two providers declare the same tool ID.
	ErrDuplicateTool = errors.New("tool already registered")
)

// Provider interface for service implementations
type Provider interface {
	Definition() types.Service
	Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error)
}

// Registry manages service discovery and tool dispatch
type Registry struct {
	mu       sync.RWMutex
	services map[string]Provider
	tools    map[string]string // tool ID -> service ID
}

// NewRegistry creates a new service registry
func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]Provider),
		tools:    make(map[string]string),
	}
}

// Register adds a service provider and indexes its tools
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("service ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tool := range def.Tools {
		if owner, ok := r.tools[tool.ID]; ok && owner != def.ID {
			return fmt.Errorf("%w: %s (owned by %s)", ErrDuplicateTool, tool.ID, owner)
		}
	}

	if old, ok := r.services[def.ID]; ok {
		for _, tool := range old.Definition().Tools {
			delete(r.tools, tool.ID)
		}
	}
	r.services[def.ID] = provider
	for _, tool := range def.Tools {
		r.tools[tool.ID] = def.ID
	}
	return nil
}

// Unregister removes a service provider
func (r *Registry) Unregister(serviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	provider, ok := r.services[serviceID]
	if !ok {
		return
	}
	for _, tool := range provider.Definition().Tools {
		delete(r.tools, tool.ID)
	}
	delete(r.services, serviceID)
}

// Get retrieves a service by ID
func (r *Registry) Get(serviceID string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.services[serviceID]
	return p, ok
}

// Lookup returns the provider that owns toolID
func (r *Registry) Lookup(toolID string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	serviceID, ok := r.tools[toolID]
	if !ok {
		return nil, false
	}
	return r.services[serviceID], true
}

// List returns registered services sorted by ID
func (r *Registry) List(category *types.Category) []types.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make([]types.Service, 0, len(r.services))
	for _, provider := range r.services {
		def := provider.Definition()
		if category == nil || def.Category == *category {
			services = append(services, def)
		}
	}
	sort.Slice(services, func(i, j int) bool {
		return services[i].ID < services[j].ID
	})
	return services
}

// Tools returns every registered tool sorted by ID
func (r *Registry) Tools() []types.Tool {
	var tools []types.Tool
	for _, def := range r.List(nil) {
		tools = append(tools, def.Tools...)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].ID < tools[j].ID
	})
	return tools
}

// Discover finds relevant services for a given intent
func (r *Registry) Discover(intent string, limit int) []types.Service {
	type scoredService struct {
		service types.Service
		score   float64
	}

	intentLower := strings.ToLower(intent)
	var results []scoredService

	for _, def := range r.List(nil) {
		score := calculateRelevance(intentLower, def)
		if score > 0 {
			results = append(results, scoredService{service: def, score: score})
		}
	}

	// Stable so ties keep ID order
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	output := make([]types.Service, 0, limit)
	for i := 0; i < len(results) && i < limit; i++ {
		output = append(output, results[i].service)
	}
	return output
}

// Execute dispatches a tool call to its provider
func (r *Registry) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	provider, ok := r.Lookup(toolID)
	if !ok {
		msg := fmt.Sprintf("tool not found: %s", toolID)
		return &types.Result{Success: false, Error: &msg}, fmt.Errorf("%w: %s", ErrToolNotFound, toolID)
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	return provider.Execute(ctx, toolID, params, appCtx)
}

// Stats returns registry statistics
func (r *Registry) Stats() map[string]interface{} {
	var totalTools int
	categories := make(map[string]int)

	services := r.List(nil)
	for _, def := range services {
		totalTools += len(def.Tools)
		categories[string(def.Category)]++
	}

	return map[string]interface{}{
		"total_services": len(services),
		"total_tools":    totalTools,
		"categories":     categories,
	}
}

func calculateRelevance(intent string, service types.Service) float64 {
	score := 0.0

	if strings.Contains(intent, service.ID) || strings.Contains(intent, strings.ToLower(service.Name)) {
		score += 10.0
	}

	for _, word := range strings.Fields(strings.ToLower(service.Description)) {
		if len(word) > 2 && strings.Contains(intent, word) {
			score += 5.0
		}
	}

	for _, capability := range service.Capabilities {
		capClean := strings.ReplaceAll(strings.ToLower(capability), "_", " ")
		if strings.Contains(intent, capClean) {
			score += 3.0
		}
	}

	for _, tool := range service.Tools {
		if strings.Contains(intent, strings.ToLower(tool.ID)) {
			score += 4.0
		}
	}

	if strings.Contains(intent, string(service.Category)) {
		score += 2.0
	}

	return score
}
