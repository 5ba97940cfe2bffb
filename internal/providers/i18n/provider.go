package i18n

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/devext/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devext/internal/providers"
	"github.com/GriffinCanCode/devext/internal/types"
)

const defaultBaseLocale = "en"

// Provider implements translation file tools
type Provider struct {
	logger *logging.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewProvider creates an i18n provider
func NewProvider(logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provider{
		logger: logger.Named("i18n"),
		stores: make(map[string]*Store),
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	dirParam := types.Parameter{Name: "localesDir", Type: "string", Description: "Directory holding <locale>.json or <locale>/*.json", Required: true}
	keyParam := types.Parameter{Name: "key", Type: "string", Description: "Dotted translation key", Required: true}

	return types.Service{
		ID:          "i18n",
		Name:        "Translations",
		Description: "Enumerate locales and edit JSON translation files",
		Category:    types.CategoryI18n,
		Capabilities: []string{
			"locales",
			"translations",
			"missing_keys",
		},
		Tools: []types.Tool{
			{
				ID:          "i18n.list_locales",
				Name:        "List Locales",
				Description: "List locales found in a translations directory",
				Parameters:  []types.Parameter{dirParam},
				Returns:     "array",
			},
			{
				ID:          "i18n.get",
				Name:        "Get Translation",
				Description: "Get a key's value in every locale",
				Parameters:  []types.Parameter{dirParam, keyParam},
				Returns:     "object",
			},
			{
				ID:          "i18n.set",
				Name:        "Set Translation",
				Description: "Set a key's value for one or more locales",
				Parameters: []types.Parameter{
					dirParam,
					keyParam,
					{Name: "values", Type: "object", Description: "Map of locale to text", Required: true},
				},
				Returns: "array",
			},
			{
				ID:          "i18n.delete",
				Name:        "Delete Translation",
				Description: "Remove a key from every locale",
				Parameters:  []types.Parameter{dirParam, keyParam},
				Returns:     "array",
			},
			{
				ID:          "i18n.missing",
				Name:        "Missing Translations",
				Description: "List keys present in the base locale but missing elsewhere",
				Parameters: []types.Parameter{
					dirParam,
					{Name: "baseLocale", Type: "string", Description: "Reference locale (default en)", Required: false},
				},
				Returns: "object",
			},
		},
	}
}

// Execute runs an i18n tool
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	dir, err := providers.GetString(params, "localesDir", true)
	if err != nil {
		return providers.Failure(err.Error())
	}
	store := p.store(dir)

	switch toolID {
	case "i18n.list_locales":
		return p.listLocales(store)
	case "i18n.get":
		return p.get(store, params)
	case "i18n.set":
		return p.set(store, params)
	case "i18n.delete":
		return p.delete(store, params)
	case "i18n.missing":
		return p.missing(store, params)
	default:
		return providers.Failuref("unknown tool: %s", toolID)
	}
}

func (p *Provider) store(dir string) *Store {
	dir = filepath.Clean(dir)
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stores[dir]
	if !ok {
		s = NewStore(dir)
		p.stores[dir] = s
	}
	return s
}

func (p *Provider) listLocales(store *Store) (*types.Result, error) {
	locales, err := store.Locales()
	if err != nil {
		return providers.Failure(err.Error())
	}
	names := make([]string, len(locales))
	for i, l := range locales {
		names[i] = l.Name
	}
	text := "No locales found."
	if len(names) > 0 {
		text = "Locales: " + strings.Join(names, ", ")
	}
	return providers.Text(text, map[string]interface{}{"locales": names})
}

func (p *Provider) get(store *Store, params map[string]interface{}) (*types.Result, error) {
	key, err := providers.GetString(params, "key", true)
	if err != nil {
		return providers.Failure(err.Error())
	}
	values, err := store.Get(key)
	if err != nil {
		return providers.Failure(err.Error())
	}

	locales := make([]string, 0, len(values))
	for l := range values {
		locales = append(locales, l)
	}
	sort.Strings(locales)

	var b strings.Builder
	if len(locales) == 0 {
		fmt.Fprintf(&b, "Key %s not found in any locale.", key)
	}
	for i, l := range locales {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %v", l, values[l])
	}
	return providers.Text(b.String(), map[string]interface{}{"key": key, "values": values})
}

func (p *Provider) set(store *Store, params map[string]interface{}) (*types.Result, error) {
	key, err := providers.GetString(params, "key", true)
	if err != nil {
		return providers.Failure(err.Error())
	}
	values, err := providers.GetStringMap(params, "values", true)
	if err != nil {
		return providers.Failure(err.Error())
	}

	files, err := store.Set(key, values)
	if err != nil {
		p.logger.Warn("Translation update failed", zap.String("key", key), zap.Error(err))
		return providers.Failure(err.Error())
	}
	p.logger.Info("Translation updated", zap.String("key", key), zap.Strings("files", files))
	return providers.Text(
		fmt.Sprintf("Set %s in %d file(s)", key, len(files)),
		map[string]interface{}{"key": key, "files": files},
	)
}

func (p *Provider) delete(store *Store, params map[string]interface{}) (*types.Result, error) {
	key, err := providers.GetString(params, "key", true)
	if err != nil {
		return providers.Failure(err.Error())
	}
	removed, err := store.Delete(key)
	if err != nil {
		return providers.Failure(err.Error())
	}
	text := fmt.Sprintf("Key %s not present in any locale.", key)
	if len(removed) > 0 {
		text = fmt.Sprintf("Deleted %s from %s", key, strings.Join(removed, ", "))
	}
	return providers.Text(text, map[string]interface{}{"key": key, "locales": removed})
}

func (p *Provider) missing(store *Store, params map[string]interface{}) (*types.Result, error) {
	base, err := providers.GetString(params, "baseLocale", false)
	if err != nil {
		return providers.Failure(err.Error())
	}
	if base == "" {
		base = defaultBaseLocale
	}

	missing, err := store.Missing(base)
	if err != nil {
		return providers.Failure(err.Error())
	}

	locales := make([]string, 0, len(missing))
	total := 0
	for l, keys := range missing {
		locales = append(locales, l)
		total += len(keys)
	}
	sort.Strings(locales)

	var b strings.Builder
	if total == 0 {
		fmt.Fprintf(&b, "All locales have every key in %s.", base)
	}
	for i, l := range locales {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s (%d): %s", l, len(missing[l]), strings.Join(missing[l], ", "))
	}
	return providers.Text(b.String(), map[string]interface{}{
		"base":    base,
		"missing": missing,
		"total":   total,
	})
}
