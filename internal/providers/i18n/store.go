package i18n

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
)

var (
	// ErrUnknownLocale is returned when a write names a locale with no files.
	ErrUnknownLocale = errors.New("unknown locale")
	// ErrNoLocales is returned when a directory holds no translation files.
	ErrNoLocales = errors.New("no locale files found")
)

// Translation files are written with sorted keys and no HTML escaping.
var codec = sonic.Config{
	SortMapKeys:    true,
	ValidateString: true,
}.Froze()

// Layout is how a locale's files are arranged.
type Layout int

const (
	// LayoutFlat is <dir>/<locale>.json.
	LayoutFlat Layout = iota
	// LayoutNamespaced is <dir>/<locale>/<namespace>.json; the namespace is
	// the first segment of every key.
	LayoutNamespaced
)

// Locale describes one discovered locale.
type Locale struct {
	Name   string
	Layout Layout
}

// Store reads and edits translation files under one directory. Writes are
// serialized; each file is replaced atomically.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Locales discovers locales from both layouts, sorted by name. A locale
// present in both layouts is treated as flat.
func (s *Store) Locales() ([]Locale, error) {
	info, err := os.Stat(s.dir)
	if err != nil {
		return nil, fmt.Errorf("locales directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("locales directory: %s is not a directory", s.dir)
	}

	fsys := os.DirFS(s.dir)
	found := make(map[string]Layout)

	nested, err := doublestar.Glob(fsys, "*/*.json")
	if err != nil {
		return nil, err
	}
	for _, m := range nested {
		if hidden(m) {
			continue
		}
		found[strings.SplitN(m, "/", 2)[0]] = LayoutNamespaced
	}

	flat, err := doublestar.Glob(fsys, "*.json")
	if err != nil {
		return nil, err
	}
	for _, m := range flat {
		if hidden(m) {
			continue
		}
		found[strings.TrimSuffix(m, ".json")] = LayoutFlat
	}

	locales := make([]Locale, 0, len(found))
	for name, layout := range found {
		locales = append(locales, Locale{Name: name, Layout: layout})
	}
	sort.Slice(locales, func(i, j int) bool { return locales[i].Name < locales[j].Name })
	return locales, nil
}

// Get returns the value of key in every locale that has it.
func (s *Store) Get(key string) (map[string]interface{}, error) {
	parts, err := splitKey(key)
	if err != nil {
		return nil, err
	}
	locales, err := s.requireLocales()
	if err != nil {
		return nil, err
	}

	values := make(map[string]interface{})
	for _, loc := range locales {
		file, inner, err := s.resolve(loc, parts)
		if err != nil {
			continue
		}
		tree, err := readTree(file)
		if err != nil {
			return nil, err
		}
		if v, ok := lookup(tree, inner); ok {
			values[loc.Name] = v
		}
	}
	return values, nil
}

// Set writes values[locale] at key for each given locale. Every locale is
// validated before any file is touched.
func (s *Store) Set(key string, values map[string]string) ([]string, error) {
	parts, err := splitKey(key)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("values cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	locales, err := s.requireLocales()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]Locale, len(locales))
	for _, loc := range locales {
		byName[loc.Name] = loc
	}

	type edit struct {
		file  string
		inner []string
		value string
	}
	edits := make([]edit, 0, len(values))
	for name, value := range values {
		loc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLocale, name)
		}
		file, inner, err := s.resolve(loc, parts)
		if err != nil {
			return nil, err
		}
		edits = append(edits, edit{file: file, inner: inner, value: value})
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].file < edits[j].file })

	written := make([]string, 0, len(edits))
	for _, e := range edits {
		tree, err := readTree(e.file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return written, err
		}
		if tree == nil {
			tree = make(map[string]interface{})
		}
		if err := assign(tree, e.inner, e.value); err != nil {
			return written, fmt.Errorf("%s: %w", e.file, err)
		}
		if err := writeTree(e.file, tree); err != nil {
			return written, err
		}
		written = append(written, e.file)
	}
	return written, nil
}

// Delete removes key from every locale and returns the locales it was
// removed from.
func (s *Store) Delete(key string) ([]string, error) {
	parts, err := splitKey(key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	locales, err := s.requireLocales()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, loc := range locales {
		file, inner, err := s.resolve(loc, parts)
		if err != nil {
			continue
		}
		tree, err := readTree(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, err
		}
		if !remove(tree, inner) {
			continue
		}
		if err := writeTree(file, tree); err != nil {
			return removed, err
		}
		removed = append(removed, loc.Name)
	}
	return removed, nil
}

// Missing lists, per locale, the leaf keys of base that the locale lacks.
// Locales missing nothing are omitted.
func (s *Store) Missing(base string) (map[string][]string, error) {
	locales, err := s.requireLocales()
	if err != nil {
		return nil, err
	}

	keysByLocale := make(map[string]map[string]struct{}, len(locales))
	var baseKeys []string
	for _, loc := range locales {
		keys, err := s.keys(loc)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			set[k] = struct{}{}
		}
		keysByLocale[loc.Name] = set
		if loc.Name == base {
			baseKeys = keys
		}
	}
	if _, ok := keysByLocale[base]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLocale, base)
	}

	missing := make(map[string][]string)
	for _, loc := range locales {
		if loc.Name == base {
			continue
		}
		have := keysByLocale[loc.Name]
		for _, k := range baseKeys {
			if _, ok := have[k]; !ok {
				missing[loc.Name] = append(missing[loc.Name], k)
			}
		}
	}
	return missing, nil
}

// keys lists every leaf key of a locale, prefixed with the namespace for
// namespaced layouts.
func (s *Store) keys(loc Locale) ([]string, error) {
	if loc.Layout == LayoutFlat {
		tree, err := readTree(filepath.Join(s.dir, loc.Name+".json"))
		if err != nil {
			return nil, err
		}
		return leafKeys(tree, ""), nil
	}

	files, err := doublestar.Glob(os.DirFS(s.dir), path.Join(loc.Name, "*.json"))
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, f := range files {
		if hidden(f) {
			continue
		}
		tree, err := readTree(filepath.Join(s.dir, filepath.FromSlash(f)))
		if err != nil {
			return nil, err
		}
		ns := strings.TrimSuffix(path.Base(f), ".json")
		keys = append(keys, leafKeys(tree, ns)...)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) requireLocales() ([]Locale, error) {
	locales, err := s.Locales()
	if err != nil {
		return nil, err
	}
	if len(locales) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoLocales, s.dir)
	}
	return locales, nil
}

// resolve maps a key to the file holding it and the path inside that file.
func (s *Store) resolve(loc Locale, parts []string) (string, []string, error) {
	if loc.Layout == LayoutFlat {
		return filepath.Join(s.dir, loc.Name+".json"), parts, nil
	}
	if len(parts) < 2 {
		return "", nil, fmt.Errorf("key %q needs a namespace prefix for locale %s", strings.Join(parts, "."), loc.Name)
	}
	return filepath.Join(s.dir, loc.Name, parts[0]+".json"), parts[1:], nil
}

// hidden reports dotfiles, including in-flight temp files.
func hidden(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func readTree(file string) (map[string]interface{}, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	tree := make(map[string]interface{})
	if len(strings.TrimSpace(string(data))) == 0 {
		return tree, nil
	}
	if err := codec.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return tree, nil
}

func writeTree(file string, tree map[string]interface{}) error {
	data, err := codec.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", file, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(file), ".i18n-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), file)
}
