package predictor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"reflect"
	"strings"
)

// Separator splits a locator into module reference and symbol name.
const Separator = ":"

// ParseLocator splits locator at the first separator.
func ParseLocator(locator string) (module, symbol string, err error) {
	module, symbol, ok := strings.Cut(locator, Separator)
	module, symbol = strings.TrimSpace(module), strings.TrimSpace(symbol)
	if !ok || module == "" || symbol == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	return module, symbol, nil
}

// SymbolTable is the lookup surface of an opened module.
type SymbolTable interface {
	Lookup(name string) (plugin.Symbol, error)
}

// Opener opens the module file at path.
type Opener func(path string) (SymbolTable, error)

func openPlugin(path string) (SymbolTable, error) {
	return plugin.Open(path)
}

// Loader resolves locators into predictor instances. Registered factories
// win; otherwise the module reference is looked up as a Go plugin
// (<module>.so) in each directory of the search path.
type Loader struct {
	registry   *Registry
	searchPath []string
	open       Opener
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithRegistry replaces the default registry.
func WithRegistry(r *Registry) LoaderOption {
	return func(l *Loader) {
		l.registry = r
	}
}

// WithConfigDir puts the directory holding the active configuration at the
// front of the search path.
func WithConfigDir(dir string) LoaderOption {
	return func(l *Loader) {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		l.searchPath = append([]string{dir}, l.searchPath...)
	}
}

// WithSearchPath appends directories to the search path.
func WithSearchPath(dirs ...string) LoaderOption {
	return func(l *Loader) {
		l.searchPath = append(l.searchPath, dirs...)
	}
}

// WithOpener replaces the plugin opener.
func WithOpener(open Opener) LoaderOption {
	return func(l *Loader) {
		l.open = open
	}
}

// NewLoader creates a loader searching the working directory.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		registry: defaultRegistry,
		open:     openPlugin,
	}
	if wd, err := os.Getwd(); err == nil {
		l.searchPath = []string{wd}
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// SearchPath returns the directories searched for plugin modules.
func (l *Loader) SearchPath() []string {
	return append([]string(nil), l.searchPath...)
}

// Load resolves locator and instantiates the predictor with no arguments.
// Every failure is a KindLoad *Error naming the locator.
func (l *Loader) Load(locator string) (any, error) {
	module, symbol, err := ParseLocator(locator)
	if err != nil {
		return nil, loadError(locator, err)
	}

	if f, ok := l.registry.Get(module + Separator + symbol); ok {
		return instantiate(locator, f)
	}
	if l.registry.HasModule(module) {
		return nil, loadError(locator, fmt.Errorf("%w: %s has no %s", ErrSymbolNotFound, module, symbol))
	}

	table, path, err := l.openModule(module)
	if err != nil {
		return nil, loadError(locator, err)
	}

	sym, err := table.Lookup(symbol)
	if err != nil {
		return nil, loadError(locator, fmt.Errorf("%w: %s has no %s: %v", ErrSymbolNotFound, path, symbol, err))
	}

	f, err := factoryOf(sym)
	if err != nil {
		return nil, loadError(locator, err)
	}

	slog.Debug("Predictor resolved from plugin", "locator", locator, "path", path)

	return instantiate(locator, f)
}

// openModule tries <dir>/<module>.so across the search path.
func (l *Loader) openModule(module string) (SymbolTable, string, error) {
	file := filepath.FromSlash(strings.ReplaceAll(strings.TrimSuffix(module, ".so"), ".", "/")) + ".so"

	for _, dir := range l.searchPath {
		path := filepath.Join(dir, file)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		table, err := l.open(path)
		if err != nil {
			return nil, path, fmt.Errorf("failed to open %s: %w", path, err)
		}

		return table, path, nil
	}

	return nil, "", fmt.Errorf("%w: %s (searched %s)", ErrModuleNotFound, module, strings.Join(l.searchPath, ", "))
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// factoryOf adapts a looked-up symbol into a Factory. Accepted shapes are
// func() T and func() (T, error), or a pointer to such a function.
func factoryOf(sym any) (Factory, error) {
	v := reflect.ValueOf(sym)
	if v.Kind() == reflect.Pointer && v.Elem().Kind() == reflect.Func {
		v = v.Elem()
	}

	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: %T", ErrNotInstantiable, sym)
	}

	t := v.Type()
	if t.NumIn() != 0 || t.NumOut() == 0 || t.NumOut() > 2 || (t.NumOut() == 2 && t.Out(1) != errorType) {
		return nil, fmt.Errorf("%w: %s", ErrNotInstantiable, t)
	}

	return func() (any, error) {
		out := v.Call(nil)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}, nil
}

// instantiate runs f, turning errors and panics into load errors.
func instantiate(locator string, f Factory) (p any, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, loadError(locator, fmt.Errorf("instantiation panicked: %v", r))
		}
	}()

	p, err = f()
	if err != nil {
		return nil, loadError(locator, fmt.Errorf("instantiation failed: %w", err))
	}
	if p == nil {
		return nil, loadError(locator, errors.New("instantiation returned nil"))
	}

	return p, nil
}
