// Package function holds the catalogue of callables the model may request
// and the rules for shaping their arguments.
package function

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"cryptochat/internal/domain"
)

// Registry maps function names to callables. The declared specs are what
// the model sees; the callables are what can actually run.
type Registry struct {
	mu     sync.RWMutex
	specs  []domain.FunctionSpec
	funcs  map[string]domain.Function
	logger *slog.Logger
}

// NewRegistry creates a registry advertising specs, with no callables yet.
func NewRegistry(specs []domain.FunctionSpec, logger *slog.Logger) *Registry {
	return &Registry{
		specs:  slices.Clone(specs),
		funcs:  make(map[string]domain.Function),
		logger: logger,
	}
}

// Register adds a callable. Returns error if name already registered.
func (r *Registry) Register(f domain.Function) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := f.Spec().Name
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("function %q already registered", name)
	}
	r.funcs[name] = f
	return nil
}

// Lookup retrieves a callable by name.
func (r *Registry) Lookup(name string) (domain.Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.funcs[name]
	if !ok {
		return nil, domain.NewDomainError("Registry.Lookup", domain.ErrUnknownFunction, name)
	}
	return f, nil
}

// Specs returns the advertised catalogue in declaration order.
func (r *Registry) Specs() []domain.FunctionSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.specs)
}

// Names returns the advertised function names in declaration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.specs))
	for i, s := range r.specs {
		names[i] = s.Name
	}
	return names
}

// Verify checks that the advertised specs and the registered callables name
// exactly the same set, and that every parameter schema compiles.
func (r *Registry) Verify() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var problems []string
	declared := make(map[string]bool, len(r.specs))
	compiler := jsonschema.NewCompiler()

	for _, s := range r.specs {
		if declared[s.Name] {
			problems = append(problems, fmt.Sprintf("spec %q declared twice", s.Name))
		}
		declared[s.Name] = true

		if _, ok := r.funcs[s.Name]; !ok {
			problems = append(problems, fmt.Sprintf("spec %q has no callable", s.Name))
		}
		if len(s.Parameters) > 0 {
			if _, err := compiler.Compile([]byte(s.Parameters)); err != nil {
				problems = append(problems, fmt.Sprintf("spec %q schema: %v", s.Name, err))
			}
		}
	}

	var extra []string
	for name := range r.funcs {
		if !declared[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		problems = append(problems, fmt.Sprintf("callable %q has no spec", name))
	}

	if len(problems) > 0 {
		return domain.NewDomainError("Registry.Verify", domain.ErrRegistryMismatch, strings.Join(problems, "; "))
	}
	if r.logger != nil {
		r.logger.Debug("function registry verified", "functions", len(r.specs))
	}
	return nil
}
