// Package targets manages the registry of semantic targets: the keys the
// engine resolves and the hints used to shortlist page nodes for each.
package targets

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/semloc/semloc/internal/models"
)

// targetsFile is the on-disk YAML shape.
type targetsFile struct {
	Targets []models.SemanticTarget `yaml:"targets"`
}

// Registry holds the semantic targets, keyed by semantic key. It is safe for
// concurrent use; Load replaces the whole set atomically so readers never see
// a partial reload.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]models.SemanticTarget
	order   []string
}

// NewRegistry creates a registry seeded with the built-in targets.
func NewRegistry() *Registry {
	r := &Registry{
		targets: make(map[string]models.SemanticTarget),
	}
	for _, t := range DefaultTargets() {
		r.targets[t.Key] = t
		r.order = append(r.order, t.Key)
	}
	return r
}

// DefaultTargets returns the built-in target set covering a standard login
// form, used when no targets file is configured.
func DefaultTargets() []models.SemanticTarget {
	return []models.SemanticTarget{
		{
			Key:   "login.username",
			Tag:   "input",
			Types: []string{"text", "email"},
			Hints: []string{"user", "login", "email", "username"},
		},
		{
			Key:   "login.password",
			Tag:   "input",
			Types: []string{"password"},
			Hints: []string{"pass", "password"},
		},
		{
			Key:   "login.submit",
			Tag:   "button",
			Types: []string{"submit", ""},
			Hints: []string{"login", "sign", "submit", "continue"},
		},
	}
}

// Load reads a YAML targets file and replaces the registry contents. On any
// error the previous contents are kept.
func (r *Registry) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read targets file: %w", err)
	}
	var file targetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse targets file: %w", err)
	}
	if len(file.Targets) == 0 {
		return fmt.Errorf("targets file %s defines no targets", path)
	}

	targets := make(map[string]models.SemanticTarget, len(file.Targets))
	order := make([]string, 0, len(file.Targets))
	for i := range file.Targets {
		t := file.Targets[i]
		if err := t.Validate(); err != nil {
			return fmt.Errorf("invalid target %q: %w", t.Key, err)
		}
		if _, dup := targets[t.Key]; dup {
			return fmt.Errorf("duplicate target key %q", t.Key)
		}
		targets[t.Key] = t
		order = append(order, t.Key)
	}

	r.mu.Lock()
	r.targets = targets
	r.order = order
	r.mu.Unlock()
	return nil
}

// Get returns the target for key.
func (r *Registry) Get(key string) (models.SemanticTarget, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[key]
	return t, ok
}

// Set adds or replaces a single target.
func (r *Registry) Set(t models.SemanticTarget) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.targets[t.Key]; !exists {
		r.order = append(r.order, t.Key)
	}
	r.targets[t.Key] = t
	return nil
}

// All returns the targets in their declared order.
func (r *Registry) All() []models.SemanticTarget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.SemanticTarget, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.targets[key])
	}
	return out
}

// Keys returns the target keys in their declared order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of targets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}
