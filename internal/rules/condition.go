package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-signal/internal/types"
)

// CheckFunc evaluates one condition against a snapshot.
// A malformed parameter is reported as an error; missing market data is false.
type CheckFunc func(snapshot types.MarketSnapshot, params Params) (bool, error)

// Condition is a named, pluggable predicate.
type Condition struct {
	Name  string
	Type  types.RuleType
	Check CheckFunc
}

// ConditionRegistry holds the conditions the evaluator understands.
type ConditionRegistry interface {
	RegisterCondition(condition Condition) error
	GetCondition(name string) (Condition, error)
	ListConditions() []string
}

// ConditionRegistryV1 is a concurrency-safe condition registry.
type ConditionRegistryV1 struct {
	conditions map[string]Condition
	mu         sync.RWMutex
}

// NewConditionRegistry creates an empty registry.
func NewConditionRegistry() ConditionRegistry {
	return &ConditionRegistryV1{
		conditions: make(map[string]Condition),
		mu:         sync.RWMutex{},
	}
}

// NewDefaultRegistry creates a registry with every built-in condition.
func NewDefaultRegistry() ConditionRegistry {
	registry := NewConditionRegistry()

	builtins := make([]Condition, 0, 16)
	builtins = append(builtins, technicalConditions()...)
	builtins = append(builtins, priceActionConditions()...)
	builtins = append(builtins, sessionConditions()...)
	builtins = append(builtins, newExpressionCondition())

	for _, c := range builtins {
		// built-in names are unique
		_ = registry.RegisterCondition(c)
	}

	return registry
}

// RegisterCondition adds a condition to the registry.
func (r *ConditionRegistryV1) RegisterCondition(condition Condition) error {
	if condition.Name == "" || condition.Check == nil {
		return fmt.Errorf("RegisterCondition: condition needs a name and a check function")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conditions[condition.Name]; exists {
		return fmt.Errorf("RegisterCondition: condition with name %s already registered", condition.Name)
	}

	r.conditions[condition.Name] = condition

	return nil
}

// GetCondition retrieves a condition by name.
func (r *ConditionRegistryV1) GetCondition(name string) (Condition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	condition, exists := r.conditions[name]
	if !exists {
		return Condition{}, fmt.Errorf("GetCondition: condition with name %s not found", name)
	}

	return condition, nil
}

// ListConditions returns all registered condition names, sorted.
func (r *ConditionRegistryV1) ListConditions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.conditions))
	for name := range r.conditions {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
