package pods

import (
	"slices"
	"sync"
)

// AliasRegistry maps alternate names onto canonical pod names.
//
// The alias graph is kept acyclic: every registration checks that the new
// edge does not close a loop, so CanonicalName always terminates.
type AliasRegistry struct {
	aliases       map[string]string // alias -> target
	order         []string          // alias registration order
	allowOverride bool
	mu            sync.RWMutex
}

// NewAliasRegistry creates an empty alias registry.
func NewAliasRegistry(allowOverriding bool) *AliasRegistry {
	return &AliasRegistry{
		aliases:       make(map[string]string),
		allowOverride: allowOverriding,
	}
}

// RegisterAlias registers alias as an alternate name for target.
func (a *AliasRegistry) RegisterAlias(target, alias string) error {
	if target == "" {
		return NewConfigurationError("", "alias target must not be empty")
	}

	if alias == "" {
		return NewConfigurationError(target, "alias must not be empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if alias == target {
		a.remove(alias)

		return nil
	}

	if existing, ok := a.aliases[alias]; ok {
		if existing == target {
			return nil
		}

		if !a.allowOverride {
			return ErrAliasTaken(alias, target, existing)
		}
	}

	if a.hasAlias(alias, target) {
		return ErrAliasCycle(target, alias)
	}

	a.put(alias, target)

	return nil
}

// RemoveAlias removes a registered alias.
func (a *AliasRegistry) RemoveAlias(alias string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.aliases[alias]; !ok {
		return ErrPodNotFound(alias)
	}

	a.remove(alias)

	return nil
}

// IsAlias reports whether name is registered as an alias.
func (a *AliasRegistry) IsAlias(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, ok := a.aliases[name]

	return ok
}

// HasAlias reports whether alias resolves, directly or transitively, to target.
func (a *AliasRegistry) HasAlias(target, alias string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.hasAlias(target, alias)
}

// Aliases returns every alias that resolves to name, in registration order.
func (a *AliasRegistry) Aliases(name string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var result []string
	a.collect(name, &result)

	return result
}

// CanonicalName follows the alias chain of name to its ultimate target.
func (a *AliasRegistry) CanonicalName(name string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.canonical(name)
}

// ResolveAliases rewrites every alias and target through resolve. An empty
// result, or an alias that resolves onto its own target, drops the edge.
func (a *AliasRegistry) ResolveAliases(resolve func(string) string) error {
	if resolve == nil {
		return NewConfigurationError("", "alias resolver must not be nil")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, alias := range slices.Clone(a.order) {
		target, ok := a.aliases[alias]
		if !ok {
			continue
		}

		resolvedAlias := resolve(alias)
		resolvedTarget := resolve(target)

		switch {
		case resolvedAlias == "" || resolvedTarget == "" || resolvedAlias == resolvedTarget:
			a.remove(alias)
		case resolvedAlias != alias:
			if existing, ok := a.aliases[resolvedAlias]; ok {
				if existing == resolvedTarget {
					// Already present under its resolved form.
					a.remove(alias)

					continue
				}

				return ErrAliasTaken(resolvedAlias, resolvedTarget, existing)
			}

			if a.hasAlias(resolvedAlias, resolvedTarget) {
				return ErrAliasCycle(resolvedTarget, resolvedAlias)
			}

			a.remove(alias)
			a.put(resolvedAlias, resolvedTarget)
		case target != resolvedTarget:
			if a.hasAlias(alias, resolvedTarget) {
				return ErrAliasCycle(resolvedTarget, alias)
			}

			a.aliases[alias] = resolvedTarget
		}
	}

	return nil
}

// removeAliasesFor drops every alias that resolves to target.
func (a *AliasRegistry) removeAliasesFor(target string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var aliases []string
	a.collect(target, &aliases)

	for _, alias := range aliases {
		a.remove(alias)
	}
}

// clear removes every alias.
func (a *AliasRegistry) clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.aliases = make(map[string]string)
	a.order = nil
}

// hasAlias walks existing edges from target looking for alias (must hold mu).
func (a *AliasRegistry) hasAlias(target, alias string) bool {
	for _, registered := range a.order {
		if a.aliases[registered] != target {
			continue
		}

		if registered == alias || a.hasAlias(registered, alias) {
			return true
		}
	}

	return false
}

func (a *AliasRegistry) collect(name string, result *[]string) {
	for _, alias := range a.order {
		if a.aliases[alias] == name {
			*result = append(*result, alias)
			a.collect(alias, result)
		}
	}
}

func (a *AliasRegistry) canonical(name string) string {
	for {
		target, ok := a.aliases[name]
		if !ok {
			return name
		}

		name = target
	}
}

func (a *AliasRegistry) put(alias, target string) {
	if _, ok := a.aliases[alias]; !ok {
		a.order = append(a.order, alias)
	}

	a.aliases[alias] = target
}

func (a *AliasRegistry) remove(alias string) {
	if _, ok := a.aliases[alias]; !ok {
		return
	}

	delete(a.aliases, alias)
	a.order = slices.DeleteFunc(a.order, func(s string) bool { return s == alias })
}
