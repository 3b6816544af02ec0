package pods

import "slices"

// PodQuery defines criteria for querying pods.
type PodQuery struct {
	// State filters by creation state. nil matches every state.
	State *CreationState

	// Type filters by the printed type name, e.g. "*db.Pool".
	// Empty string matches all types.
	Type string

	// Disposable filters by whether a destroy side is registered.
	// nil matches all pods.
	Disposable *bool

	// DependsOn keeps only pods that directly depend on the named pod.
	DependsOn string
}

// Query returns information about the cached singletons matching query,
// in registration order.
//
// Example:
//
//	disposable := true
//	results := pods.Query(r, pods.PodQuery{Disposable: &disposable})
func Query(r *SingletonRegistry, query PodQuery) []PodInfo {
	var results []PodInfo

	for _, name := range r.SingletonNames() {
		info := r.Inspect(name)

		if query.State != nil && info.State != *query.State {
			continue
		}

		if query.Type != "" && info.Type != query.Type {
			continue
		}

		if query.Disposable != nil && info.Disposable != *query.Disposable {
			continue
		}

		if query.DependsOn != "" && !slices.Contains(info.Dependencies, r.CanonicalName(query.DependsOn)) {
			continue
		}

		results = append(results, info)
	}

	return results
}

// FindByType returns every cached singleton whose type prints as typeName.
func FindByType(r *SingletonRegistry, typeName string) []PodInfo {
	return Query(r, PodQuery{Type: typeName})
}

// FindDisposable returns every cached singleton with a registered destroy side.
func FindDisposable(r *SingletonRegistry) []PodInfo {
	disposable := true

	return Query(r, PodQuery{Disposable: &disposable})
}
