package pods

import "slices"

// dependencyGraph records which pods depend on which, keyed by canonical name.
// It is only used to order destruction, so it is allowed to contain cycles.
type dependencyGraph struct {
	dependents   map[string][]string // dependency -> pods that depend on it
	dependencies map[string][]string // dependent -> pods it depends on
	contained    map[string][]string // container -> pods it contains
}

// newDependencyGraph creates an empty graph.
func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		dependents:   make(map[string][]string),
		dependencies: make(map[string][]string),
		contained:    make(map[string][]string),
	}
}

// addDependent records that dependent depends on dependency.
func (g *dependencyGraph) addDependent(dependency, dependent string) {
	if slices.Contains(g.dependents[dependency], dependent) {
		return
	}

	g.dependents[dependency] = append(g.dependents[dependency], dependent)
	g.dependencies[dependent] = append(g.dependencies[dependent], dependency)
}

// addContained records an inner pod. The container is treated as a
// dependent of the contained pod.
func (g *dependencyGraph) addContained(contained, container string) {
	if !slices.Contains(g.contained[container], contained) {
		g.contained[container] = append(g.contained[container], contained)
	}

	g.addDependent(contained, container)
}

// isDependent reports whether dependent depends on name, directly or transitively.
func (g *dependencyGraph) isDependent(name, dependent string) bool {
	return g.reaches(name, dependent, make(map[string]struct{}))
}

func (g *dependencyGraph) reaches(name, dependent string, visited map[string]struct{}) bool {
	if _, seen := visited[name]; seen {
		return false
	}

	visited[name] = struct{}{}

	direct := g.dependents[name]
	if slices.Contains(direct, dependent) {
		return true
	}

	for _, next := range direct {
		if g.reaches(next, dependent, visited) {
			return true
		}
	}

	return false
}

// dependentsOf returns a copy of the direct dependents of name.
func (g *dependencyGraph) dependentsOf(name string) []string {
	return slices.Clone(g.dependents[name])
}

// dependenciesOf returns a copy of the direct dependencies of name.
func (g *dependencyGraph) dependenciesOf(name string) []string {
	return slices.Clone(g.dependencies[name])
}

// takeDependents removes and returns the dependents of name. Removing the
// entry first lets cascading destruction terminate on cycles.
func (g *dependencyGraph) takeDependents(name string) []string {
	deps := g.dependents[name]
	delete(g.dependents, name)

	return deps
}

// takeContained removes and returns the pods contained in name.
func (g *dependencyGraph) takeContained(name string) []string {
	contained := g.contained[name]
	delete(g.contained, name)

	return contained
}

// removeNode drops name from every edge list.
func (g *dependencyGraph) removeNode(name string) {
	delete(g.dependents, name)
	delete(g.contained, name)

	for _, dependency := range g.dependencies[name] {
		g.dependents[dependency] = slices.DeleteFunc(g.dependents[dependency], func(s string) bool { return s == name })
		if len(g.dependents[dependency]) == 0 {
			delete(g.dependents, dependency)
		}
	}

	delete(g.dependencies, name)

	for dependent, deps := range g.dependencies {
		g.dependencies[dependent] = slices.DeleteFunc(deps, func(s string) bool { return s == name })
	}
}

// nextRemovable picks the most recently registered candidate without live
// dependents. It returns false when every candidate is held up, which means
// the remaining candidates form (or hang off) a cycle.
func (g *dependencyGraph) nextRemovable(candidates []string, alive func(string) bool) (string, bool) {
	for i := len(candidates) - 1; i >= 0; i-- {
		name := candidates[i]

		blocked := false
		for _, dependent := range g.dependents[name] {
			if dependent != name && alive(dependent) {
				blocked = true

				break
			}
		}

		if !blocked {
			return name, true
		}
	}

	return "", false
}

// clear removes every edge.
func (g *dependencyGraph) clear() {
	g.dependents = make(map[string][]string)
	g.dependencies = make(map[string][]string)
	g.contained = make(map[string][]string)
}
