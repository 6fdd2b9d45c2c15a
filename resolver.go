package agentos

// Resolver computes a valid initialization order from declared dependency
// edges. Resolution is deterministic: the same input list always yields the
// same order, because nodes are visited in input order and edges in
// declaration order.
type Resolver struct{}

// NewResolver creates a dependency resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// visit markers for the depth-first topological sort.
type visitColor uint8

const (
	colorUnvisited visitColor = iota
	colorInProgress
	colorDone
)

// Resolve returns the descriptors reordered so that every module appears
// after all of its dependencies. It fails with a *CycleError when the graph
// contains a cycle (the full cycle path is captured) and with a
// *MissingDependencyError when an edge points outside the descriptor set —
// a missing dependency fails the whole resolution, never silently drops
// the edge.
func (r *Resolver) Resolve(descriptors []Descriptor) ([]Descriptor, error) {
	index := make(map[string]Descriptor, len(descriptors))
	for _, desc := range descriptors {
		index[desc.Name] = desc
	}

	colors := make(map[string]visitColor, len(descriptors))
	result := make([]Descriptor, 0, len(descriptors))
	// Stack of the current descent, used to reconstruct cycle paths.
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch colors[name] {
		case colorDone:
			return nil
		case colorInProgress:
			return &CycleError{Path: cyclePath(stack, name)}
		}

		colors[name] = colorInProgress
		stack = append(stack, name)

		for _, dep := range index[name].Dependencies {
			if _, exists := index[dep]; !exists {
				return &MissingDependencyError{Module: name, Missing: dep}
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		colors[name] = colorDone
		result = append(result, index[name])
		return nil
	}

	for _, desc := range descriptors {
		if err := visit(desc.Name); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Order is a convenience wrapper returning module names only.
func (r *Resolver) Order(descriptors []Descriptor) ([]string, error) {
	resolved, err := r.Resolve(descriptors)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(resolved))
	for i, desc := range resolved {
		names[i] = desc.Name
	}
	return names, nil
}

// cyclePath trims the descent stack to the segment forming the cycle and
// closes it by repeating the entry node. A self-reference yields [x, x].
func cyclePath(stack []string, entry string) []string {
	start := 0
	for i, name := range stack {
		if name == entry {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	path = append(path, stack[start:]...)
	path = append(path, entry)
	return path
}
