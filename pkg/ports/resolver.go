package ports

// DependencyResolver decides the execution order of one matrix column.
// Given the column vector (the i-th template of every agent row, empty
// strings included), it returns a permutation of agent indices.
//
// This is an extension point for future cross-reference-aware ordering; the
// shipped default is the identity permutation and callers should not assume
// anything smarter exists.
type DependencyResolver interface {
	ResolveColumn(column []string) ([]int, error)
}

// IdentityResolver orders agents by ascending row index, which is the
// canonical contract of the engine.
type IdentityResolver struct{}

// ResolveColumn returns 0..len(column)-1 in order.
func (IdentityResolver) ResolveColumn(column []string) ([]int, error) {
	order := make([]int, len(column))
	for i := range order {
		order[i] = i
	}
	return order, nil
}
