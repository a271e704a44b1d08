package image

import (
	"context"
	"sort"

	"fittingroom/internal/domain"
)

// Generator is the contract implemented by every try-on backend.
type Generator interface {
	// Generate returns one finished image for req. Implementations must fail
	// with domain.ErrProviderNotConfigured before any network call when they
	// have no usable credential.
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error)
	Provider() domain.Provider
	Configured() bool
}

// Registry maps provider flags to generators. It is built once at startup and
// only read afterwards.
type Registry struct {
	generators map[domain.Provider]Generator
}

// NewRegistry indexes generators by their provider.
func NewRegistry(generators ...Generator) *Registry {
	r := &Registry{generators: make(map[domain.Provider]Generator, len(generators))}
	for _, g := range generators {
		if g != nil {
			r.generators[g.Provider()] = g
		}
	}
	return r
}

// Get returns the generator registered for p.
func (r *Registry) Get(p domain.Provider) (Generator, bool) {
	if r == nil {
		return nil, false
	}
	g, ok := r.generators[p]
	return g, ok
}

// Status reports, per registered provider, whether it has credentials.
func (r *Registry) Status() map[string]bool {
	out := make(map[string]bool, len(r.generators))
	for p, g := range r.generators {
		out[string(p)] = g.Configured()
	}
	return out
}

// Providers lists registered providers in a stable order.
func (r *Registry) Providers() []domain.Provider {
	out := make([]domain.Provider, 0, len(r.generators))
	for p := range r.generators {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
