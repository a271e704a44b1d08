package image

import (
	"context"

	"fittingroom/internal/domain"
	"fittingroom/internal/imageref"
	"fittingroom/internal/providers/nanobanana"
)

type nanoBananaClient interface {
	Submit(context.Context, nanobanana.SubmitRequest) (*domain.GenerationJob, error)
	HasCredentials() bool
}

type jobAwaiter interface {
	Await(context.Context, *domain.GenerationJob) (string, error)
}

type referenceResolver interface {
	Resolve(ctx context.Context, ref string) ([]byte, error)
}

// PollObserver is told how many status checks a finished job needed.
type PollObserver func(provider domain.Provider, checks int)

// NanoBananaGenerator submits an image-to-image job and blocks on the poller
// until the job reaches a terminal state or the attempt budget is spent.
type NanoBananaGenerator struct {
	client   nanoBananaClient
	poller   jobAwaiter
	resolver referenceResolver
	observe  PollObserver
}

// NanoBananaOption customises a NanoBananaGenerator.
type NanoBananaOption func(*NanoBananaGenerator)

// WithReferenceResolver makes remote image locators get downloaded before
// upload. Without one, non-inline references are sent as their raw bytes.
func WithReferenceResolver(r referenceResolver) NanoBananaOption {
	return func(g *NanoBananaGenerator) {
		g.resolver = r
	}
}

// WithPollObserver registers a callback fired after every poll loop.
func WithPollObserver(fn PollObserver) NanoBananaOption {
	return func(g *NanoBananaGenerator) {
		g.observe = fn
	}
}

// NewNanoBananaGenerator wires a submit client with a poller.
func NewNanoBananaGenerator(client nanoBananaClient, poller jobAwaiter, opts ...NanoBananaOption) *NanoBananaGenerator {
	g := &NanoBananaGenerator{client: client, poller: poller}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *NanoBananaGenerator) Provider() domain.Provider {
	return domain.ProviderNanoBanana
}

func (g *NanoBananaGenerator) Configured() bool {
	return g != nil && g.client != nil && g.poller != nil && g.client.HasCredentials()
}

// Generate fulfils the Generator interface. The returned locator is the URL
// reported by the upstream, unmodified.
func (g *NanoBananaGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if !g.Configured() {
		return nil, domain.ErrProviderNotConfigured
	}

	person, err := g.normalize(ctx, req.PersonImage)
	if err != nil {
		return nil, err
	}
	product, err := g.normalize(ctx, req.ProductImage)
	if err != nil {
		return nil, err
	}

	job, err := g.client.Submit(ctx, nanobanana.SubmitRequest{
		Prompt:       AccessoryEditPrompt,
		PersonImage:  person,
		ProductImage: product,
		RequestID:    req.RequestID,
	})
	if err != nil {
		return nil, err
	}

	url, err := g.poller.Await(ctx, job)
	if g.observe != nil {
		g.observe(domain.ProviderNanoBanana, job.Checks)
	}
	if err != nil {
		return nil, err
	}
	return &domain.GenerationResult{ImageLocator: url, Provider: domain.ProviderNanoBanana}, nil
}

func (g *NanoBananaGenerator) normalize(ctx context.Context, ref domain.ImageReference) ([]byte, error) {
	if g.resolver == nil || imageref.IsInline(ref.String()) {
		return imageref.Decode(ref.String()), nil
	}
	data, err := g.resolver.Resolve(ctx, ref.String())
	if err != nil {
		return nil, domain.WrapGenerationError(domain.CategoryUpstreamFailure, "failed to fetch image reference", err)
	}
	return data, nil
}

var _ Generator = (*NanoBananaGenerator)(nil)
