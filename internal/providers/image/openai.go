package image

import (
	"context"
	"errors"

	"fittingroom/internal/domain"
	"fittingroom/internal/imageref"
	"fittingroom/internal/providers/openai"
)

type openAIImageClient interface {
	GenerateImage(context.Context, openai.ImageRequest) (*openai.ImageResult, error)
	HasCredentials() bool
}

// OpenAIGenerator renders the try-on in a single synchronous call and returns
// the image inline.
type OpenAIGenerator struct {
	client openAIImageClient
}

// NewOpenAIGenerator wraps an OpenAI Responses client.
func NewOpenAIGenerator(client openAIImageClient) *OpenAIGenerator {
	return &OpenAIGenerator{client: client}
}

func (g *OpenAIGenerator) Provider() domain.Provider {
	return domain.ProviderChatGPT
}

func (g *OpenAIGenerator) Configured() bool {
	return g != nil && g.client != nil && g.client.HasCredentials()
}

// Generate fulfils the Generator interface. Image references are forwarded
// without normalization.
func (g *OpenAIGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if !g.Configured() {
		return nil, domain.ErrProviderNotConfigured
	}
	res, err := g.client.GenerateImage(ctx, openai.ImageRequest{
		Instructions: TryOnSystemPrompt,
		Task:         TryOnTaskPrompt,
		PersonImage:  req.PersonImage.String(),
		ProductImage: req.ProductImage.String(),
		RequestID:    req.RequestID,
	})
	if err != nil {
		switch {
		case errors.Is(err, openai.ErrNoImage):
			return nil, domain.ErrNoImageProduced
		case errors.Is(err, openai.ErrMissingAPIKey):
			return nil, domain.ErrProviderNotConfigured
		}
		return nil, err
	}
	return &domain.GenerationResult{
		ImageLocator: imageref.InlinePNG(res.B64),
		Provider:     domain.ProviderChatGPT,
	}, nil
}

var _ Generator = (*OpenAIGenerator)(nil)
