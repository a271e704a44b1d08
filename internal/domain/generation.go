package domain

import "strings"

// Provider selects the backend used to synthesize the try-on image.
type Provider string

const (
	// ProviderChatGPT is the synchronous request/response backend.
	ProviderChatGPT Provider = "chatgpt"
	// ProviderNanoBanana is the asynchronous submit-then-poll backend.
	ProviderNanoBanana Provider = "nanobanana"
)

// ParseProvider resolves the provider flag sent by the UI. An empty or
// unrecognized flag falls back to the synchronous provider.
func ParseProvider(s string) Provider {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderNanoBanana:
		return ProviderNanoBanana
	default:
		return ProviderChatGPT
	}
}

// ImageReference is either an inline data URI or a remote locator.
type ImageReference string

// Empty reports whether the reference carries nothing usable.
func (r ImageReference) Empty() bool {
	return strings.TrimSpace(string(r)) == ""
}

func (r ImageReference) String() string {
	return string(r)
}

// GenerationRequest is what the UI asks for: the person wearing the product.
type GenerationRequest struct {
	ProductImage ImageReference
	PersonImage  ImageReference
	Provider     Provider
	RequestID    string
}

// Validate enforces that both images are present.
func (r GenerationRequest) Validate() error {
	if r.ProductImage.Empty() || r.PersonImage.Empty() {
		return ErrMissingInput
	}
	return nil
}

// GenerationResult carries an opaque displayable image locator: an inline data
// URI for the synchronous provider, a remote URL for the asynchronous one.
type GenerationResult struct {
	ImageLocator string
	Provider     Provider
}
