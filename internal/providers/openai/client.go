package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fittingroom/internal/infra"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o"
	defaultTimeout = 120 * time.Second

	outputTypeImageGeneration = "image_generation_call"
)

// Options configures the Responses API client.
type Options struct {
	APIKey       string
	Placeholder  string
	BaseURL      string
	Model        string
	Organization string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	Timeout      time.Duration
}

// Client performs image generation through the OpenAI Responses API with the
// image_generation tool. It is built once at startup and shared read-only.
// Calls are never retried.
type Client struct {
	apiKey       string
	placeholder  string
	baseURL      string
	model        string
	organization string
	httpClient   *http.Client
	logger       *infra.Logger
}

// NewClient constructs a client with defaults applied.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	placeholder := opts.Placeholder
	if placeholder == "" {
		placeholder = infra.OpenAIKeyPlaceholder
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		placeholder:  placeholder,
		baseURL:      baseURL,
		model:        model,
		organization: strings.TrimSpace(opts.Organization),
		httpClient:   httpClient,
		logger:       infra.LoggerOrDiscard(opts.Logger),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether a real key is configured.
func (c *Client) HasCredentials() bool {
	return infra.IsConfigured(c.apiKey, c.placeholder)
}

var (
	// ErrMissingAPIKey is returned when the client is used without a real key.
	ErrMissingAPIKey = errors.New("openai: api key not configured")
	// ErrNoImage is returned when the response carries no image_generation_call result.
	ErrNoImage = errors.New("openai: response contained no generated image")
)

// ImageRequest carries one try-on generation. Image references are forwarded
// as given; the API fetches remote locators itself.
type ImageRequest struct {
	Instructions string
	Task         string
	PersonImage  string
	ProductImage string
	RequestID    string
}

// ImageResult is the base64 payload produced by the image_generation tool.
type ImageResult struct {
	ResponseID string
	B64        string
}

// GenerateImage sends a single Responses API call with the image_generation
// tool enabled and returns the first generated image.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}

	payload := responsesRequest{
		Model: c.model,
		Input: []inputMessage{
			{Role: "developer", Content: req.Instructions},
			{Role: "user", Content: []inputContent{
				{Type: "input_image", ImageURL: req.PersonImage, Detail: "high"},
				{Type: "input_image", ImageURL: req.ProductImage, Detail: "high"},
				{Type: "input_text", Text: req.Task},
			}},
		},
		Tools: []tool{{Type: "image_generation", Quality: "high", InputFidelity: "high"}},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("openai: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", &buf)
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.organization)
	}
	if req.RequestID != "" {
		httpReq.Header.Set("X-Client-Request-Id", req.RequestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: http request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, raw)
	}

	var decoded responsesResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: decoded.Error.Code, Type: decoded.Error.Type, Message: decoded.Error.Message}
	}
	result := firstImageResult(decoded)
	if result == "" {
		return nil, ErrNoImage
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("response_id", decoded.ID).
		Str("request_id", req.RequestID).
		Dur("elapsed", time.Since(start)).
		Msg("openai: image generated")
	return &ImageResult{ResponseID: decoded.ID, B64: result}, nil
}

func firstImageResult(resp responsesResponse) string {
	for _, item := range resp.Output {
		if item.Type != outputTypeImageGeneration {
			continue
		}
		if result := strings.TrimSpace(item.Result); result != "" {
			return result
		}
	}
	return ""
}

func parseAPIError(status int, raw []byte) error {
	var detail errorEnvelope
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Error != nil && detail.Error.Message != "" {
		return &APIError{
			StatusCode: status,
			Code:       detail.Error.Code,
			Type:       detail.Error.Type,
			Message:    detail.Error.Message,
		}
	}
	return &APIError{StatusCode: status, Message: fmt.Sprintf("openai status %d: %s", status, strings.TrimSpace(string(raw)))}
}

// APIError is a non-2xx answer from the OpenAI API.
type APIError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// AsAPIError extracts an *APIError from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr, true
	}
	return nil, false
}
