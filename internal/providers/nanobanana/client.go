package nanobanana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"fittingroom/internal/domain"
	"fittingroom/internal/infra"
)

const (
	defaultBaseURL    = "https://api.nanobananaapi.dev"
	defaultModel      = "gemini-3-pro-image-preview"
	defaultSubmitPath = "/v1/images/generate"
	defaultResultPath = "/v1/images/result"
	defaultTimeout    = 60 * time.Second

	msgSubmitFailed = "failed to submit generation task"
	msgCheckFailed  = "failed to check task status"
)

// Options configures the queue-backed image API client.
type Options struct {
	APIKey      string
	Placeholder string
	BaseURL     string
	Model       string
	SubmitPath  string
	ResultPath  string
	HTTPClient  *http.Client
	Logger      *infra.Logger
	Timeout     time.Duration
}

// Client submits image-to-image jobs and reads their status.
type Client struct {
	apiKey      string
	placeholder string
	baseURL     string
	model       string
	submitPath  string
	resultPath  string
	httpClient  *http.Client
	logger      *infra.Logger
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
	placeholder := opts.Placeholder
	if placeholder == "" {
		placeholder = infra.NanoBananaKeyPlaceholder
	}
	return &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		placeholder: placeholder,
		baseURL:     strings.TrimRight(firstNonEmpty(opts.BaseURL, defaultBaseURL), "/"),
		model:       firstNonEmpty(opts.Model, defaultModel),
		submitPath:  ensureLeadingSlash(firstNonEmpty(opts.SubmitPath, defaultSubmitPath)),
		resultPath:  ensureLeadingSlash(firstNonEmpty(opts.ResultPath, defaultResultPath)),
		httpClient:  httpClient,
		logger:      infra.LoggerOrDiscard(opts.Logger),
	}
}

// Model returns the configured model variant.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether a real key is configured.
func (c *Client) HasCredentials() bool {
	return infra.IsConfigured(c.apiKey, c.placeholder)
}

// SubmitRequest is one image-to-image job. Images are raw bytes.
type SubmitRequest struct {
	Prompt       string
	PersonImage  []byte
	ProductImage []byte
	RequestID    string
}

// Submit uploads the job and returns it in the running state. It does not wait
// for the result.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*domain.GenerationJob, error) {
	if !c.HasCredentials() {
		return nil, domain.ErrProviderNotConfigured
	}

	body, contentType, err := c.encodeSubmitForm(req)
	if err != nil {
		return nil, fmt.Errorf("nanobanana: encode form: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.submitPath, body)
	if err != nil {
		return nil, fmt.Errorf("nanobanana: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var decoded submitResponse
	status, err := c.do(httpReq, &decoded)
	if err != nil {
		return nil, domain.WrapGenerationError(domain.CategoryUpstreamFailure, msgSubmitFailed, err)
	}
	if status != http.StatusOK || decoded.Code != 0 || strings.TrimSpace(decoded.Data.ID) == "" {
		return nil, domain.NewGenerationError(domain.CategoryUpstreamFailure, firstNonEmpty(decoded.Message, msgSubmitFailed))
	}

	job := domain.NewGenerationJob(strings.TrimSpace(decoded.Data.ID))
	c.logger.Debug().
		Str("task_id", job.ID).
		Str("request_id", req.RequestID).
		Str("upstream_status", decoded.Data.Status).
		Msg("nanobanana: task submitted")
	return job, nil
}

// TaskStatus is one reading of a job's state.
type TaskStatus struct {
	Status        domain.JobStatus
	ResultURLs    []string
	FailureReason string
	Error         string
}

// CheckStatus queries the result endpoint once. A non-OK HTTP status is an
// upstream failure; the status field itself is not interpreted here.
func (c *Client) CheckStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(statusRequest{TaskID: taskID}); err != nil {
		return nil, fmt.Errorf("nanobanana: encode status request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.resultPath, &buf)
	if err != nil {
		return nil, fmt.Errorf("nanobanana: build status request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var decoded statusResponse
	status, err := c.do(httpReq, &decoded)
	if err != nil {
		return nil, domain.WrapGenerationError(domain.CategoryUpstreamFailure, msgCheckFailed, err)
	}
	if status != http.StatusOK {
		return nil, domain.NewGenerationError(domain.CategoryUpstreamFailure, firstNonEmpty(decoded.Message, msgCheckFailed))
	}

	out := &TaskStatus{
		Status:        domain.ParseJobStatus(strings.ToLower(strings.TrimSpace(decoded.Data.Status))),
		FailureReason: strings.TrimSpace(decoded.Data.FailureReason),
		Error:         strings.TrimSpace(decoded.Data.Error),
	}
	for _, r := range decoded.Data.Results {
		if url := strings.TrimSpace(r.URL); url != "" {
			out.ResultURLs = append(out.ResultURLs, url)
		}
	}
	return out, nil
}

// do executes req and decodes a JSON body into out when one is present. The
// HTTP status is returned even when the body does not decode.
func (c *Client) do(req *http.Request, out any) (int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("nanobanana: http request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("nanobanana: read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, fmt.Errorf("nanobanana: decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func (c *Client) encodeSubmitForm(req SubmitRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"prompt", req.Prompt},
		{"model", c.model},
		{"mode", "image-to-image"},
		{"aspectRatio", "auto"},
		{"imageSize", "2K"},
		{"outputFormat", "png"},
		{"isPublic", "false"},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	images := []struct {
		filename string
		data     []byte
	}{
		{"person.png", req.PersonImage},
		{"product.png", req.ProductImage},
	}
	for _, img := range images {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="imageFile"; filename="%s"`, img.filename))
		header.Set("Content-Type", "image/png")
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(img.data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func ensureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
