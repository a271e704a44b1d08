package tryon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fittingroom/internal/domain"
	imageprovider "fittingroom/internal/providers/image"
	"fittingroom/internal/providers/nanobanana"
	"fittingroom/internal/providers/openai"
)

type stubGenerator struct {
	provider   domain.Provider
	configured bool
	result     *domain.GenerationResult
	err        error
	calls      int
}

func (s *stubGenerator) Generate(_ context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	s.calls++
	if !s.configured {
		return nil, domain.ErrProviderNotConfigured
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubGenerator) Provider() domain.Provider { return s.provider }
func (s *stubGenerator) Configured() bool          { return s.configured }

type recordedOutcome struct {
	provider, outcome string
}

type stubRecorder struct {
	outcomes []recordedOutcome
}

func (r *stubRecorder) RecordGeneration(provider, outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, recordedOutcome{provider, outcome})
}

func newService(gens ...imageprovider.Generator) (*Service, *stubRecorder) {
	rec := &stubRecorder{}
	return NewService(imageprovider.NewRegistry(gens...), rec, nil), rec
}

func TestGenerateMissingInputMakesNoCalls(t *testing.T) {
	sync := &stubGenerator{provider: domain.ProviderChatGPT, configured: true}
	async := &stubGenerator{provider: domain.ProviderNanoBanana, configured: true}
	svc, _ := newService(sync, async)

	requests := []domain.GenerationRequest{
		{},
		{ProductImage: "data:image/png;base64,AAA"},
		{PersonImage: "data:image/png;base64,BBB"},
		{PersonImage: "data:image/png;base64,BBB", Provider: domain.ProviderNanoBanana},
	}
	for _, req := range requests {
		_, err := svc.Generate(context.Background(), req)
		genErr, ok := domain.AsGenerationError(err)
		require.True(t, ok)
		assert.Equal(t, domain.CategoryMissingInput, genErr.Category)
		assert.Equal(t, http.StatusBadRequest, genErr.Category.HTTPStatus())
	}
	assert.Zero(t, sync.calls)
	assert.Zero(t, async.calls)
}

func TestGenerateDefaultsToSynchronousProvider(t *testing.T) {
	sync := &stubGenerator{provider: domain.ProviderChatGPT, configured: true, result: &domain.GenerationResult{ImageLocator: "data:image/png;base64,QUJD"}}
	async := &stubGenerator{provider: domain.ProviderNanoBanana, configured: true}
	svc, rec := newService(sync, async)

	for _, flag := range []domain.Provider{"", "chatgpt", "something-else"} {
		res, err := svc.Generate(context.Background(), domain.GenerationRequest{ProductImage: "a", PersonImage: "b", Provider: flag})
		require.NoError(t, err)
		assert.Equal(t, "data:image/png;base64,QUJD", res.ImageLocator)
	}
	assert.Equal(t, 3, sync.calls)
	assert.Zero(t, async.calls)
	require.Len(t, rec.outcomes, 3)
	assert.Equal(t, recordedOutcome{"chatgpt", "success"}, rec.outcomes[0])
}

func TestGenerateNotConfigured(t *testing.T) {
	sync := &stubGenerator{provider: domain.ProviderChatGPT}
	svc, rec := newService(sync)

	_, err := svc.Generate(context.Background(), domain.GenerationRequest{ProductImage: "a", PersonImage: "b"})
	genErr, ok := domain.AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryProviderNotConfigured, genErr.Category)
	assert.Equal(t, http.StatusInternalServerError, genErr.Category.HTTPStatus())

	_, err = svc.Generate(context.Background(), domain.GenerationRequest{ProductImage: "a", PersonImage: "b", Provider: domain.ProviderNanoBanana})
	genErr, ok = domain.AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryProviderNotConfigured, genErr.Category)
	assert.Equal(t, recordedOutcome{"nanobanana", "provider_not_configured"}, rec.outcomes[1])
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category domain.ErrorCategory
		status   int
		message  string
	}{
		{name: "rate substring", err: errors.New("rate limit reached for requests"), category: domain.CategoryRateLimited, status: 429, message: msgRateLimited},
		{name: "quota substring", err: errors.New("You exceeded your current quota"), category: domain.CategoryRateLimited, status: 429, message: msgRateLimited},
		{name: "incorrect key substring", err: errors.New("Incorrect API key provided: sk-abc"), category: domain.CategoryUnauthorized, status: 401, message: msgUnauthorized},
		{name: "invalid_api_key substring", err: errors.New("code invalid_api_key"), category: domain.CategoryUnauthorized, status: 401, message: msgUnauthorized},
		{name: "unknown verbatim", err: errors.New("something odd happened"), category: domain.CategoryUnknown, status: 500, message: "something odd happened"},
		{name: "structured 429", err: &openai.APIError{StatusCode: 429, Message: "slow down"}, category: domain.CategoryRateLimited, status: 429, message: msgRateLimited},
		{name: "structured quota code", err: &openai.APIError{StatusCode: 400, Code: "insufficient_quota", Message: "billing"}, category: domain.CategoryRateLimited, status: 429, message: msgRateLimited},
		{name: "structured 401", err: fmt.Errorf("wrapped: %w", &openai.APIError{StatusCode: 401, Message: "nope"}), category: domain.CategoryUnauthorized, status: 401, message: msgUnauthorized},
		{name: "structured other", err: &openai.APIError{StatusCode: 400, Code: "invalid_image", Message: "Invalid image"}, category: domain.CategoryUnknown, status: 500, message: "Invalid image (invalid_image)"},
		{name: "timeout passes through", err: domain.ErrPollTimeout, category: domain.CategoryTimeout, status: 500, message: "timed out awaiting result"},
		{name: "upstream passes through", err: domain.NewGenerationError(domain.CategoryUpstreamFailure, "x"), category: domain.CategoryUpstreamFailure, status: 500, message: "x"},
		{name: "request deadline", err: fmt.Errorf("Post \"https://api.openai.com/v1/responses\": %w", context.DeadlineExceeded), category: domain.CategoryTimeout, status: 500, message: msgTimedOut},
		{name: "cancel under upstream category", err: domain.WrapGenerationError(domain.CategoryUpstreamFailure, "failed to submit generation task", context.Canceled), category: domain.CategoryTimeout, status: 500, message: msgCancelled},
		{name: "cancel while polling", err: fmt.Errorf("nanobanana: polling task job1 stopped: %w", context.Canceled), category: domain.CategoryTimeout, status: 500, message: msgCancelled},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			genErr := Classify(tc.err)
			require.NotNil(t, genErr)
			assert.Equal(t, tc.category, genErr.Category)
			assert.Equal(t, tc.status, genErr.Category.HTTPStatus())
			assert.Equal(t, tc.message, genErr.Error())
		})
	}
	assert.Nil(t, Classify(nil))
}

type scriptedStatus struct {
	statuses []*nanobanana.TaskStatus
	calls    int
}

func (s *scriptedStatus) CheckStatus(_ context.Context, _ string) (*nanobanana.TaskStatus, error) {
	s.calls++
	return s.statuses[s.calls-1], nil
}

type submitOnly struct {
	lastReq nanobanana.SubmitRequest
}

func (s *submitOnly) Submit(_ context.Context, req nanobanana.SubmitRequest) (*domain.GenerationJob, error) {
	s.lastReq = req
	return domain.NewGenerationJob("job1"), nil
}

func (s *submitOnly) HasCredentials() bool { return true }

func TestGenerateAsyncEndToEnd(t *testing.T) {
	checker := &scriptedStatus{statuses: []*nanobanana.TaskStatus{{
		Status:     domain.JobStatusSucceeded,
		ResultURLs: []string{"https://x/out.png"},
	}}}
	poller := nanobanana.NewPoller(checker, nanobanana.PollerOptions{
		Sleep: func(context.Context, time.Duration) error { return nil },
	})
	client := &submitOnly{}
	svc, _ := newService(imageprovider.NewNanoBananaGenerator(client, poller))

	res, err := svc.Generate(context.Background(), domain.GenerationRequest{
		ProductImage: "data:image/png;base64,AAA",
		PersonImage:  "data:image/png;base64,BBB",
		Provider:     domain.ProviderNanoBanana,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://x/out.png", res.ImageLocator)
	assert.Equal(t, 1, checker.calls)
	assert.Len(t, client.lastReq.PersonImage, 2)
}

func TestGenerateCancelledIsNotAnUpstreamFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &stubGenerator{
		provider:   domain.ProviderNanoBanana,
		configured: true,
		err:        domain.NewGenerationError(domain.CategoryUpstreamFailure, "failed to submit generation task"),
	}
	svc, rec := newService(gen)
	cancel()

	_, err := svc.Generate(ctx, domain.GenerationRequest{
		ProductImage: "data:image/png;base64,AAA",
		PersonImage:  "data:image/png;base64,BBB",
		Provider:     domain.ProviderNanoBanana,
	})
	genErr, ok := domain.AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryTimeout, genErr.Category)
	assert.Equal(t, msgCancelled, genErr.Message)
	assert.Equal(t, []recordedOutcome{{"nanobanana", outcomeCancelled}}, rec.outcomes)
}

func TestGenerateAsyncAgainstQueueServer(t *testing.T) {
	var submits, checks int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer nb-live", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v1/images/generate":
			submits++
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Len(t, r.MultipartForm.File["imageFile"], 2)
			_, _ = w.Write([]byte(`{"code":0,"data":{"id":"job1","status":"running"}}`))
		case "/v1/images/result":
			checks++
			var body struct {
				TaskID string `json:"taskId"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "job1", body.TaskID)
			_, _ = w.Write([]byte(`{"code":0,"data":{"status":"succeeded","results":[{"url":"https://x/out.png"}]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := nanobanana.NewClient(nanobanana.Options{APIKey: "nb-live", BaseURL: srv.URL})
	poller := nanobanana.NewPoller(client, nanobanana.PollerOptions{
		Sleep: func(context.Context, time.Duration) error { return nil },
	})
	svc, rec := newService(imageprovider.NewNanoBananaGenerator(client, poller))

	res, err := svc.Generate(context.Background(), domain.GenerationRequest{
		ProductImage: "data:image/png;base64,AAA",
		PersonImage:  "data:image/png;base64,BBB",
		Provider:     "nanobanana",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://x/out.png", res.ImageLocator)
	assert.Equal(t, 1, submits)
	assert.Equal(t, 1, checks)
	assert.Equal(t, []recordedOutcome{{"nanobanana", outcomeSuccess}}, rec.outcomes)
}
