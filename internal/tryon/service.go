package tryon

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"fittingroom/internal/domain"
	"fittingroom/internal/imageref"
	"fittingroom/internal/infra"
	imageprovider "fittingroom/internal/providers/image"
	"fittingroom/internal/providers/openai"
)

const (
	msgRateLimited  = "API usage limit reached. Try again later."
	msgUnauthorized = "Invalid provider API key. Check the server configuration."
	msgTimedOut     = "provider request timed out"
	msgCancelled    = "request cancelled before the provider answered"

	outcomeSuccess   = "success"
	outcomeCancelled = "cancelled"
)

// Recorder receives one observation per finished generation.
type Recorder interface {
	RecordGeneration(provider, outcome string, duration time.Duration)
}

// Service routes a generation request to the selected provider and folds
// every failure into the GenerationError taxonomy.
type Service struct {
	registry *imageprovider.Registry
	recorder Recorder
	logger   *infra.Logger
	now      func() time.Time
}

// NewService builds the dispatcher. recorder and logger may be nil.
func NewService(registry *imageprovider.Registry, recorder Recorder, logger *infra.Logger) *Service {
	return &Service{
		registry: registry,
		recorder: recorder,
		logger:   infra.LoggerOrDiscard(logger),
		now:      time.Now,
	}
}

// Generate validates req, runs the selected provider and returns exactly one
// image or one *domain.GenerationError.
func (s *Service) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Provider = domain.ParseProvider(string(req.Provider))
	s.logger.Debug().
		Str("provider", string(req.Provider)).
		Str("request_id", req.RequestID).
		Str("product_type", imageref.MIMEType(req.ProductImage.String())).
		Str("person_type", imageref.MIMEType(req.PersonImage.String())).
		Msg("tryon: dispatching")

	start := s.now()
	res, err := s.dispatch(ctx, req)
	elapsed := s.now().Sub(start)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			s.record(req.Provider, outcomeCancelled, elapsed)
			s.logger.Debug().Err(err).
				Str("provider", string(req.Provider)).
				Str("request_id", req.RequestID).
				Dur("elapsed", elapsed).
				Msg("tryon: generation cancelled")
			return nil, domain.WrapGenerationError(domain.CategoryTimeout, msgCancelled, err)
		}
		genErr := Classify(err)
		s.record(req.Provider, string(genErr.Category), elapsed)
		evt := s.logger.Warn()
		if genErr.Category == domain.CategoryUnknown {
			evt = s.logger.Error()
		}
		evt.Err(err).
			Str("provider", string(req.Provider)).
			Str("category", string(genErr.Category)).
			Str("request_id", req.RequestID).
			Dur("elapsed", elapsed).
			Msg("tryon: generation failed")
		return nil, genErr
	}

	s.record(req.Provider, outcomeSuccess, elapsed)
	s.logger.Info().
		Str("provider", string(req.Provider)).
		Str("request_id", req.RequestID).
		Dur("elapsed", elapsed).
		Msg("tryon: generation succeeded")
	return res, nil
}

func (s *Service) dispatch(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	gen, ok := s.registry.Get(req.Provider)
	if !ok {
		return nil, domain.ErrProviderNotConfigured
	}
	return gen.Generate(ctx, req)
}

func (s *Service) record(provider domain.Provider, outcome string, elapsed time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordGeneration(string(provider), outcome, elapsed)
	}
}

// ProviderStatus reports whether each registered provider has credentials.
func (s *Service) ProviderStatus() map[string]bool {
	return s.registry.Status()
}

// Classify maps any provider error onto the taxonomy. Cancellation wins over
// any category attached on the way up, other errors that already carry a
// category pass through. Structured OpenAI errors are mapped by status
// and code; everything else falls back to matching the message text, which
// only works while the upstream keeps its English wording.
func Classify(err error) *domain.GenerationError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return domain.WrapGenerationError(domain.CategoryTimeout, msgCancelled, err)
	}
	if genErr, ok := domain.AsGenerationError(err); ok {
		return genErr
	}
	if apiErr, ok := openai.AsAPIError(err); ok {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.Code == "rate_limit_exceeded",
			apiErr.Code == "insufficient_quota":
			return domain.WrapGenerationError(domain.CategoryRateLimited, msgRateLimited, err)
		case apiErr.StatusCode == http.StatusUnauthorized,
			apiErr.Code == "invalid_api_key":
			return domain.WrapGenerationError(domain.CategoryUnauthorized, msgUnauthorized, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapGenerationError(domain.CategoryTimeout, msgTimedOut, err)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "quota"), strings.Contains(msg, "rate"):
		return domain.WrapGenerationError(domain.CategoryRateLimited, msgRateLimited, err)
	case strings.Contains(msg, "invalid_api_key"), strings.Contains(msg, "Incorrect API key"):
		return domain.WrapGenerationError(domain.CategoryUnauthorized, msgUnauthorized, err)
	}
	return domain.WrapGenerationError(domain.CategoryUnknown, msg, err)
}
