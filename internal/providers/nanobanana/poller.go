package nanobanana

import (
	"context"
	"fmt"
	"time"

	"fittingroom/internal/domain"
	"fittingroom/internal/infra"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollAttempts = 60

	msgTaskFailed = "task failed"
	msgNoResults  = "task succeeded without results"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits on a timer and stops early when ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type statusChecker interface {
	CheckStatus(ctx context.Context, taskID string) (*TaskStatus, error)
}

// PollerOptions tunes the poll loop. Zero values take the defaults.
type PollerOptions struct {
	Interval time.Duration
	Attempts int
	Sleep    SleepFunc
	Logger   *infra.Logger
}

// Poller waits for a submitted job to reach a terminal state. Status checks
// are strictly sequential: each attempt sleeps the full interval and then
// queries once. Stopping the loop never cancels the upstream job.
type Poller struct {
	checker  statusChecker
	interval time.Duration
	attempts int
	sleep    SleepFunc
	logger   *infra.Logger
}

// NewPoller builds a poller over checker.
func NewPoller(checker statusChecker, opts PollerOptions) *Poller {
	p := &Poller{
		checker:  checker,
		interval: opts.Interval,
		attempts: opts.Attempts,
		sleep:    opts.Sleep,
		logger:   infra.LoggerOrDiscard(opts.Logger),
	}
	if p.interval <= 0 {
		p.interval = DefaultPollInterval
	}
	if p.attempts <= 0 {
		p.attempts = DefaultPollAttempts
	}
	if p.sleep == nil {
		p.sleep = Sleep
	}
	return p
}

// Await polls job until it succeeds, fails or the attempt budget runs out.
// On success it returns the first result URL exactly as the upstream sent it.
// job.Status and job.Checks reflect every reading taken.
func (p *Poller) Await(ctx context.Context, job *domain.GenerationJob) (string, error) {
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err := p.sleep(ctx, p.interval); err != nil {
			return "", fmt.Errorf("nanobanana: polling task %s stopped: %w", job.ID, err)
		}

		status, err := p.checker.CheckStatus(ctx, job.ID)
		if err != nil {
			job.Checks++
			return "", err
		}
		if err := job.RecordCheck(status.Status); err != nil {
			return "", domain.WrapGenerationError(domain.CategoryUpstreamFailure, msgCheckFailed, err)
		}

		switch job.Status {
		case domain.JobStatusSucceeded:
			if len(status.ResultURLs) == 0 {
				return "", domain.NewGenerationError(domain.CategoryUpstreamFailure, msgNoResults)
			}
			p.logger.Debug().Str("task_id", job.ID).Int("checks", job.Checks).Msg("nanobanana: task succeeded")
			return status.ResultURLs[0], nil
		case domain.JobStatusFailed:
			reason := firstNonEmpty(status.FailureReason, status.Error, msgTaskFailed)
			p.logger.Debug().Str("task_id", job.ID).Int("checks", job.Checks).Str("reason", reason).Msg("nanobanana: task failed")
			return "", domain.NewGenerationError(domain.CategoryUpstreamFailure, reason)
		}
	}
	return "", domain.ErrPollTimeout
}
