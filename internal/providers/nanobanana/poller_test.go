package nanobanana

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fittingroom/internal/domain"
)

type scriptedChecker struct {
	script []*TaskStatus
	errAt  map[int]error
	calls  int
}

func (s *scriptedChecker) CheckStatus(_ context.Context, _ string) (*TaskStatus, error) {
	s.calls++
	if err, ok := s.errAt[s.calls]; ok {
		return nil, err
	}
	if s.calls <= len(s.script) {
		return s.script[s.calls-1], nil
	}
	return &TaskStatus{Status: domain.JobStatusRunning}, nil
}

type fakeClock struct {
	elapsed time.Duration
}

func (f *fakeClock) sleep(_ context.Context, d time.Duration) error {
	f.elapsed += d
	return nil
}

func running(n int) []*TaskStatus {
	out := make([]*TaskStatus, n)
	for i := range out {
		out[i] = &TaskStatus{Status: domain.JobStatusRunning}
	}
	return out
}

func TestAwaitSucceedsOnLastAttempt(t *testing.T) {
	checker := &scriptedChecker{script: append(running(59), &TaskStatus{
		Status:     domain.JobStatusSucceeded,
		ResultURLs: []string{"https://x/out.png"},
	})}
	clock := &fakeClock{}
	poller := NewPoller(checker, PollerOptions{Sleep: clock.sleep})
	job := domain.NewGenerationJob("job1")

	url, err := poller.Await(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "https://x/out.png", url)
	assert.Equal(t, 60, checker.calls)
	assert.Equal(t, 60, job.Checks)
	assert.Equal(t, domain.JobStatusSucceeded, job.Status)
	assert.GreaterOrEqual(t, clock.elapsed, 120*time.Second)
}

func TestAwaitTimesOut(t *testing.T) {
	checker := &scriptedChecker{script: running(60)}
	clock := &fakeClock{}
	poller := NewPoller(checker, PollerOptions{Sleep: clock.sleep})

	_, err := poller.Await(context.Background(), domain.NewGenerationJob("job1"))
	genErr, ok := domain.AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryTimeout, genErr.Category)
	assert.Equal(t, "timed out awaiting result", genErr.Error())
	assert.Equal(t, 60, checker.calls)
	assert.Equal(t, 120*time.Second, clock.elapsed)
}

func TestAwaitFailedShortCircuits(t *testing.T) {
	checker := &scriptedChecker{script: []*TaskStatus{{Status: domain.JobStatusFailed, FailureReason: "x", Error: "ignored"}}}
	poller := NewPoller(checker, PollerOptions{Sleep: (&fakeClock{}).sleep})
	job := domain.NewGenerationJob("job1")

	_, err := poller.Await(context.Background(), job)
	genErr, ok := domain.AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryUpstreamFailure, genErr.Category)
	assert.Equal(t, "x", genErr.Error())
	assert.Equal(t, 1, checker.calls)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
}

func TestAwaitFailedMessageFallbacks(t *testing.T) {
	tests := []struct {
		status *TaskStatus
		want   string
	}{
		{&TaskStatus{Status: domain.JobStatusFailed, Error: "nsfw content"}, "nsfw content"},
		{&TaskStatus{Status: domain.JobStatusFailed}, "task failed"},
	}
	for _, tc := range tests {
		checker := &scriptedChecker{script: []*TaskStatus{tc.status}}
		poller := NewPoller(checker, PollerOptions{Sleep: (&fakeClock{}).sleep})
		_, err := poller.Await(context.Background(), domain.NewGenerationJob("job1"))
		require.Error(t, err)
		assert.Equal(t, tc.want, err.Error())
	}
}

func TestAwaitStopsOnStatusCheckFailure(t *testing.T) {
	upstream := domain.NewGenerationError(domain.CategoryUpstreamFailure, "failed to check task status")
	checker := &scriptedChecker{script: running(5), errAt: map[int]error{3: upstream}}
	poller := NewPoller(checker, PollerOptions{Sleep: (&fakeClock{}).sleep})

	_, err := poller.Await(context.Background(), domain.NewGenerationJob("job1"))
	assert.ErrorIs(t, err, upstream)
	assert.Equal(t, 3, checker.calls)
}

func TestAwaitSucceededWithoutResults(t *testing.T) {
	checker := &scriptedChecker{script: []*TaskStatus{{Status: domain.JobStatusSucceeded}}}
	poller := NewPoller(checker, PollerOptions{Sleep: (&fakeClock{}).sleep})

	_, err := poller.Await(context.Background(), domain.NewGenerationJob("job1"))
	genErr, ok := domain.AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryUpstreamFailure, genErr.Category)
	assert.Equal(t, 1, checker.calls)
}

func TestAwaitHonoursContextCancellation(t *testing.T) {
	checker := &scriptedChecker{}
	poller := NewPoller(checker, PollerOptions{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := poller.Await(ctx, domain.NewGenerationJob("job1"))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, checker.calls)
}
