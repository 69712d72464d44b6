package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/orion-arb/internal/adapters/notify"
	"github.com/alejandrodnm/orion-arb/internal/domain"
)

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) NotifyOpportunity(context.Context, domain.Opportunity) error {
	s.calls++
	return s.err
}
func (s *stubNotifier) NotifyExecution(context.Context, domain.ExecutionResult, *domain.Opportunity) error {
	s.calls++
	return s.err
}
func (s *stubNotifier) NotifyError(context.Context, string, string) error {
	s.calls++
	return s.err
}
func (s *stubNotifier) NotifyDailySummary(context.Context, domain.PerformanceSummary, domain.PortfolioState) error {
	s.calls++
	return s.err
}
func (s *stubNotifier) Test(context.Context) error {
	s.calls++
	return s.err
}

func TestMulti_FansOutToEveryChannel(t *testing.T) {
	a := &stubNotifier{}
	b := &stubNotifier{}
	m := notify.NewMulti(a, b)

	err := m.NotifyOpportunity(context.Background(), domain.Opportunity{})
	assert.NoError(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestMulti_OneChannelFailureDoesNotStopOthers(t *testing.T) {
	failing := &stubNotifier{err: errors.New("telegram down")}
	working := &stubNotifier{}
	m := notify.NewMulti(failing, working)

	err := m.NotifyError(context.Background(), "test", "message")
	assert.Error(t, err)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, working.calls)
}
