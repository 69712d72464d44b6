package notify

import (
	"context"
	"errors"

	"github.com/alejandrodnm/orion-arb/internal/domain"
	"github.com/alejandrodnm/orion-arb/internal/ports"
)

// Multi fans every call out to a set of channels, continuing past individual
// channel failures and joining their errors.
type Multi struct {
	channels []ports.Notifier
}

// NewMulti builds a fan-out notifier over the given channels.
func NewMulti(channels ...ports.Notifier) *Multi {
	return &Multi{channels: channels}
}

func (m *Multi) NotifyOpportunity(ctx context.Context, opp domain.Opportunity) error {
	var errs []error
	for _, c := range m.channels {
		if err := c.NotifyOpportunity(ctx, opp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) NotifyExecution(ctx context.Context, result domain.ExecutionResult, opp *domain.Opportunity) error {
	var errs []error
	for _, c := range m.channels {
		if err := c.NotifyExecution(ctx, result, opp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) NotifyError(ctx context.Context, errType, message string) error {
	var errs []error
	for _, c := range m.channels {
		if err := c.NotifyError(ctx, errType, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) NotifyDailySummary(ctx context.Context, summary domain.PerformanceSummary, portfolio domain.PortfolioState) error {
	var errs []error
	for _, c := range m.channels {
		if err := c.NotifyDailySummary(ctx, summary, portfolio); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Test(ctx context.Context) error {
	var errs []error
	for _, c := range m.channels {
		if err := c.Test(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
