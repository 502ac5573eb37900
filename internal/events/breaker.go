package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
)

// BreakerConfig tunes the circuit breaker in front of a publisher.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker (default: 5)
	ConsecutiveFailures int

	// OpenTimeout is how long the breaker stays open before probing (default: 30s)
	OpenTimeout time.Duration

	Logger *slog.Logger
}

// BreakerPublisher short-circuits publishing while the broker keeps failing.
type BreakerPublisher struct {
	next    Publisher
	breaker circuitbreaker.CircuitBreaker[struct{}]
}

// NewBreakerPublisher wraps next with a circuit breaker.
func NewBreakerPublisher(next Publisher, cfg BreakerConfig) *BreakerPublisher {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &BreakerPublisher{
		next: next,
		breaker: circuitbreaker.New[struct{}](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     timeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return int(counts.ConsecutiveFailures) >= failures
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Warn("event publisher circuit breaker state change",
					"from", from.String(),
					"to", to.String())
			},
		}),
	}
}

// Publish forwards evt unless the breaker is open.
func (p *BreakerPublisher) Publish(ctx context.Context, evt Event) error {
	_, err := p.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.next.Publish(ctx, evt)
	})
	return err
}

var _ Publisher = (*BreakerPublisher)(nil)
