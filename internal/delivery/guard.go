package delivery

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/domain"
	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// GuardOptions tunes the outbound protection of a transport.
type GuardOptions struct {
	RatePerSec float64
	// ConsecutiveFailures opens the breaker once exceeded.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// Guard rate limits a transport and stops calling it while it keeps failing.
type Guard struct {
	next    contract.Delivery
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
}

func NewGuard(next contract.Delivery, log zerolog.Logger, opts GuardOptions) *Guard {
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 1
	}
	if opts.ConsecutiveFailures == 0 {
		opts.ConsecutiveFailures = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	burst := int(math.Max(1, math.Ceil(opts.RatePerSec)))
	log = log.With().Str("comp", "delivery").Logger()

	return &Guard{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), burst),
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "delivery",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     opts.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > opts.ConsecutiveFailures
			},
			IsSuccessful: func(err error) bool {
				// an unsupported operation says nothing about the transport health
				return err == nil || errors.Is(err, domain.ErrDeliveryNotSupported)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			},
		}),
	}
}

func (g *Guard) Send(ctx context.Context, content string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	id, err := g.breaker.Execute(func() (string, error) {
		return g.next.Send(ctx, content)
	})
	return id, breakerError(err)
}

func (g *Guard) Remove(ctx context.Context, messageID string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	_, err := g.breaker.Execute(func() (string, error) {
		return "", g.next.Remove(ctx, messageID)
	})
	return breakerError(err)
}

func (g *Guard) CanRemove() bool {
	return g.next.CanRemove()
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.NewAppError(domain.ErrCodeUpstreamDelivery, "delivery transport unavailable", err)
	}
	return err
}
