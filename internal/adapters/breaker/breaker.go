package breaker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/sony/gobreaker"
)

// Config tunes when a breaker opens and how long it stays open.
type Config struct {
	MaxRequests         uint32        // Probes allowed while half-open
	Interval            time.Duration // Closed-state count reset period
	Timeout             time.Duration // Open-state duration before probing
	ConsecutiveFailures uint32
	MinRequests         uint32
	FailureRatio        float64
}

// DefaultConfig trips after 5 consecutive failures, or a 50% failure ratio over at least 10 requests.
func DefaultConfig() Config {
	return Config{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
		MinRequests:         10,
		FailureRatio:        0.5,
	}
}

// Breaker guards calls to one external service.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// New creates a breaker that logs state transitions to logger.
func New(name string, cfg Config, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do runs fn through the breaker. Rejections by an open or half-open breaker wrap apperrors.ErrUpstream.
// Errors for which isSuccess returns true do not count as failures.
func (b *Breaker) Do(fn func() error, isSuccess func(error) bool) error {
	var passthrough error
	_, err := b.cb.Execute(func() (any, error) {
		err := fn()
		if err != nil && isSuccess != nil && isSuccess(err) {
			passthrough = err
			return nil, nil
		}
		return nil, err
	})
	if passthrough != nil {
		return passthrough
	}
	if errors.Is(err, gobreaker.ErrOpenState) {
		return fmt.Errorf("%w: %s is currently unavailable (circuit breaker open)", apperrors.ErrUpstream, b.name)
	}
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s is recovering (too many requests)", apperrors.ErrUpstream, b.name)
	}
	return err
}

// State reports the breaker state, e.g. "closed" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}
