package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/txn_processor/internal/adapters/broker"
	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/SscSPs/txn_processor/internal/adapters/lock"
	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/SscSPs/txn_processor/internal/core/ports/gateways"
	portssvc "github.com/SscSPs/txn_processor/internal/core/ports/services"
	"github.com/SscSPs/txn_processor/internal/dto"
	"github.com/SscSPs/txn_processor/internal/middleware"
	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

const maxRetryBackoff = 30 * time.Second

// MessageReader is the subset of *kafka.Reader a worker needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RawDeadLetterPublisher dead-letters payloads that never decoded into an event.
type RawDeadLetterPublisher interface {
	PublishRaw(ctx context.Context, key, payload []byte, reason string) error
}

// Consumer drives requested-transaction messages through the dispatcher.
//
// A message's offset is committed once it reached a final outcome: processed,
// rejected, skipped as a redelivery, or dead-lettered as undecodable. Fatal errors
// are retried in place; once the retry budget is spent the worker stops without
// committing so the broker redelivers after restart.
type Consumer struct {
	dispatcher   portssvc.DispatcherSvc
	locker       gateways.Locker
	outcomes     gateways.OutcomePublisher
	deadLetters  RawDeadLetterPublisher
	logger       *slog.Logger
	retryLimit   int
	retryBackoff time.Duration
	timer        backoff.Timer // nil uses the library's real timer
}

// Option is a functional option for configuring the Consumer
type Option func(*Consumer)

// WithRetryPolicy sets how many times a fatal error is retried and the initial backoff.
// The backoff doubles after each attempt, capped at 30s.
func WithRetryPolicy(limit int, backoff time.Duration) Option {
	return func(c *Consumer) {
		if limit >= 0 {
			c.retryLimit = limit
		}
		if backoff > 0 {
			c.retryBackoff = backoff
		}
	}
}

// WithLocker serialises processing of one transaction id across workers and replicas.
func WithLocker(locker gateways.Locker) Option {
	return func(c *Consumer) {
		if locker != nil {
			c.locker = locker
		}
	}
}

// WithOutcomePublisher announces terminal outcomes after they are persisted.
func WithOutcomePublisher(outcomes gateways.OutcomePublisher) Option {
	return func(c *Consumer) {
		if outcomes != nil {
			c.outcomes = outcomes
		}
	}
}

// New creates a consumer.
func New(dispatcher portssvc.DispatcherSvc, deadLetters RawDeadLetterPublisher, logger *slog.Logger, options ...Option) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Consumer{
		dispatcher:   dispatcher,
		locker:       lock.NoopLocker{},
		outcomes:     broker.NoopOutcomePublisher{},
		deadLetters:  deadLetters,
		logger:       logger,
		retryLimit:   5,
		retryBackoff: time.Second,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Run starts one worker per reader and blocks until they all stop.
// It returns nil on context cancellation and the first worker error otherwise.
// Readers are closed on return.
func (c *Consumer) Run(ctx context.Context, readers ...MessageReader) error {
	if len(readers) == 0 {
		return errors.New("consumer: no readers")
	}

	g, gctx := errgroup.WithContext(ctx)
	for workerID, r := range readers {
		g.Go(func() error {
			defer func() {
				if err := r.Close(); err != nil {
					c.logger.Warn("Failed to close reader", slog.Int("worker", workerID), slog.String("error", err.Error()))
				}
			}()
			return c.runWorker(gctx, workerID, r)
		})
	}
	return g.Wait()
}

func (c *Consumer) runWorker(ctx context.Context, workerID int, r MessageReader) error {
	logger := c.logger.With(slog.Int("worker", workerID))
	logger.Info("Consumer worker started")
	defer logger.Info("Consumer worker stopped")

	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("worker %d: fetching message: %w", workerID, err)
		}

		if err := c.handleWithRetry(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("Giving up on message; offset not committed",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()))
			return fmt.Errorf("worker %d: partition %d offset %d: %w", workerID, msg.Partition, msg.Offset, err)
		}

		if err := r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("worker %d: committing offset %d: %w", workerID, msg.Offset, err)
		}
	}
}

// retryPolicy doubles the backoff from retryBackoff up to maxRetryBackoff, for at most retryLimit retries.
func (c *Consumer) retryPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryBackoff
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = maxRetryBackoff
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.retryLimit)), ctx)
}

func (c *Consumer) handleWithRetry(ctx context.Context, msg kafka.Message) error {
	attempt := 0
	operation := func() error {
		err := c.Handle(ctx, msg)
		if errors.Is(err, apperrors.ErrSettledNotSaved) {
			// The ledger already moved; dispatching again would move it twice.
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		attempt++
		c.logger.Warn("Retrying message after fatal error",
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", next),
			slog.String("error", err.Error()))
	}
	return backoff.RetryNotifyWithTimer(operation, c.retryPolicy(ctx), notify, c.timer)
}

// Handle processes one message. A nil return means the offset may be committed.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	logger := c.logger.With(
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	ctx = middleware.WithLogger(ctx, logger)

	decoded, err := dto.DecodeTransactionRequested(msg.Value)
	if err != nil {
		logger.Warn("Rejecting undecodable message", slog.String("key", string(msg.Key)), slog.String("error", err.Error()))
		if dlqErr := c.deadLetters.PublishRaw(ctx, msg.Key, msg.Value, err.Error()); dlqErr != nil {
			return fmt.Errorf("dead-lettering undecodable message: %w", dlqErr)
		}
		return nil
	}

	event := decoded.ToDomainEvent()
	logger = logger.With(
		slog.String("transaction_id", event.TransactionID),
		slog.String("correlation_id", event.CorrelationID),
		slog.String("type", string(event.Type)),
	)
	ctx = middleware.WithLogger(ctx, logger)

	return c.locker.WithLock(ctx, lock.TransactionKey(event.TransactionID), func(ctx context.Context) error {
		txn, err := c.dispatcher.Dispatch(ctx, event)
		if err != nil {
			return err
		}
		if txn == nil {
			logger.Debug("Nothing to announce")
			return nil
		}

		logger.Info("Transaction processed", slog.String("status", string(txn.Status)))
		if err := c.outcomes.PublishProcessed(ctx, domain.NewTransactionProcessedEvent(txn)); err != nil {
			logger.Error("Failed to publish outcome", slog.String("error", err.Error()))
		}
		return nil
	})
}
