package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/SscSPs/txn_processor/internal/core/ports/gateways"
	"github.com/SscSPs/txn_processor/internal/middleware"
	"github.com/segmentio/kafka-go"
)

// DeadLetterMessage is the payload written to the dead-letter topic.
// Event is set for well-formed events that failed processing; RawPayload for messages that could not be decoded.
type DeadLetterMessage struct {
	Event       *domain.TransactionRequestedEvent `json:"event,omitempty"`
	RawPayload  string                            `json:"rawPayload,omitempty"`
	Reason      string                            `json:"reason"`
	FailedAt    time.Time                         `json:"failedAt"`
	SourceTopic string                            `json:"sourceTopic"`
}

// DeadLetterPublisher escalates failed events to the dead-letter topic.
type DeadLetterPublisher struct {
	writer      MessageWriter
	sourceTopic string
	now         func() time.Time
}

// NewDeadLetterPublisher creates a publisher over writer. sourceTopic is recorded in each message.
func NewDeadLetterPublisher(writer MessageWriter, sourceTopic string) *DeadLetterPublisher {
	return &DeadLetterPublisher{writer: writer, sourceTopic: sourceTopic, now: time.Now}
}

var _ gateways.DeadLetterPublisher = (*DeadLetterPublisher)(nil)

// Publish writes one dead-letter message keyed by transaction id.
func (p *DeadLetterPublisher) Publish(ctx context.Context, event domain.TransactionRequestedEvent, reason string) error {
	return p.write(ctx, event.TransactionID, DeadLetterMessage{
		Event:       &event,
		Reason:      reason,
		FailedAt:    p.now().UTC(),
		SourceTopic: p.sourceTopic,
	})
}

// PublishRaw dead-letters a message that never decoded into an event.
func (p *DeadLetterPublisher) PublishRaw(ctx context.Context, key, payload []byte, reason string) error {
	return p.write(ctx, string(key), DeadLetterMessage{
		RawPayload:  string(payload),
		Reason:      reason,
		FailedAt:    p.now().UTC(),
		SourceTopic: p.sourceTopic,
	})
}

func (p *DeadLetterPublisher) write(ctx context.Context, key string, msg DeadLetterMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding dead letter for %s: %w", key, err)
	}

	logger := middleware.GetLoggerFromCtx(ctx)
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload}); err != nil {
		logger.Error("Failed to send to dead-letter topic", slog.String("key", key), slog.String("error", err.Error()))
		return fmt.Errorf("writing dead letter for %s: %w", key, err)
	}

	logger.Warn("Sent to dead-letter topic", slog.String("key", key), slog.String("reason", msg.Reason))
	return nil
}
