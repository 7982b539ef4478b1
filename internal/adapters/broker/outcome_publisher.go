package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/SscSPs/txn_processor/internal/core/ports/gateways"
	"github.com/segmentio/kafka-go"
)

// OutcomePublisher announces terminal transaction states on the processed topic.
type OutcomePublisher struct {
	writer MessageWriter
}

// NewOutcomePublisher creates a publisher over writer.
func NewOutcomePublisher(writer MessageWriter) *OutcomePublisher {
	return &OutcomePublisher{writer: writer}
}

var _ gateways.OutcomePublisher = (*OutcomePublisher)(nil)

func (p *OutcomePublisher) PublishProcessed(ctx context.Context, event domain.TransactionProcessedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding outcome for %s: %w", event.TransactionID, err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TransactionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(event.Status)},
		},
	}); err != nil {
		return fmt.Errorf("writing outcome for %s: %w", event.TransactionID, err)
	}
	return nil
}

// NoopOutcomePublisher discards outcomes. Used when no processed topic is configured.
type NoopOutcomePublisher struct{}

var _ gateways.OutcomePublisher = NoopOutcomePublisher{}

func (NoopOutcomePublisher) PublishProcessed(context.Context, domain.TransactionProcessedEvent) error {
	return nil
}
