package gateways

import (
	"context"

	"github.com/SscSPs/txn_processor/internal/core/domain"
)

// DeadLetterPublisher escalates events that failed because of an infrastructure fault.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, event domain.TransactionRequestedEvent, reason string) error
}

// OutcomePublisher announces terminal transaction outcomes.
type OutcomePublisher interface {
	PublishProcessed(ctx context.Context, event domain.TransactionProcessedEvent) error
}
