package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/SscSPs/txn_processor/internal/core/domain"
	portssvc "github.com/SscSPs/txn_processor/internal/core/ports/services"
)

// dispatcher routes events to the processor registered for their type.
type dispatcher struct {
	BaseService
	processors map[domain.TransactionType]portssvc.TransactionProcessorSvc
}

// NewDispatcher builds a dispatcher over the given processors.
// Every type in domain.TransactionTypes must have exactly one processor.
func NewDispatcher(processors ...portssvc.TransactionProcessorSvc) (portssvc.DispatcherSvc, error) {
	byType := make(map[domain.TransactionType]portssvc.TransactionProcessorSvc, len(processors))
	for _, p := range processors {
		if _, dup := byType[p.Type()]; dup {
			return nil, fmt.Errorf("duplicate processor for transaction type %s", p.Type())
		}
		byType[p.Type()] = p
	}
	for _, t := range domain.TransactionTypes {
		if _, ok := byType[t]; !ok {
			return nil, fmt.Errorf("no processor registered for transaction type %s", t)
		}
	}
	return &dispatcher{processors: byType}, nil
}

var _ portssvc.DispatcherSvc = (*dispatcher)(nil)

func (d *dispatcher) Dispatch(ctx context.Context, event domain.TransactionRequestedEvent) (*domain.Transaction, error) {
	processor, ok := d.processors[event.Type]
	if !ok {
		d.LogWarn(ctx, "No processor for transaction type",
			slog.String("transaction_id", event.TransactionID),
			slog.String("type", string(event.Type)))
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownTransactionType, event.Type)
	}
	return processor.Process(ctx, event)
}
