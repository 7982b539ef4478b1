package services

import (
	"context"

	"github.com/SscSPs/txn_processor/internal/core/domain"
	portssvc "github.com/SscSPs/txn_processor/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// depositProcessor credits the source account.
type depositProcessor struct {
	processorBase
}

// NewDepositProcessor creates the processor for DEPOSIT transactions.
func NewDepositProcessor(deps ProcessorDeps, options ...ProcessorOption) portssvc.TransactionProcessorSvc {
	return &depositProcessor{processorBase: newProcessorBase(domain.Deposit, deps, options...)}
}

var _ portssvc.TransactionProcessorSvc = (*depositProcessor)(nil)

func (p *depositProcessor) Process(ctx context.Context, event domain.TransactionRequestedEvent) (*domain.Transaction, error) {
	return p.run(ctx, event, p)
}

func (p *depositProcessor) requiresFunds() bool { return false }

func (p *depositProcessor) precheck(*domain.Transaction) *domain.Rejection { return nil }

func (p *depositProcessor) settle(ctx context.Context, txn *domain.Transaction, amount decimal.Decimal) error {
	return p.ledger.Deposit(ctx, txn.UserID, amount)
}
