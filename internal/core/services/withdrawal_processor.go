package services

import (
	"context"

	"github.com/SscSPs/txn_processor/internal/core/domain"
	portssvc "github.com/SscSPs/txn_processor/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// withdrawalProcessor debits the source account after a balance check.
type withdrawalProcessor struct {
	processorBase
}

// NewWithdrawalProcessor creates the processor for WITHDRAWAL transactions.
func NewWithdrawalProcessor(deps ProcessorDeps, options ...ProcessorOption) portssvc.TransactionProcessorSvc {
	return &withdrawalProcessor{processorBase: newProcessorBase(domain.Withdrawal, deps, options...)}
}

var _ portssvc.TransactionProcessorSvc = (*withdrawalProcessor)(nil)

func (p *withdrawalProcessor) Process(ctx context.Context, event domain.TransactionRequestedEvent) (*domain.Transaction, error) {
	return p.run(ctx, event, p)
}

func (p *withdrawalProcessor) requiresFunds() bool { return true }

func (p *withdrawalProcessor) precheck(*domain.Transaction) *domain.Rejection { return nil }

func (p *withdrawalProcessor) settle(ctx context.Context, txn *domain.Transaction, amount decimal.Decimal) error {
	return p.ledger.Withdraw(ctx, txn.UserID, amount)
}
