package services

import (
	"context"

	"github.com/SscSPs/txn_processor/internal/core/domain"
	portssvc "github.com/SscSPs/txn_processor/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// purchaseProcessor debits the source account for a card or PIX purchase.
// BuyType is carried for reporting and does not change settlement.
type purchaseProcessor struct {
	processorBase
}

// NewPurchaseProcessor creates the processor for PURCHASE transactions.
func NewPurchaseProcessor(deps ProcessorDeps, options ...ProcessorOption) portssvc.TransactionProcessorSvc {
	return &purchaseProcessor{processorBase: newProcessorBase(domain.Purchase, deps, options...)}
}

var _ portssvc.TransactionProcessorSvc = (*purchaseProcessor)(nil)

func (p *purchaseProcessor) Process(ctx context.Context, event domain.TransactionRequestedEvent) (*domain.Transaction, error) {
	return p.run(ctx, event, p)
}

func (p *purchaseProcessor) requiresFunds() bool { return true }

func (p *purchaseProcessor) precheck(*domain.Transaction) *domain.Rejection { return nil }

func (p *purchaseProcessor) settle(ctx context.Context, txn *domain.Transaction, amount decimal.Decimal) error {
	return p.ledger.Withdraw(ctx, txn.UserID, amount)
}
