package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/txn_processor/internal/core/domain"
	portssvc "github.com/SscSPs/txn_processor/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// transferProcessor debits the source account and credits the target account.
// The two legs are independent ledger calls; a failed credit is compensated once.
type transferProcessor struct {
	processorBase
}

// NewTransferProcessor creates the processor for TRANSFER transactions.
func NewTransferProcessor(deps ProcessorDeps, options ...ProcessorOption) portssvc.TransactionProcessorSvc {
	return &transferProcessor{processorBase: newProcessorBase(domain.Transfer, deps, options...)}
}

var _ portssvc.TransactionProcessorSvc = (*transferProcessor)(nil)

func (p *transferProcessor) Process(ctx context.Context, event domain.TransactionRequestedEvent) (*domain.Transaction, error) {
	return p.run(ctx, event, p)
}

func (p *transferProcessor) requiresFunds() bool { return true }

func (p *transferProcessor) precheck(txn *domain.Transaction) *domain.Rejection {
	if strings.TrimSpace(txn.TargetAccount) == "" {
		return &domain.Rejection{Code: domain.RejectMissingTarget, Detail: "transfer has no target account"}
	}
	return nil
}

func (p *transferProcessor) settle(ctx context.Context, txn *domain.Transaction, amount decimal.Decimal) error {
	if err := p.ledger.Withdraw(ctx, txn.UserID, amount); err != nil {
		return fmt.Errorf("debiting source of transfer: %w", err)
	}

	creditErr := p.ledger.Deposit(ctx, txn.TargetAccount, amount)
	if creditErr == nil {
		return nil
	}

	if err := p.ledger.Deposit(ctx, txn.UserID, amount); err != nil {
		p.LogError(ctx, err, "Compensating credit failed, source account needs manual repair",
			slog.String("transaction_id", txn.ID),
			slog.String("amount", amount.StringFixed(2)))
		return fmt.Errorf("crediting target of transfer: %w (compensation failed: %v)", creditErr, err)
	}

	p.LogWarn(ctx, "Transfer credit failed, source debit compensated",
		slog.String("transaction_id", txn.ID))
	return fmt.Errorf("crediting target of transfer: %w (source debit compensated)", creditErr)
}
