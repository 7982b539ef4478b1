package mapping

import (
	"fmt"

	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/SscSPs/txn_processor/internal/models"
	"github.com/shopspring/decimal"
)

// ToModelTransaction converts a domain Transaction to a model Transaction
func ToModelTransaction(d domain.Transaction) models.Transaction {
	m := models.Transaction{
		TransactionID:   d.ID,
		UserID:          d.UserID,
		Type:            string(d.Type),
		Status:          string(d.Status),
		Amount:          d.Amount.Amount,
		CurrencyCode:    d.Amount.Currency,
		SourceAccountID: optionalString(d.SourceAccount.AccountID),
		TargetAccountID: optionalString(d.TargetAccount),
		Description:     optionalString(d.Description),
		Category:        optionalString(d.Category),
		TransferType:    optionalString(string(d.TransferType)),
		BuyType:         optionalString(string(d.BuyType)),
		RecordOnly:      d.Record,
		CorrelationID:   optionalString(d.CorrelationID),
		LocalAmount:     nullDecimal(d.LocalAmount),
		FXRate:          nullDecimal(d.FXRate),
		CreatedAt:       d.CreatedAt,
		ProcessedAt:     d.ProcessedAt,
	}
	if d.Rejection != nil {
		m.RejectionCode = optionalString(string(d.Rejection.Code))
		m.RejectionReason = optionalString(d.Rejection.Detail)
	}
	return m
}

// ToDomainTransaction converts a model Transaction to a domain Transaction.
// It fails when the row holds an amount or account reference the domain does not accept.
func ToDomainTransaction(m models.Transaction) (domain.Transaction, error) {
	amount, err := domain.NewMoney(m.Amount, m.CurrencyCode)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", m.TransactionID, err)
	}
	var source domain.AccountRef
	if m.SourceAccountID != nil {
		if source, err = domain.NewAccountRef(*m.SourceAccountID); err != nil {
			return domain.Transaction{}, fmt.Errorf("transaction %s: %w", m.TransactionID, err)
		}
	}

	d := domain.Transaction{
		ID:            m.TransactionID,
		UserID:        m.UserID,
		Type:          domain.TransactionType(m.Type),
		Amount:        amount,
		SourceAccount: source,
		TargetAccount: derefString(m.TargetAccountID),
		Status:        domain.TransactionStatus(m.Status),
		Description:   derefString(m.Description),
		Category:      derefString(m.Category),
		CreatedAt:     m.CreatedAt,
		ProcessedAt:   m.ProcessedAt,
		CorrelationID: derefString(m.CorrelationID),
		LocalAmount:   decimalPtr(m.LocalAmount),
		FXRate:        decimalPtr(m.FXRate),
		Record:        m.RecordOnly,
		TransferType:  domain.TransferType(derefString(m.TransferType)),
		BuyType:       domain.BuyType(derefString(m.BuyType)),
	}
	if m.RejectionCode != nil {
		d.Rejection = &domain.Rejection{
			Code:   domain.RejectionCode(*m.RejectionCode),
			Detail: derefString(m.RejectionReason),
		}
	}
	return d, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}
