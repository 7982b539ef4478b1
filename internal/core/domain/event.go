package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRequestedEvent asks the processor to settle an already persisted pending transaction.
type TransactionRequestedEvent struct {
	TransactionID   string          `json:"transactionId"`
	UserID          string          `json:"userId"`
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	SourceAccountID string          `json:"sourceAccountId,omitempty"`
	TargetAccountID string          `json:"targetAccountId,omitempty"`
	Description     string          `json:"description,omitempty"`
	Category        string          `json:"category,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	CorrelationID   string          `json:"correlationId,omitempty"`
	Record          *bool           `json:"record,omitempty"`
	TransferType    TransferType    `json:"transferType,omitempty"`
	BuyType         BuyType         `json:"buyType,omitempty"`
}

// IsRecordOnly reports whether the event replays a transaction for bookkeeping only.
func (e TransactionRequestedEvent) IsRecordOnly() bool {
	return e.Record != nil && *e.Record
}

// TransactionProcessedEvent announces the terminal outcome of a transaction.
type TransactionProcessedEvent struct {
	TransactionID string            `json:"transactionId"`
	Status        TransactionStatus `json:"status"`
	RejectionCode RejectionCode     `json:"rejectionCode,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	LocalAmount   *decimal.Decimal  `json:"localAmount,omitempty"`
	FXRate        *decimal.Decimal  `json:"fxRate,omitempty"`
	ProcessedAt   *time.Time        `json:"processedAt,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
}

// NewTransactionProcessedEvent snapshots a terminal transaction.
func NewTransactionProcessedEvent(t *Transaction) TransactionProcessedEvent {
	evt := TransactionProcessedEvent{
		TransactionID: t.ID,
		Status:        t.Status,
		LocalAmount:   t.LocalAmount,
		FXRate:        t.FXRate,
		ProcessedAt:   t.ProcessedAt,
		CorrelationID: t.CorrelationID,
	}
	if t.Rejection != nil {
		evt.RejectionCode = t.Rejection.Code
		evt.Reason = t.Rejection.String()
	}
	return evt
}
