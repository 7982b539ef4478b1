package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the row shape of the transactions table.
// Nullable columns are pointers so a scan never has to guess a zero value.
type Transaction struct {
	TransactionID   string              `json:"transactionID"` // Primary Key (UUID)
	UserID          string              `json:"userID"`        // Ledger owner key of the source account
	Type            string              `json:"type"`          // DEPOSIT, WITHDRAWAL, TRANSFER or PURCHASE
	Status          string              `json:"status"`        // PENDING, APPROVED or REJECTED
	Amount          decimal.Decimal     `json:"amount"`        // numeric(19,2)
	CurrencyCode    string              `json:"currencyCode"`
	SourceAccountID *string             `json:"sourceAccountID"`
	TargetAccountID *string             `json:"targetAccountID"` // Transfers only
	Description     *string             `json:"description"`
	Category        *string             `json:"category"`
	TransferType    *string             `json:"transferType"`
	BuyType         *string             `json:"buyType"`
	RecordOnly      *bool               `json:"recordOnly"`
	CorrelationID   *string             `json:"correlationID"`
	RejectionCode   *string             `json:"rejectionCode"`
	RejectionReason *string             `json:"rejectionReason"`
	LocalAmount     decimal.NullDecimal `json:"localAmount"`
	FXRate          decimal.NullDecimal `json:"fxRate"`
	CreatedAt       time.Time           `json:"createdAt"`
	ProcessedAt     *time.Time          `json:"processedAt"`
}
