package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrTerminalState is returned when a mutation is attempted on an approved or rejected transaction.
var ErrTerminalState = errors.New("transaction is already in a terminal state")

// TransactionType is the closed set of operations the processor understands.
type TransactionType string

const (
	Deposit    TransactionType = "DEPOSIT"
	Withdrawal TransactionType = "WITHDRAWAL"
	Transfer   TransactionType = "TRANSFER"
	Purchase   TransactionType = "PURCHASE"
)

// TransactionTypes lists every supported type. Dispatch wiring is checked against it.
var TransactionTypes = []TransactionType{Deposit, Withdrawal, Transfer, Purchase}

// legacyTypeNames maps the producing service's wire names onto the canonical set.
var legacyTypeNames = map[string]TransactionType{
	"DEPOSITO":      Deposit,
	"SAQUE":         Withdrawal,
	"TRANSFERENCIA": Transfer,
	"PIX":           Transfer,
	"COMPRA":        Purchase,
}

// ParseTransactionType resolves a wire value (canonical or legacy) to a TransactionType.
// The second result is false for values outside the supported set.
func ParseTransactionType(raw string) (TransactionType, bool) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	for _, t := range TransactionTypes {
		if string(t) == v {
			return t, true
		}
	}
	if t, ok := legacyTypeNames[v]; ok {
		return t, true
	}
	return TransactionType(v), false
}

// RequiresTargetAccount reports whether the type moves funds to a second account.
func (t TransactionType) RequiresTargetAccount() bool {
	return t == Transfer
}


// TransactionStatus tracks the processing state of a transaction.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "PENDING"
	StatusApproved TransactionStatus = "APPROVED"
	StatusRejected TransactionStatus = "REJECTED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// TransferType and BuyType are reporting sub-classifications; they never affect processing.
type TransferType string

const (
	TransferTypePix  TransferType = "PIX"
	TransferTypeTed  TransferType = "TED"
	TransferTypeDoc  TransferType = "DOC"
	TransferTypeBank TransferType = "INTERNAL"
)

type BuyType string

const (
	BuyTypeDebit  BuyType = "DEBIT"
	BuyTypeCredit BuyType = "CREDIT"
	BuyTypePix    BuyType = "PIX"
)

// RejectionCode is the machine-readable reason a transaction was rejected.
type RejectionCode string

const (
	RejectAccountInactive     RejectionCode = "ACCOUNT_INACTIVE"
	RejectUnsupportedCurrency RejectionCode = "UNSUPPORTED_ACCOUNT_CURRENCY"
	RejectInsufficientBalance RejectionCode = "INSUFFICIENT_BALANCE"
	RejectMissingTarget       RejectionCode = "MISSING_TARGET_ACCOUNT"
	RejectAccountNotFound     RejectionCode = "ACCOUNT_NOT_FOUND"
	RejectUpstreamFailure     RejectionCode = "UPSTREAM_FAILURE"
)

// Rejection pairs a code with optional human-readable detail.
type Rejection struct {
	Code   RejectionCode `json:"code"`
	Detail string        `json:"detail,omitempty"`
}

func (r Rejection) String() string {
	if r.Detail == "" {
		return string(r.Code)
	}
	return string(r.Code) + ": " + r.Detail
}

// Transaction is the aggregate driven from Pending to Approved or Rejected.
type Transaction struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	Type          TransactionType   `json:"type"`
	Amount        Money             `json:"amount"`
	SourceAccount AccountRef        `json:"sourceAccount"`
	TargetAccount string            `json:"targetAccount,omitempty"` // Required for Transfer only
	Status        TransactionStatus `json:"status"`
	Description   string            `json:"description,omitempty"`
	Category      string            `json:"category,omitempty"`
	Rejection     *Rejection        `json:"rejection,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	ProcessedAt   *time.Time        `json:"processedAt,omitempty"`
	CorrelationID string            `json:"correlationId"`
	LocalAmount   *decimal.Decimal  `json:"localAmount,omitempty"` // Converted amount in home currency
	FXRate        *decimal.Decimal  `json:"fxRate,omitempty"`
	Record        *bool             `json:"record,omitempty"`
	TransferType  TransferType      `json:"transferType,omitempty"`
	BuyType       BuyType           `json:"buyType,omitempty"`
}

// IsTerminal reports whether the transaction has already been approved or rejected.
func (t *Transaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// Validate checks the structural invariants of the aggregate.
// A missing transfer target is a business rejection, not a structural fault, so it is not checked here.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return errors.New("transaction id is required")
	}
	if t.Amount.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Amount.Currency) == "" {
		return ErrBlankCurrency
	}
	if t.Status == StatusRejected && t.Rejection == nil {
		return errors.New("rejected transaction must carry a rejection reason")
	}
	if t.Status.IsTerminal() && t.ProcessedAt == nil {
		return errors.New("terminal transaction must have a processed timestamp")
	}
	return nil
}

// Approve moves a pending transaction to Approved.
func (t *Transaction) Approve(now time.Time) error {
	if t.IsTerminal() {
		return fmt.Errorf("%w: cannot approve %s transaction %s", ErrTerminalState, t.Status, t.ID)
	}
	t.Status = StatusApproved
	t.ProcessedAt = &now
	return nil
}

// Reject moves a pending transaction to Rejected with the given reason.
func (t *Transaction) Reject(reason Rejection, now time.Time) error {
	if t.IsTerminal() {
		return fmt.Errorf("%w: cannot reject %s transaction %s", ErrTerminalState, t.Status, t.ID)
	}
	t.Status = StatusRejected
	t.Rejection = &reason
	t.ProcessedAt = &now
	return nil
}

// ApplyConversion records the home-currency amount and the rate used.
// It does not change status; callers record the conversion before approving.
func (t *Transaction) ApplyConversion(localAmount, rate decimal.Decimal) error {
	if t.IsTerminal() {
		return fmt.Errorf("%w: cannot apply conversion to %s transaction %s", ErrTerminalState, t.Status, t.ID)
	}
	t.LocalAmount = &localAmount
	t.FXRate = &rate
	return nil
}

// TransactionFilter narrows operator listings. Zero values match everything.
type TransactionFilter struct {
	Status TransactionStatus
	UserID string
}
