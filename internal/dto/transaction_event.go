package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// TransactionRequestedMessage is the wire shape of a message on the requested topic.
// The producing service historically sent the owner under "uuid" and the category
// under "categoty"; both spellings are accepted.
type TransactionRequestedMessage struct {
	TransactionID   string          `json:"transactionId" validate:"required,uuid"`
	UserID          string          `json:"userId" validate:"required,uuid"`
	Type            string          `json:"type" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"positive_decimal"`
	Currency        string          `json:"currency" validate:"required,len=3,alpha"`
	SourceAccountID string          `json:"sourceAccountId,omitempty" validate:"omitempty,max=64"`
	TargetAccountID string          `json:"targetAccountId,omitempty" validate:"omitempty,max=64"`
	Description     string          `json:"description,omitempty" validate:"max=255"`
	Category        string          `json:"category,omitempty" validate:"max=64"`
	CreatedAt       EventTime       `json:"createdAt"`
	CorrelationID   string          `json:"correlationId,omitempty" validate:"max=64"`
	Record          *bool           `json:"record,omitempty"`
	TransferType    string          `json:"transferType,omitempty" validate:"omitempty,oneof=PIX TED DOC INTERNAL"`
	BuyType         string          `json:"buyType,omitempty" validate:"omitempty,oneof=DEBIT CREDIT PIX"`
}

// UnmarshalJSON folds the legacy field names into their canonical fields.
func (m *TransactionRequestedMessage) UnmarshalJSON(data []byte) error {
	type plain TransactionRequestedMessage
	aux := struct {
		*plain
		LegacyUserID   string `json:"uuid"`
		LegacyCategory string `json:"categoty"`
	}{plain: (*plain)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if m.UserID == "" {
		m.UserID = aux.LegacyUserID
	}
	if m.Category == "" {
		m.Category = aux.LegacyCategory
	}
	m.TransferType = strings.ToUpper(strings.TrimSpace(m.TransferType))
	m.BuyType = strings.ToUpper(strings.TrimSpace(m.BuyType))
	return nil
}

// EventTime accepts RFC 3339 timestamps as well as zone-less local date-times,
// which are read as UTC.
type EventTime struct {
	time.Time
}

var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *EventTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range eventTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", raw)
}

func (t EventTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

func initValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.RegisterValidation("positive_decimal", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && value.IsPositive()
	}); err != nil {
		return nil, fmt.Errorf("failed to register 'positive_decimal': %w", err)
	}
	return v, nil
}

// getValidator returns the shared validator instance.
func getValidator() (*validator.Validate, error) {
	validateOnce.Do(func() {
		validate, errValidate = initValidator()
	})
	return validate, errValidate
}

// DecodeTransactionRequested parses and validates a raw message value.
// Every failure wraps apperrors.ErrValidation: such a payload can never be processed.
func DecodeTransactionRequested(payload []byte) (*TransactionRequestedMessage, error) {
	var msg TransactionRequestedMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %w", apperrors.ErrValidation, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Validate checks the message against its struct tags.
func (m *TransactionRequestedMessage) Validate() error {
	v, err := getValidator()
	if err != nil {
		return err
	}
	if err := v.Struct(m); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: field '%s' failed on '%s'", apperrors.ErrValidation, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}
	return nil
}

// ToDomainEvent maps the message onto the domain event. Legacy type names are
// canonicalised; a "PIX" type defaults the transfer type to PIX. Unknown types are
// passed through unchanged so the dispatcher can refuse them.
func (m *TransactionRequestedMessage) ToDomainEvent() domain.TransactionRequestedEvent {
	txnType, _ := domain.ParseTransactionType(m.Type)
	transferType := domain.TransferType(m.TransferType)
	if transferType == "" && strings.EqualFold(strings.TrimSpace(m.Type), "PIX") {
		transferType = domain.TransferTypePix
	}

	return domain.TransactionRequestedEvent{
		TransactionID:   m.TransactionID,
		UserID:          m.UserID,
		Type:            txnType,
		Amount:          m.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(m.Currency)),
		SourceAccountID: m.SourceAccountID,
		TargetAccountID: m.TargetAccountID,
		Description:     m.Description,
		Category:        m.Category,
		CreatedAt:       m.CreatedAt.Time,
		CorrelationID:   m.CorrelationID,
		Record:          m.Record,
		TransferType:    transferType,
		BuyType:         domain.BuyType(m.BuyType),
	}
}
