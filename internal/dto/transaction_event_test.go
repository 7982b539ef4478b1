package dto

import (
	"testing"
	"time"

	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	txnID  = "4f5c7e0a-6a6f-4c59-9d4e-3d2b9a1f0c11"
	userID = "9b2d7c55-0e0c-4b8b-a3c5-1a7f3e9d2b44"
)

func TestDecodeTransactionRequested_Canonical(t *testing.T) {
	payload := `{
		"transactionId": "` + txnID + `",
		"userId": "` + userID + `",
		"type": "DEPOSIT",
		"amount": 100.50,
		"currency": "usd",
		"category": "salary",
		"createdAt": "2024-06-10T12:00:00Z",
		"correlationId": "corr-1",
		"record": false
	}`

	msg, err := DecodeTransactionRequested([]byte(payload))
	require.NoError(t, err)

	evt := msg.ToDomainEvent()
	assert.Equal(t, txnID, evt.TransactionID)
	assert.Equal(t, userID, evt.UserID)
	assert.Equal(t, domain.Deposit, evt.Type)
	assert.Equal(t, "100.5", evt.Amount.String())
	assert.Equal(t, "USD", evt.Currency)
	assert.Equal(t, "salary", evt.Category)
	assert.True(t, evt.CreatedAt.Equal(time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)))
	require.NotNil(t, evt.Record)
	assert.False(t, *evt.Record)
	assert.False(t, evt.IsRecordOnly())
}

func TestDecodeTransactionRequested_LegacyFieldNames(t *testing.T) {
	payload := `{
		"transactionId": "` + txnID + `",
		"uuid": "` + userID + `",
		"type": "PIX",
		"amount": "25.00",
		"currency": "BRL",
		"targetAccountId": "acc-2",
		"categoty": "food",
		"createdAt": "2024-06-10T09:15:30.123"
	}`

	msg, err := DecodeTransactionRequested([]byte(payload))
	require.NoError(t, err)

	evt := msg.ToDomainEvent()
	assert.Equal(t, userID, evt.UserID)
	assert.Equal(t, "food", evt.Category)
	assert.Equal(t, domain.Transfer, evt.Type)
	assert.Equal(t, domain.TransferTypePix, evt.TransferType)
	assert.Equal(t, 9, evt.CreatedAt.Hour())
	assert.Equal(t, time.UTC, evt.CreatedAt.Location())
}

func TestDecodeTransactionRequested_CanonicalNameWins(t *testing.T) {
	payload := `{
		"transactionId": "` + txnID + `",
		"userId": "` + userID + `",
		"uuid": "00000000-0000-0000-0000-000000000000",
		"type": "WITHDRAWAL",
		"amount": 1,
		"currency": "BRL",
		"category": "new",
		"categoty": "old"
	}`

	msg, err := DecodeTransactionRequested([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, userID, msg.UserID)
	assert.Equal(t, "new", msg.Category)
}

func TestDecodeTransactionRequested_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{"transactionId":`},
		{"missing transaction id", `{"userId":"` + userID + `","type":"DEPOSIT","amount":1,"currency":"BRL"}`},
		{"transaction id not uuid", `{"transactionId":"abc","userId":"` + userID + `","type":"DEPOSIT","amount":1,"currency":"BRL"}`},
		{"missing user", `{"transactionId":"` + txnID + `","type":"DEPOSIT","amount":1,"currency":"BRL"}`},
		{"zero amount", `{"transactionId":"` + txnID + `","userId":"` + userID + `","type":"DEPOSIT","amount":0,"currency":"BRL"}`},
		{"negative amount", `{"transactionId":"` + txnID + `","userId":"` + userID + `","type":"DEPOSIT","amount":-5,"currency":"BRL"}`},
		{"bad currency", `{"transactionId":"` + txnID + `","userId":"` + userID + `","type":"DEPOSIT","amount":1,"currency":"REAL"}`},
		{"missing type", `{"transactionId":"` + txnID + `","userId":"` + userID + `","amount":1,"currency":"BRL"}`},
		{"bad timestamp", `{"transactionId":"` + txnID + `","userId":"` + userID + `","type":"DEPOSIT","amount":1,"currency":"BRL","createdAt":"yesterday"}`},
		{"bad transfer type", `{"transactionId":"` + txnID + `","userId":"` + userID + `","type":"TRANSFER","amount":1,"currency":"BRL","transferType":"WIRE"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeTransactionRequested([]byte(tt.payload))
			assert.Nil(t, msg)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestToDomainEvent_UnknownTypePassesThrough(t *testing.T) {
	msg := TransactionRequestedMessage{TransactionID: txnID, UserID: userID, Type: "refund", Currency: "BRL"}

	evt := msg.ToDomainEvent()

	assert.Equal(t, domain.TransactionType("REFUND"), evt.Type)
}
