package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestDeadLetterPublisher_Publish(t *testing.T) {
	writer := &recordingWriter{}
	failedAt := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	publisher := NewDeadLetterPublisher(writer, "transaction.requested")
	publisher.now = func() time.Time { return failedAt }

	event := domain.TransactionRequestedEvent{
		TransactionID: "6f1c1e0e-2a59-4c43-9a0e-6f3c0f0d8b11",
		UserID:        "user-1",
		Type:          domain.Withdrawal,
		Amount:        decimal.RequireFromString("10.50"),
		Currency:      "BRL",
	}

	err := publisher.Publish(context.Background(), event, "UPSTREAM_FAILURE: ledger unavailable")

	require.NoError(t, err)
	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, event.TransactionID, string(msg.Key))

	var decoded struct {
		Event       map[string]any `json:"event"`
		Reason      string         `json:"reason"`
		FailedAt    time.Time      `json:"failedAt"`
		SourceTopic string         `json:"sourceTopic"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.TransactionID, decoded.Event["transactionId"])
	assert.Equal(t, "WITHDRAWAL", decoded.Event["type"])
	assert.Equal(t, "UPSTREAM_FAILURE: ledger unavailable", decoded.Reason)
	assert.True(t, failedAt.Equal(decoded.FailedAt))
	assert.Equal(t, "transaction.requested", decoded.SourceTopic)
}

func TestDeadLetterPublisher_PublishRaw(t *testing.T) {
	writer := &recordingWriter{}
	publisher := NewDeadLetterPublisher(writer, "transaction.requested")

	err := publisher.PublishRaw(context.Background(), []byte("k1"), []byte(`{"broken`), "invalid JSON")

	require.NoError(t, err)
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "k1", string(writer.messages[0].Key))
	assert.Contains(t, string(writer.messages[0].Value), `"rawPayload":"{\"broken"`)
	assert.NotContains(t, string(writer.messages[0].Value), `"event"`)
}

func TestDeadLetterPublisher_WriterError(t *testing.T) {
	brokerErr := errors.New("leader not available")
	publisher := NewDeadLetterPublisher(&recordingWriter{err: brokerErr}, "t")

	err := publisher.Publish(context.Background(), domain.TransactionRequestedEvent{TransactionID: "x"}, "r")

	assert.ErrorIs(t, err, brokerErr)
}

func TestOutcomePublisher(t *testing.T) {
	writer := &recordingWriter{}
	publisher := NewOutcomePublisher(writer)
	processedAt := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	err := publisher.PublishProcessed(context.Background(), domain.TransactionProcessedEvent{
		TransactionID: "txn-1",
		Status:        domain.StatusRejected,
		RejectionCode: domain.RejectInsufficientBalance,
		Reason:        "INSUFFICIENT_BALANCE",
		ProcessedAt:   &processedAt,
	})

	require.NoError(t, err)
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "txn-1", string(writer.messages[0].Key))
	assert.Equal(t, "REJECTED", string(writer.messages[0].Headers[0].Value))
	assert.Contains(t, string(writer.messages[0].Value), `"rejectionCode":"INSUFFICIENT_BALANCE"`)
}
