package broker

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewReader creates a consumer-group reader for topic. Offsets are committed
// explicitly by the caller, one message at a time.
func NewReader(brokers []string, groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0, // synchronous commits
		StartOffset:    kafka.FirstOffset,
	})
}
