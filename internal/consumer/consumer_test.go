package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/SscSPs/txn_processor/internal/core/ports/gateways"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- fakes ---

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	next      int
	committed []kafka.Message
	fetchErr  error
	onDrained func()
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.next < len(r.messages) {
		msg := r.messages[r.next]
		r.next++
		r.mu.Unlock()
		return msg, nil
	}
	fetchErr, onDrained := r.fetchErr, r.onDrained
	r.mu.Unlock()

	if fetchErr != nil {
		return kafka.Message{}, fetchErr
	}
	if onDrained != nil {
		onDrained()
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, event domain.TransactionRequestedEvent) (*domain.Transaction, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

type MockOutcomePublisher struct {
	mock.Mock
}

func (m *MockOutcomePublisher) PublishProcessed(ctx context.Context, event domain.TransactionProcessedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockRawDeadLetters struct {
	mock.Mock
}

func (m *MockRawDeadLetters) PublishRaw(ctx context.Context, key, payload []byte, reason string) error {
	args := m.Called(ctx, key, payload, reason)
	return args.Error(0)
}

// recordingTimer fires immediately and remembers every requested wait.
type recordingTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (t *recordingTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time { return t.c }

type recordingLocker struct {
	keys []string
	err  error
}

func (l *recordingLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

func requestedMessage(offset int64, transactionID string) kafka.Message {
	payload := fmt.Sprintf(`{"transactionId":%q,"userId":%q,"type":"DEPOSIT","amount":"10.00","currency":"BRL","correlationId":"corr-%d"}`,
		transactionID, uuid.NewString(), offset)
	return kafka.Message{
		Topic:     "transaction-requested",
		Partition: 0,
		Offset:    offset,
		Key:       []byte(transactionID),
		Value:     []byte(payload),
	}
}

func forTransaction(id string) any {
	return mock.MatchedBy(func(e domain.TransactionRequestedEvent) bool { return e.TransactionID == id })
}

// --- suite ---

type ConsumerTestSuite struct {
	suite.Suite
	ctx         context.Context
	dispatcher  *MockDispatcher
	outcomes    *MockOutcomePublisher
	deadLetters *MockRawDeadLetters
	locker      *recordingLocker
	timer       *recordingTimer
	consumer    *Consumer
}

func (s *ConsumerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.dispatcher = new(MockDispatcher)
	s.outcomes = new(MockOutcomePublisher)
	s.deadLetters = new(MockRawDeadLetters)
	s.locker = &recordingLocker{}
	s.timer = &recordingTimer{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.consumer = New(s.dispatcher, s.deadLetters, logger,
		WithLocker(s.locker),
		WithOutcomePublisher(s.outcomes),
		WithRetryPolicy(2, 10*time.Millisecond))
	s.consumer.timer = s.timer
}

func (s *ConsumerTestSuite) TearDownTest() {
	s.dispatcher.AssertExpectations(s.T())
	s.outcomes.AssertExpectations(s.T())
	s.deadLetters.AssertExpectations(s.T())
}

func (s *ConsumerTestSuite) TestHandle_ProcessedTransaction_PublishesOutcome() {
	id := uuid.NewString()
	processedAt := time.Now()
	txn := &domain.Transaction{ID: id, Status: domain.StatusApproved, ProcessedAt: &processedAt, CorrelationID: "corr-1"}
	s.dispatcher.On("Dispatch", mock.Anything, forTransaction(id)).Return(txn, nil).Once()
	s.outcomes.On("PublishProcessed", mock.Anything, mock.MatchedBy(func(e domain.TransactionProcessedEvent) bool {
		return e.TransactionID == id && e.Status == domain.StatusApproved
	})).Return(nil).Once()

	err := s.consumer.Handle(s.ctx, requestedMessage(1, id))

	s.Require().NoError(err)
	s.Equal([]string{"lock:txn:" + id}, s.locker.keys)
}

func (s *ConsumerTestSuite) TestHandle_NothingChanged_NoOutcome() {
	id := uuid.NewString()
	s.dispatcher.On("Dispatch", mock.Anything, forTransaction(id)).Return(nil, nil).Once()

	err := s.consumer.Handle(s.ctx, requestedMessage(1, id))

	s.Require().NoError(err)
	s.outcomes.AssertNotCalled(s.T(), "PublishProcessed", mock.Anything, mock.Anything)
}

func (s *ConsumerTestSuite) TestHandle_OutcomeFailure_IsNotFatal() {
	id := uuid.NewString()
	s.dispatcher.On("Dispatch", mock.Anything, forTransaction(id)).
		Return(&domain.Transaction{ID: id, Status: domain.StatusRejected}, nil).Once()
	s.outcomes.On("PublishProcessed", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	err := s.consumer.Handle(s.ctx, requestedMessage(1, id))

	s.NoError(err)
}

func (s *ConsumerTestSuite) TestHandle_MalformedPayload_DeadLettered() {
	msg := kafka.Message{Offset: 7, Key: []byte("k"), Value: []byte(`{"transactionId":"nope"`)}
	s.deadLetters.On("PublishRaw", mock.Anything, msg.Key, msg.Value, mock.AnythingOfType("string")).Return(nil).Once()

	err := s.consumer.Handle(s.ctx, msg)

	s.NoError(err)
	s.dispatcher.AssertNotCalled(s.T(), "Dispatch", mock.Anything, mock.Anything)
	s.Empty(s.locker.keys)
}

func (s *ConsumerTestSuite) TestHandle_InvalidPayload_DeadLetterFailureIsFatal() {
	msg := kafka.Message{Offset: 7, Value: []byte(`{"transactionId":"abc","amount":0}`)}
	s.deadLetters.On("PublishRaw", mock.Anything, mock.Anything, msg.Value, mock.Anything).Return(errors.New("broker down")).Once()

	err := s.consumer.Handle(s.ctx, msg)

	s.Error(err)
}

func (s *ConsumerTestSuite) TestHandle_LockUnavailable_IsFatal() {
	s.locker.err = fmt.Errorf("%w: lock:txn:x", gateways.ErrLockNotAcquired)

	err := s.consumer.Handle(s.ctx, requestedMessage(1, uuid.NewString()))

	s.ErrorIs(err, gateways.ErrLockNotAcquired)
	s.dispatcher.AssertNotCalled(s.T(), "Dispatch", mock.Anything, mock.Anything)
}

func (s *ConsumerTestSuite) TestRun_CommitsEveryFinishedMessage() {
	first, second := uuid.NewString(), uuid.NewString()
	s.dispatcher.On("Dispatch", mock.Anything, forTransaction(first)).Return(nil, nil).Once()
	s.dispatcher.On("Dispatch", mock.Anything, forTransaction(second)).Return(nil, nil).Once()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	reader := &fakeReader{
		messages:  []kafka.Message{requestedMessage(1, first), requestedMessage(2, second)},
		onDrained: cancel,
	}

	err := s.consumer.Run(ctx, reader)

	s.Require().NoError(err)
	s.Require().Len(reader.committed, 2)
	s.Equal(int64(1), reader.committed[0].Offset)
	s.Equal(int64(2), reader.committed[1].Offset)
	s.True(reader.closed)
}

func (s *ConsumerTestSuite) TestRun_FatalError_RetriesThenStopsWithoutCommit() {
	id := uuid.NewString()
	s.dispatcher.On("Dispatch", mock.Anything, forTransaction(id)).
		Return(nil, fmt.Errorf("transaction %s: %w", id, apperrors.ErrNotFound)).Times(3)

	reader := &fakeReader{messages: []kafka.Message{requestedMessage(5, id)}}

	err := s.consumer.Run(s.ctx, reader)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.Empty(reader.committed)
	s.Equal([]time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, s.timer.waits)
	s.True(reader.closed)
}

func (s *ConsumerTestSuite) TestRun_FatalError_RecoversOnRetry() {
	id := uuid.NewString()
	s.dispatcher.On("Dispatch", mock.Anything, forTransaction(id)).Return(nil, errors.New("db unavailable")).Once()
	s.dispatcher.On("Dispatch", mock.Anything, forTransaction(id)).Return(nil, nil).Once()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	reader := &fakeReader{messages: []kafka.Message{requestedMessage(3, id)}, onDrained: cancel}

	err := s.consumer.Run(ctx, reader)

	s.Require().NoError(err)
	s.Len(reader.committed, 1)
	s.Len(s.timer.waits, 1)
}

func (s *ConsumerTestSuite) TestRun_FetchError_StopsWorker() {
	reader := &fakeReader{fetchErr: errors.New("connection reset")}

	err := s.consumer.Run(s.ctx, reader)

	s.ErrorContains(err, "connection reset")
}

func (s *ConsumerTestSuite) TestRun_NoReaders() {
	s.Error(s.consumer.Run(s.ctx))
}

func TestConsumer(t *testing.T) {
	suite.Run(t, new(ConsumerTestSuite))
}

func (s *ConsumerTestSuite) TestRun_SettledNotSaved_IsNotDispatchedAgain() {
	id := uuid.NewString()
	s.dispatcher.On("Dispatch", mock.Anything, forTransaction(id)).
		Return(nil, fmt.Errorf("transaction %s: %w", id, apperrors.ErrSettledNotSaved)).Once()

	reader := &fakeReader{messages: []kafka.Message{requestedMessage(8, id)}}

	err := s.consumer.Run(s.ctx, reader)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrSettledNotSaved)
	s.Empty(reader.committed)
	s.Empty(s.timer.waits)
}

func TestWithRetryPolicy_BackoffCapped(t *testing.T) {
	c := New(nil, nil, nil, WithRetryPolicy(10, 20*time.Second))
	timer := &recordingTimer{}
	c.timer = timer
	calls := 0
	c.dispatcher = dispatchFunc(func(context.Context, domain.TransactionRequestedEvent) (*domain.Transaction, error) {
		calls++
		if calls < 4 {
			return nil, errors.New("store down")
		}
		return nil, nil
	})

	err := c.handleWithRetry(context.Background(), requestedMessage(1, uuid.NewString()))

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{20 * time.Second, 30 * time.Second, 30 * time.Second}, timer.waits)
}

func TestRetryPolicy_ZeroLimitMeansSingleAttempt(t *testing.T) {
	c := New(nil, nil, nil, WithRetryPolicy(0, time.Second))
	c.timer = &recordingTimer{}
	calls := 0
	c.dispatcher = dispatchFunc(func(context.Context, domain.TransactionRequestedEvent) (*domain.Transaction, error) {
		calls++
		return nil, errors.New("store down")
	})

	err := c.handleWithRetry(context.Background(), requestedMessage(1, uuid.NewString()))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

type dispatchFunc func(context.Context, domain.TransactionRequestedEvent) (*domain.Transaction, error)

func (f dispatchFunc) Dispatch(ctx context.Context, event domain.TransactionRequestedEvent) (*domain.Transaction, error) {
	return f(ctx, event)
}
