package services_test

import (
	"context"
	"time"

	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockTransactionRepository is a mock type for the TransactionRepositoryFacade interface
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListTransactions(ctx context.Context, filter domain.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, filter, limit, nextToken)
	var txns []domain.Transaction
	if args.Get(0) != nil {
		txns = args.Get(0).([]domain.Transaction)
	}
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	return txns, next, args.Error(2)
}

// SaveTransaction echoes the saved transaction back unless the expectation returns one explicitly.
func (m *MockTransactionRepository) SaveTransaction(ctx context.Context, txn domain.Transaction) (*domain.Transaction, error) {
	args := m.Called(ctx, txn)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if saved, ok := args.Get(0).(*domain.Transaction); ok && saved != nil {
		return saved, nil
	}
	return &txn, nil
}

// MockLedger is a mock type for the AccountLedger interface
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) FindAccount(ctx context.Context, userID string) (*domain.BankAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccount), args.Error(1)
}

func (m *MockLedger) Deposit(ctx context.Context, userID string, amount decimal.Decimal) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockLedger) Withdraw(ctx context.Context, userID string, amount decimal.Decimal) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

// MockDeadLetterPublisher is a mock type for the DeadLetterPublisher interface
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) Publish(ctx context.Context, event domain.TransactionRequestedEvent, reason string) error {
	args := m.Called(ctx, event, reason)
	return args.Error(0)
}

// MockQuoteSource is a mock type for the QuoteSource interface
type MockQuoteSource struct {
	mock.Mock
}

func (m *MockQuoteSource) FetchQuotes(ctx context.Context, currency string, date time.Time) ([]domain.ExchangeQuote, error) {
	args := m.Called(ctx, currency, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExchangeQuote), args.Error(1)
}

// MockRateCache is a mock type for the RateCache interface
type MockRateCache struct {
	mock.Mock
}

func (m *MockRateCache) GetRate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, bool) {
	args := m.Called(ctx, currency, date)
	return args.Get(0).(decimal.Decimal), args.Bool(1)
}

func (m *MockRateCache) SetRate(ctx context.Context, currency string, date time.Time, rate decimal.Decimal) {
	m.Called(ctx, currency, date, rate)
}

// MockProcessor is a mock type for the TransactionProcessorSvc interface
type MockProcessor struct {
	mock.Mock
	txnType domain.TransactionType
}

func (m *MockProcessor) Type() domain.TransactionType {
	return m.txnType
}

func (m *MockProcessor) Process(ctx context.Context, event domain.TransactionRequestedEvent) (*domain.Transaction, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// --- helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// decEq matches a decimal argument by numeric value rather than representation.
func decEq(s string) any {
	want := dec(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func boolPtr(b bool) *bool {
	return &b
}
