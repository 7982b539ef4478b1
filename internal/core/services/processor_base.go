package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/SscSPs/txn_processor/internal/core/ports/gateways"
	portsrepo "github.com/SscSPs/txn_processor/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_processor/internal/core/ports/services"
	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
)

const (
	defaultSaveRetries = 3
	defaultSaveBackoff = 200 * time.Millisecond
)

// ProcessorDeps groups the collaborators every type processor needs.
type ProcessorDeps struct {
	Transactions portsrepo.TransactionRepositoryFacade
	Ledger       gateways.AccountLedger
	Converter    portssvc.CurrencyConverterSvc
	DeadLetters  gateways.DeadLetterPublisher
}

// ProcessorOption is a functional option for configuring a processor
type ProcessorOption func(*processorBase)

// WithProcessorClock overrides the clock used for processedAt timestamps.
func WithProcessorClock(now func() time.Time) ProcessorOption {
	return func(p *processorBase) {
		p.now = now
	}
}

// WithSaveRetryPolicy sets how often storing the outcome of a settled transaction is retried,
// starting at initial and doubling. The ledger is never touched again on these retries.
func WithSaveRetryPolicy(limit int, initial time.Duration) ProcessorOption {
	return func(p *processorBase) {
		if limit >= 0 {
			p.saveRetries = limit
		}
		if initial > 0 {
			p.saveBackoff = initial
		}
	}
}

// settlementRules holds what differs between transaction types.
type settlementRules interface {
	// requiresFunds reports whether the source balance must cover the amount.
	requiresFunds() bool
	// precheck returns a rejection for type-specific structural problems, before any ledger call.
	precheck(txn *domain.Transaction) *domain.Rejection
	// settle applies the ledger mutation for amount, already in home currency.
	settle(ctx context.Context, txn *domain.Transaction, amount decimal.Decimal) error
}

// processorBase runs the load, gate, check, convert, mutate, persist sequence shared by all types.
type processorBase struct {
	BaseService
	txnType      domain.TransactionType
	transactions portsrepo.TransactionRepositoryFacade
	ledger       gateways.AccountLedger
	converter    portssvc.CurrencyConverterSvc
	deadLetters  gateways.DeadLetterPublisher
	now          func() time.Time
	saveRetries  int
	saveBackoff  time.Duration
}

func newProcessorBase(txnType domain.TransactionType, deps ProcessorDeps, options ...ProcessorOption) processorBase {
	p := processorBase{
		txnType:      txnType,
		transactions: deps.Transactions,
		ledger:       deps.Ledger,
		converter:    deps.Converter,
		deadLetters:  deps.DeadLetters,
		now:          time.Now,
		saveRetries:  defaultSaveRetries,
		saveBackoff:  defaultSaveBackoff,
	}
	for _, option := range options {
		option(&p)
	}
	return p
}

func (p *processorBase) Type() domain.TransactionType {
	return p.txnType
}

// run settles the transaction referenced by event. It returns the transaction it finalised,
// or nil when nothing changed (already terminal, or lost a concurrent write).
func (p *processorBase) run(ctx context.Context, event domain.TransactionRequestedEvent, rules settlementRules) (*domain.Transaction, error) {
	txn, err := p.transactions.FindTransactionByID(ctx, event.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", event.TransactionID, err)
	}

	if txn.IsTerminal() {
		p.LogDebug(ctx, "Transaction already processed, skipping",
			slog.String("transaction_id", txn.ID),
			slog.String("status", string(txn.Status)))
		return nil, nil
	}

	if err := txn.Validate(); err != nil {
		return nil, fmt.Errorf("stored transaction %s is invalid: %w", txn.ID, err)
	}

	if !txn.Amount.IsCurrency(event.Currency) || !txn.Amount.Amount.Equal(event.Amount) {
		p.LogWarn(ctx, "Event amount differs from stored transaction, using stored values",
			slog.String("transaction_id", txn.ID),
			slog.String("event_amount", event.Amount.String()+" "+event.Currency),
			slog.String("stored_amount", txn.Amount.String()))
	}

	if event.IsRecordOnly() {
		return p.record(ctx, txn, event)
	}

	if rejection := rules.precheck(txn); rejection != nil {
		return p.reject(ctx, txn, *rejection)
	}

	account, err := p.ledger.FindAccount(ctx, txn.UserID)
	if err != nil {
		if errors.Is(err, gateways.ErrAccountNotFound) {
			return p.reject(ctx, txn, domain.Rejection{
				Code:   domain.RejectAccountNotFound,
				Detail: fmt.Sprintf("no bank account for user %s", txn.UserID),
			})
		}
		return p.fail(ctx, txn, event, fmt.Errorf("fetching account for user %s: %w", txn.UserID, err))
	}

	if !account.Active {
		return p.reject(ctx, txn, domain.Rejection{Code: domain.RejectAccountInactive, Detail: "account is inactive"})
	}

	home := p.converter.HomeCurrency()
	if !account.InCurrency(home) {
		return p.reject(ctx, txn, domain.Rejection{
			Code:   domain.RejectUnsupportedCurrency,
			Detail: fmt.Sprintf("account currency %s is not supported, only %s accounts are serviced", account.Currency, home),
		})
	}

	conversion, err := p.converter.ToLocal(ctx, txn.Amount.Amount, txn.Amount.Currency)
	if err != nil {
		return p.fail(ctx, txn, event, err)
	}

	if rules.requiresFunds() && !account.HasFunds(conversion.LocalAmount) {
		return p.reject(ctx, txn, domain.Rejection{
			Code:   domain.RejectInsufficientBalance,
			Detail: fmt.Sprintf("balance %s %s is below %s %s", account.Balance.StringFixed(2), home, conversion.LocalAmount.StringFixed(2), home),
		})
	}

	if err := rules.settle(ctx, txn, conversion.LocalAmount); err != nil {
		return p.fail(ctx, txn, event, err)
	}

	if err := p.approve(txn, conversion); err != nil {
		return nil, err
	}
	return p.persistSettled(ctx, txn, event)
}

// record approves a bookkeeping replay without touching the ledger.
func (p *processorBase) record(ctx context.Context, txn *domain.Transaction, event domain.TransactionRequestedEvent) (*domain.Transaction, error) {
	conversion, err := p.converter.ToLocal(ctx, txn.Amount.Amount, txn.Amount.Currency)
	if err != nil {
		return p.fail(ctx, txn, event, err)
	}
	if err := p.approve(txn, conversion); err != nil {
		return nil, err
	}
	p.LogInfo(ctx, "Record-only transaction approved without ledger effects",
		slog.String("transaction_id", txn.ID))
	return p.persist(ctx, txn)
}

func (p *processorBase) approve(txn *domain.Transaction, conversion domain.Conversion) error {
	if !conversion.IsPassThrough() {
		if err := txn.ApplyConversion(conversion.LocalAmount, conversion.Rate); err != nil {
			return err
		}
	}
	return txn.Approve(p.now())
}

// reject records a business rejection. No escalation.
func (p *processorBase) reject(ctx context.Context, txn *domain.Transaction, rejection domain.Rejection) (*domain.Transaction, error) {
	if err := txn.Reject(rejection, p.now()); err != nil {
		return nil, err
	}
	p.LogInfo(ctx, "Transaction rejected",
		slog.String("transaction_id", txn.ID),
		slog.String("rejection_code", string(rejection.Code)),
		slog.String("reason", rejection.Detail))
	return p.persist(ctx, txn)
}

// fail records an infrastructure fault as a rejection and escalates the event to the dead-letter channel.
// A dead-letter failure is logged and does not undo the persisted rejection.
func (p *processorBase) fail(ctx context.Context, txn *domain.Transaction, event domain.TransactionRequestedEvent, cause error) (*domain.Transaction, error) {
	reason := cause.Error()
	p.LogError(ctx, cause, "Transaction failed on external dependency",
		slog.String("transaction_id", txn.ID))

	if err := txn.Reject(domain.Rejection{Code: domain.RejectUpstreamFailure, Detail: reason}, p.now()); err != nil {
		return nil, err
	}
	saved, err := p.persist(ctx, txn)
	if err != nil || saved == nil {
		return saved, err
	}

	if err := p.deadLetters.Publish(ctx, event, reason); err != nil {
		p.LogError(ctx, err, "Failed to publish dead letter",
			slog.String("transaction_id", txn.ID))
	}
	return saved, nil
}

func (p *processorBase) persist(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	saved, err := p.transactions.SaveTransaction(ctx, *txn)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			p.LogWarn(ctx, "Transaction was finalised concurrently, discarding this outcome",
				slog.String("transaction_id", txn.ID),
				slog.String("discarded_status", string(txn.Status)))
			return nil, nil
		}
		p.LogError(ctx, err, "Failed to save transaction",
			slog.String("transaction_id", txn.ID))
		return nil, fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
	}
	p.LogInfo(ctx, "Transaction processed",
		slog.String("transaction_id", saved.ID),
		slog.String("status", string(saved.Status)))
	return saved, nil
}

// persistSettled stores the outcome of a transaction whose ledger mutation already happened.
// Only the save is retried. When the store stays unavailable the event is dead-lettered for manual
// repair and the message counts as handled; if that also fails, ErrSettledNotSaved tells the
// consumer to stop instead of dispatching the event again.
func (p *processorBase) persistSettled(ctx context.Context, txn *domain.Transaction, event domain.TransactionRequestedEvent) (*domain.Transaction, error) {
	var saved *domain.Transaction
	operation := func() error {
		var err error
		saved, err = p.transactions.SaveTransaction(ctx, *txn)
		if errors.Is(err, apperrors.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		p.LogWarn(ctx, "Retrying save of settled transaction",
			slog.String("transaction_id", txn.ID),
			slog.String("error", err.Error()),
			slog.Duration("backoff", wait))
	}

	err := backoff.RetryNotify(operation, p.saveRetryPolicy(ctx), notify)
	if err == nil {
		p.LogInfo(ctx, "Transaction processed",
			slog.String("transaction_id", saved.ID),
			slog.String("status", string(saved.Status)))
		return saved, nil
	}
	if errors.Is(err, apperrors.ErrConflict) {
		p.LogWarn(ctx, "Transaction was finalised concurrently, discarding this outcome",
			slog.String("transaction_id", txn.ID),
			slog.String("discarded_status", string(txn.Status)))
		return nil, nil
	}

	p.LogError(ctx, err, "Ledger settled but transaction could not be saved",
		slog.String("transaction_id", txn.ID),
		slog.String("status", string(txn.Status)))
	reason := fmt.Sprintf("%s: %v", apperrors.ErrSettledNotSaved, err)
	if dlqErr := p.deadLetters.Publish(ctx, event, reason); dlqErr != nil {
		p.LogError(ctx, dlqErr, "Failed to publish dead letter",
			slog.String("transaction_id", txn.ID))
		return nil, fmt.Errorf("%w: transaction %s: %v", apperrors.ErrSettledNotSaved, txn.ID, err)
	}
	return nil, nil
}

func (p *processorBase) saveRetryPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.saveBackoff
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.saveRetries)), ctx)
}
