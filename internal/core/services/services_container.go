package services

import (
	"fmt"

	"github.com/SscSPs/txn_processor/internal/core/ports/gateways"
	portsrepo "github.com/SscSPs/txn_processor/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_processor/internal/core/ports/services"
	"github.com/SscSPs/txn_processor/internal/platform/config"
)

// GatewayProvider holds the outbound adapters services depend on.
type GatewayProvider struct {
	Ledger      gateways.AccountLedger
	Quotes      gateways.QuoteSource
	RateCache   gateways.RateCache
	DeadLetters gateways.DeadLetterPublisher
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, gw GatewayProvider) (*portssvc.ServiceContainer, error) {
	container := &portssvc.ServiceContainer{}

	container.Converter = NewCurrencyConverterService(
		cfg.HomeCurrency,
		gw.Quotes,
		gw.RateCache,
		WithConverterLocation(cfg.HomeLocation),
	)

	deps := ProcessorDeps{
		Transactions: repos.TransactionRepo,
		Ledger:       gw.Ledger,
		Converter:    container.Converter,
		DeadLetters:  gw.DeadLetters,
	}

	dispatcher, err := NewDispatcher(
		NewDepositProcessor(deps),
		NewWithdrawalProcessor(deps),
		NewTransferProcessor(deps),
		NewPurchaseProcessor(deps),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build dispatcher: %w", err)
	}
	container.Dispatcher = dispatcher

	container.Transactions = NewTransactionService(repos.TransactionRepo)

	return container, nil
}
