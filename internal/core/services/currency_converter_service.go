package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/SscSPs/txn_processor/internal/core/ports/gateways"
	portssvc "github.com/SscSPs/txn_processor/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

const moneyScale = 2

// currencyConverterService converts foreign amounts into the home currency using
// the last sell quote of the previous business day, memoised per (currency, date).
type currencyConverterService struct {
	BaseService
	homeCurrency string
	source       gateways.QuoteSource
	cache        gateways.RateCache
	now          func() time.Time
	location     *time.Location
}

// ConverterOption is a functional option for configuring the converter
type ConverterOption func(*currencyConverterService)

// WithConverterClock overrides the clock used to compute quote dates.
func WithConverterClock(now func() time.Time) ConverterOption {
	return func(s *currencyConverterService) {
		s.now = now
	}
}

// WithConverterLocation sets the time zone in which "today" is evaluated.
func WithConverterLocation(loc *time.Location) ConverterOption {
	return func(s *currencyConverterService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewCurrencyConverterService creates a converter for the given home currency.
func NewCurrencyConverterService(homeCurrency string, source gateways.QuoteSource, cache gateways.RateCache, options ...ConverterOption) portssvc.CurrencyConverterSvc {
	svc := &currencyConverterService{
		homeCurrency: strings.ToUpper(strings.TrimSpace(homeCurrency)),
		source:       source,
		cache:        cache,
		now:          time.Now,
		location:     time.UTC,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.CurrencyConverterSvc = (*currencyConverterService)(nil)

func (s *currencyConverterService) HomeCurrency() string {
	return s.homeCurrency
}

func (s *currencyConverterService) ToLocal(ctx context.Context, amount decimal.Decimal, currency string) (domain.Conversion, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return domain.Conversion{}, fmt.Errorf("%w: currency is required", apperrors.ErrValidation)
	}

	if code == s.homeCurrency {
		return domain.Conversion{
			OriginalAmount:   amount,
			OriginalCurrency: code,
			LocalAmount:      amount.RoundBank(moneyScale),
			Rate:             decimal.NewFromInt(1),
		}, nil
	}

	quoteDate := QuoteDate(s.now().In(s.location))
	rate, err := s.rateFor(ctx, code, quoteDate)
	if err != nil {
		return domain.Conversion{}, err
	}

	return domain.Conversion{
		OriginalAmount:   amount,
		OriginalCurrency: code,
		LocalAmount:      amount.Mul(rate).RoundBank(moneyScale),
		Rate:             rate,
		QuoteDate:        quoteDate,
	}, nil
}

// rateFor returns the cached rate for (currency, date), fetching it from the quote source on a miss.
func (s *currencyConverterService) rateFor(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	if rate, ok := s.cache.GetRate(ctx, currency, date); ok {
		return rate, nil
	}

	day := date.Format(time.DateOnly)
	quotes, err := s.source.FetchQuotes(ctx, currency, date)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch exchange quotes",
			slog.String("currency", currency),
			slog.String("quote_date", day))
		return decimal.Zero, fmt.Errorf("%w: fetching %s quotes for %s: %w", apperrors.ErrUpstream, currency, day, err)
	}
	if len(quotes) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no %s quotes published for %s", apperrors.ErrUpstream, currency, day)
	}

	last := quotes[len(quotes)-1]
	if last.SellRate == nil {
		return decimal.Zero, fmt.Errorf("%w: last %s quote for %s has no sell rate", apperrors.ErrUpstream, currency, day)
	}
	if last.SellRate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: last %s quote for %s has non-positive sell rate %s", apperrors.ErrUpstream, currency, day, last.SellRate.String())
	}

	rate := *last.SellRate
	s.cache.SetRate(ctx, currency, date, rate)
	s.LogDebug(ctx, "Exchange rate fetched",
		slog.String("currency", currency),
		slog.String("quote_date", day),
		slog.String("rate", rate.String()))
	return rate, nil
}

// QuoteDate returns the most recent weekday strictly before now's calendar day, at midnight in now's location.
// Holidays are not skipped.
func QuoteDate(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}
	return day
}
