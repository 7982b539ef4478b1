package brasilapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SscSPs/txn_processor/internal/adapters/breaker"
	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/SscSPs/txn_processor/internal/core/ports/gateways"
	"github.com/SscSPs/txn_processor/internal/middleware"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL = "https://brasilapi.com.br"
	quotePath      = "/api/cambio/v1/cotacao/%s/%s"
	maxBodyBytes   = 1 << 20
)

// quoteResponse mirrors GET /api/cambio/v1/cotacao/{currency}/{date}.
type quoteResponse struct {
	Moeda    string      `json:"moeda"`
	Data     string      `json:"data"`
	Cotacoes []quoteItem `json:"cotacoes"`
}

type quoteItem struct {
	ParidadeCompra  *decimal.Decimal `json:"paridade_compra"`
	ParidadeVenda   *decimal.Decimal `json:"paridade_venda"`
	CotacaoCompra   *decimal.Decimal `json:"cotacao_compra"`
	CotacaoVenda    *decimal.Decimal `json:"cotacao_venda"`
	DataHoraCotacao string           `json:"data_hora_cotacao"`
	TipoBoletim     string           `json:"tipo_boletim"`
}

// Client fetches exchange quotes from BrasilAPI.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *breaker.Breaker
}

// Option is a functional option for configuring the Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *breaker.Breaker) Option {
	return func(c *Client) {
		if b != nil {
			c.breaker = b
		}
	}
}

// NewClient creates a quote client. timeout bounds each request.
func NewClient(baseURL string, timeout time.Duration, options ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker.New("brasilapi", breaker.DefaultConfig(), slog.Default()),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

var _ gateways.QuoteSource = (*Client)(nil)

// FetchQuotes returns the quotes published for currency on date, in publication order.
func (c *Client) FetchQuotes(ctx context.Context, currency string, date time.Time) ([]domain.ExchangeQuote, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	endpoint := c.baseURL + fmt.Sprintf(quotePath, url.PathEscape(code), date.Format(time.DateOnly))

	var body quoteResponse
	err := c.breaker.Do(func() error {
		return c.get(ctx, endpoint, &body)
	}, nil)
	if err != nil {
		return nil, err
	}

	quotes := make([]domain.ExchangeQuote, 0, len(body.Cotacoes))
	for _, item := range body.Cotacoes {
		q := domain.ExchangeQuote{
			Currency:  code,
			BuyRate:   item.CotacaoCompra,
			SellRate:  item.CotacaoVenda,
			QuoteType: item.TipoBoletim,
		}
		if ts, perr := time.Parse("2006-01-02 15:04:05.999", item.DataHoraCotacao); perr == nil {
			q.QuotedAt = ts
		}
		quotes = append(quotes, q)
	}

	middleware.GetLoggerFromCtx(ctx).Debug("Fetched exchange quotes",
		slog.String("currency", code),
		slog.String("date", date.Format(time.DateOnly)),
		slog.Int("count", len(quotes)))
	return quotes, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: quote request failed: %w", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: quote source returned %d: %s", apperrors.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding quote response: %w", apperrors.ErrUpstream, err)
	}
	return nil
}
