package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

const maxBodyBytes = 1 << 20

// accountID accepts both numeric and string ids from the ledger.
type accountID string

func (id *accountID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = accountID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("account id must be a string or number: %w", err)
	}
	*id = accountID(n.String())
	return nil
}

type accountResponse struct {
	ID         accountID       `json:"id"`
	UserID     string          `json:"userId"`
	Balance    decimal.Decimal `json:"balance"`
	Currency   string          `json:"currency"`
	Active     bool            `json:"active"`
	OwnerEmail string          `json:"ownerEmail"`
}

// balanceUpdate is sent as a bare JSON number, which the ledger expects.
type balanceUpdate struct {
	Balance json.Number `json:"balance"`
}

// Client talks to the REST account ledger.
// Accounts are listed with GET {base}/{resource}?userId=X and updated with PUT {base}/{resource}/{id}.
type Client struct {
	baseURL    string
	resource   string
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

// NewClient creates a ledger client. timeout bounds each request.
func NewClient(baseURL, resource string, timeout time.Duration, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		resource:   strings.Trim(resource, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker.New("ledger", breaker.DefaultConfig(), slog.Default()),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

var _ gateways.AccountLedger = (*Client)(nil)

// FindAccount returns the first account owned by userID, or gateways.ErrAccountNotFound.
func (c *Client) FindAccount(ctx context.Context, userID string) (*domain.BankAccount, error) {
	var account *domain.BankAccount
	err := c.breaker.Do(func() error {
		var ferr error
		account, ferr = c.findAccount(ctx, userID)
		return ferr
	}, isNotFound)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Deposit adds amount to the balance of userID's account.
func (c *Client) Deposit(ctx context.Context, userID string, amount decimal.Decimal) error {
	return c.adjust(ctx, userID, amount)
}

// Withdraw subtracts amount from the balance of userID's account.
// The ledger does not enforce a floor; callers check funds first.
func (c *Client) Withdraw(ctx context.Context, userID string, amount decimal.Decimal) error {
	return c.adjust(ctx, userID, amount.Neg())
}

// adjust reads the current balance and writes balance+delta. The ledger has no atomic increment.
func (c *Client) adjust(ctx context.Context, userID string, delta decimal.Decimal) error {
	return c.breaker.Do(func() error {
		account, err := c.findAccount(ctx, userID)
		if err != nil {
			return err
		}
		newBalance := account.Balance.Add(delta)
		if err := c.putBalance(ctx, account.ID, newBalance); err != nil {
			return err
		}
		middleware.GetLoggerFromCtx(ctx).Debug("Ledger balance updated",
			slog.String("account_id", account.ID),
			slog.String("delta", delta.StringFixed(2)),
			slog.String("balance", newBalance.StringFixed(2)))
		return nil
	}, isNotFound)
}

func (c *Client) findAccount(ctx context.Context, userID string) (*domain.BankAccount, error) {
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, c.resource, url.Values{"userId": {userID}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building ledger request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ledger lookup failed: %w", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: user %s", gateways.ErrAccountNotFound, userID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("ledger lookup", resp)
	}

	var accounts []accountResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&accounts); err != nil {
		return nil, fmt.Errorf("%w: decoding ledger accounts: %w", apperrors.ErrUpstream, err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: user %s", gateways.ErrAccountNotFound, userID)
	}

	a := accounts[0]
	return &domain.BankAccount{
		ID:         string(a.ID),
		UserID:     a.UserID,
		Balance:    a.Balance,
		Currency:   a.Currency,
		Active:     a.Active,
		OwnerEmail: a.OwnerEmail,
	}, nil
}

func (c *Client) putBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	payload, err := json.Marshal(balanceUpdate{Balance: json.Number(balance.String())})
	if err != nil {
		return fmt.Errorf("encoding balance update: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.resource, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building ledger update: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ledger update failed: %w", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError("ledger update", resp)
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: %s returned %d: %s", apperrors.ErrUpstream, op, resp.StatusCode, strings.TrimSpace(string(snippet)))
}

func isNotFound(err error) bool {
	return errors.Is(err, gateways.ErrAccountNotFound)
}
