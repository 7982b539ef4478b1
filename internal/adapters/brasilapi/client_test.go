package brasilapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/txn_processor/internal/adapters/brasilapi"
	"github.com/SscSPs/txn_processor/internal/adapters/breaker"
	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usdResponse = `{
  "cotacoes": [
    {"paridade_compra": 1, "paridade_venda": 1, "cotacao_compra": 5.0101, "cotacao_venda": 5.0107, "data_hora_cotacao": "2024-06-07 10:08:31.922", "tipo_boletim": "ABERTURA"},
    {"paridade_compra": 1, "paridade_venda": 1, "cotacao_compra": 5.3198, "cotacao_venda": 5.3204, "data_hora_cotacao": "2024-06-07 13:03:29.102", "tipo_boletim": "FECHAMENTO PTAX"}
  ],
  "moeda": "USD",
  "data": "2024-06-07"
}`

var friday = time.Date(2024, time.June, 7, 0, 0, 0, 0, time.UTC)

func TestFetchQuotes_ParsesQuotesInOrder(t *testing.T) {
	var gotPath, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(usdResponse))
	}))
	defer server.Close()

	client := brasilapi.NewClient(server.URL, time.Second)

	quotes, err := client.FetchQuotes(context.Background(), "usd", friday)

	require.NoError(t, err)
	assert.Equal(t, "/api/cambio/v1/cotacao/USD/2024-06-07", gotPath)
	assert.Equal(t, "application/json", gotAccept)
	require.Len(t, quotes, 2)
	assert.Equal(t, "USD", quotes[1].Currency)
	require.NotNil(t, quotes[1].SellRate)
	assert.Equal(t, "5.3204", quotes[1].SellRate.String())
	assert.Equal(t, "FECHAMENTO PTAX", quotes[1].QuoteType)
	assert.Equal(t, 13, quotes[1].QuotedAt.Hour())
}

func TestFetchQuotes_MissingSellRateIsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cotacoes":[{"cotacao_compra": 5.1}]}`))
	}))
	defer server.Close()

	quotes, err := brasilapi.NewClient(server.URL, time.Second).FetchQuotes(context.Background(), "USD", friday)

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Nil(t, quotes[0].SellRate)
}

func TestFetchQuotes_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cotacoes":[]}`))
	}))
	defer server.Close()

	quotes, err := brasilapi.NewClient(server.URL, time.Second).FetchQuotes(context.Background(), "USD", friday)

	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestFetchQuotes_ErrorsAreUpstream(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"Cotação não encontrada"}`, http.StatusNotFound)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"cotacoes": [`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := brasilapi.NewClient(server.URL, time.Second).FetchQuotes(context.Background(), "USD", friday)

			assert.ErrorIs(t, err, apperrors.ErrUpstream)
		})
	}
}

func TestFetchQuotes_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(usdResponse))
	}))
	defer server.Close()

	_, err := brasilapi.NewClient(server.URL, 20*time.Millisecond).FetchQuotes(context.Background(), "USD", friday)

	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestFetchQuotes_BreakerShortCircuits(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := breaker.DefaultConfig()
	cfg.ConsecutiveFailures = 1
	cfg.Timeout = time.Hour
	client := brasilapi.NewClient(server.URL, time.Second, brasilapi.WithBreaker(breaker.New("brasilapi-test", cfg, nil)))

	_, err := client.FetchQuotes(context.Background(), "USD", friday)
	require.Error(t, err)
	_, err = client.FetchQuotes(context.Background(), "USD", friday)

	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
