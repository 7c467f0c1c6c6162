package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temazzz/autotrader/internal/domain"
)

func testCredentials() Credentials {
	return Credentials{APIKey: "key", APISecret: "secret", Passphrase: "pass"}
}

func TestSignDeterministic(t *testing.T) {
	sig1 := Sign("secret", "2024-01-01T00:00:00.000Z", "GET", "/api/v5/account/balance", "")
	sig2 := Sign("secret", "2024-01-01T00:00:00.000Z", "GET", "/api/v5/account/balance", "")
	assert.Equal(t, sig1, sig2)

	// any single input change must change the signature
	assert.NotEqual(t, sig1, Sign("secret", "2024-01-01T00:00:00.001Z", "GET", "/api/v5/account/balance", ""))
	assert.NotEqual(t, sig1, Sign("secret", "2024-01-01T00:00:00.000Z", "POST", "/api/v5/account/balance", ""))
	assert.NotEqual(t, sig1, Sign("secret", "2024-01-01T00:00:00.000Z", "GET", "/api/v5/trade/order", ""))
}

func TestSignEmptyBodyNormalization(t *testing.T) {
	base := Sign("secret", "ts", "POST", "/p", "")
	assert.Equal(t, base, Sign("secret", "ts", "POST", "/p", "{}"))
	assert.Equal(t, base, Sign("secret", "ts", "POST", "/p", "null"))
	assert.NotEqual(t, base, Sign("secret", "ts", "POST", "/p", `{"a":1}`))
}

func TestOKXClient_MissingCredentials(t *testing.T) {
	client := NewOKXClient(Credentials{}, true, nil)
	assert.False(t, client.HasCredentials())

	_, err := client.GetBalance(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = client.PlaceMarketOrder(context.Background(), "BTC", domain.ActionBuy, decimal.NewFromInt(100), "id")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestOKXClient_GetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, balancePath, r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("OK-ACCESS-KEY"))
		assert.Equal(t, "pass", r.Header.Get("OK-ACCESS-PASSPHRASE"))
		assert.NotEmpty(t, r.Header.Get("OK-ACCESS-SIGN"))
		assert.NotEmpty(t, r.Header.Get("OK-ACCESS-TIMESTAMP"))
		assert.Equal(t, "1", r.Header.Get("x-simulated-trading"))

		w.Write([]byte(`{"code":"0","msg":"","data":[{"details":[
			{"ccy":"BTC","cashBal":"0.5"},
			{"ccy":"USDT","cashBal":"1000"},
			{"ccy":"ETH","cashBal":"0"}
		]}]}`))
	}))
	defer server.Close()

	client := NewOKXClient(testCredentials(), true, nil)
	client.baseURL = server.URL

	balances, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.True(t, balances["BTC"].Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, balances["USDT"].Equal(decimal.NewFromInt(1000)))
	_, hasETH := balances["ETH"]
	assert.False(t, hasETH, "zero balances must be omitted")
}

func TestOKXClient_PlaceMarketOrder_Buy(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, orderPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, jsonDecode(r, &captured))
		w.Write([]byte(`{"code":"0","msg":"","data":[{"ordId":"12345","clOrdId":"abc","sCode":"0","sMsg":"Order placed","ts":"1700000000000"}]}`))
	}))
	defer server.Close()

	client := NewOKXClient(testCredentials(), false, nil)
	client.baseURL = server.URL

	info, err := client.PlaceMarketOrder(context.Background(), "BTC", domain.ActionBuy, decimal.NewFromInt(100), "abc")
	require.NoError(t, err)
	assert.Equal(t, "12345", info.OrderID)
	assert.Equal(t, "abc", info.ClientOrderID)

	assert.Equal(t, "BTC-USDT", captured["instId"])
	assert.Equal(t, "cash", captured["tdMode"])
	assert.Equal(t, "buy", captured["side"])
	assert.Equal(t, "market", captured["ordType"])
	assert.Equal(t, "100", captured["sz"])
	assert.Equal(t, "USDT", captured["ccy"], "buy orders are sized in quote currency")
}

func TestOKXClient_PlaceMarketOrder_SellOmitsCcy(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, jsonDecode(r, &captured))
		w.Write([]byte(`{"code":"0","msg":"","data":[{"ordId":"9","sCode":"0","sMsg":"ok","ts":"1"}]}`))
	}))
	defer server.Close()

	client := NewOKXClient(testCredentials(), false, nil)
	client.baseURL = server.URL

	_, err := client.PlaceMarketOrder(context.Background(), "ETH", domain.ActionSell, decimal.NewFromInt(50), "")
	require.NoError(t, err)

	assert.Equal(t, "sell", captured["side"])
	assert.Equal(t, "50", captured["sz"])
	_, hasCcy := captured["ccy"]
	assert.False(t, hasCcy, "sell orders carry no ccy field")
}

func TestOKXClient_EnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"50113","msg":"Invalid Sign","data":[]}`))
	}))
	defer server.Close()

	client := NewOKXClient(testCredentials(), false, nil)
	client.baseURL = server.URL

	_, err := client.GetBalance(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "50113", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "Invalid Sign")
}

func TestOKXClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOKXClient(testCredentials(), false, nil)
	client.baseURL = server.URL

	_, err := client.GetBalance(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP error 500")
}

func TestOKXClient_PerOrderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0","msg":"","data":[{"ordId":"","sCode":"51008","sMsg":"Insufficient balance","ts":"1"}]}`))
	}))
	defer server.Close()

	client := NewOKXClient(testCredentials(), false, nil)
	client.baseURL = server.URL

	_, err := client.PlaceMarketOrder(context.Background(), "BTC", domain.ActionBuy, decimal.NewFromInt(100), "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "51008", apiErr.Code)
}

func jsonDecode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
