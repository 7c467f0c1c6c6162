// Package clients contains the OKX REST API client used to execute
// recommendations against the exchange.
package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/temazzz/autotrader/internal/domain"
)

const (
	defaultBaseURL = "https://www.okx.com"
	balancePath    = "/api/v5/account/balance"
	orderPath      = "/api/v5/trade/order"

	// OKX timestamps are ISO-8601 with millisecond precision and a trailing Z.
	timestampLayout = "2006-01-02T15:04:05.000Z"

	requestTimeout = 30 * time.Second
)

// ErrNoCredentials is returned before any network call when the client has
// no API credentials configured.
var ErrNoCredentials = errors.New("OKX API credentials are not set, set OKX_API_KEY, OKX_API_SECRET and OKX_API_PASSPHRASE")

// APIError is an application-level error reported by the exchange inside an
// HTTP 200 response (code != "0" in the envelope).
type APIError struct {
	Code string
	Msg  string
	Raw  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OKX API error %s: %s", e.Code, e.Msg)
}

// Credentials holds the OKX API key triple.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
}

// Complete reports whether all three credential parts are present.
func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.Passphrase != ""
}

// Sign produces the OKX request signature: base64 of an HMAC-SHA256 over
// timestamp+method+path+body. A body of "{}" or "null" contributes the empty
// string, never its textual representation.
func Sign(secret, timestamp, method, path, body string) string {
	if body == "{}" || body == "null" {
		body = ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// OrderInfo describes an accepted order.
type OrderInfo struct {
	OrderID       string
	ClientOrderID string
	Message       string
	Timestamp     string
}

// OKXClient is an authenticated client for the OKX trading API. It performs
// one network call per operation and never retries; retry policy belongs to
// the caller.
type OKXClient struct {
	creds      Credentials
	demo       bool
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewOKXClient creates an OKX client. When demo is true every request carries
// the simulated-trading header so orders hit the demo account.
func NewOKXClient(creds Credentials, demo bool, logger *zap.Logger) *OKXClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OKXClient{
		creds:   creds,
		demo:    demo,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger,
		now:    time.Now,
	}
}

// HasCredentials reports whether the client can authenticate.
func (c *OKXClient) HasCredentials() bool {
	return c.creds.Complete()
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// do performs one signed request and unwraps the response envelope.
func (c *OKXClient) do(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	if !c.creds.Complete() {
		return nil, ErrNoCredentials
	}

	var body string
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		body = string(encoded)
	}

	timestamp := c.now().UTC().Format(timestampLayout)
	signature := Sign(c.creds.APISecret, timestamp, method, path, body)

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "create HTTP request")
	}

	req.Header.Set("OK-ACCESS-KEY", c.creds.APIKey)
	req.Header.Set("OK-ACCESS-SIGN", signature)
	req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.creds.Passphrase)
	req.Header.Set("Content-Type", "application/json")
	if c.demo {
		req.Header.Set("x-simulated-trading", "1")
	}

	c.logger.Debug("OKX request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("body", body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("HTTP error %d: %s", resp.StatusCode, string(raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, "unmarshal response envelope")
	}

	if env.Code != "0" {
		return nil, &APIError{Code: env.Code, Msg: env.Msg, Raw: string(raw)}
	}

	return env.Data, nil
}

type balanceDetail struct {
	Currency  string `json:"ccy"`
	CashBal   string `json:"cashBal"`
	AvailBal  string `json:"availBal"`
	FrozenBal string `json:"frozenBal"`
}

type balanceEntry struct {
	Details []balanceDetail `json:"details"`
}

// GetBalance returns the non-zero cash balances of the trading account,
// mapped by currency code.
func (c *OKXClient) GetBalance(ctx context.Context) (map[string]decimal.Decimal, error) {
	data, err := c.do(ctx, http.MethodGet, balancePath, nil)
	if err != nil {
		return nil, err
	}

	var entries []balanceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "unmarshal balance data")
	}

	balances := make(map[string]decimal.Decimal)
	for _, entry := range entries {
		for _, detail := range entry.Details {
			if detail.CashBal == "" {
				continue
			}
			amount, err := decimal.NewFromString(detail.CashBal)
			if err != nil {
				c.logger.Warn("skipping unparseable balance",
					zap.String("currency", detail.Currency),
					zap.String("cashBal", detail.CashBal))
				continue
			}
			if amount.IsZero() {
				continue
			}
			balances[detail.Currency] = amount
		}
	}

	return balances, nil
}

type marketOrderRequest struct {
	InstID        string `json:"instId"`
	TdMode        string `json:"tdMode"`
	Side          string `json:"side"`
	OrdType       string `json:"ordType"`
	Sz            string `json:"sz"`
	Ccy           string `json:"ccy,omitempty"`
	ClientOrderID string `json:"clOrdId,omitempty"`
}

type orderResult struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
	Ts      string `json:"ts"`
}

// PlaceMarketOrder places one market order against the {coin}-USDT pair in
// cash settlement mode. For BUY orders the size is denominated in USDT. For
// SELL orders the size is passed through verbatim as order size, which the
// exchange reads as a base-asset quantity; callers own the conversion from a
// USD figure to coin units before calling.
func (c *OKXClient) PlaceMarketOrder(ctx context.Context, coin string, side domain.Action, amountUSD decimal.Decimal, clientOrderID string) (*OrderInfo, error) {
	order := marketOrderRequest{
		InstID:        coin + "-USDT",
		TdMode:        "cash",
		Side:          side.Side(),
		OrdType:       "market",
		Sz:            amountUSD.String(),
		ClientOrderID: clientOrderID,
	}
	if side == domain.ActionBuy {
		order.Ccy = "USDT"
	}

	data, err := c.do(ctx, http.MethodPost, orderPath, order)
	if err != nil {
		return nil, err
	}

	var results []orderResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, errors.Wrap(err, "unmarshal order data")
	}

	if len(results) == 0 {
		return &OrderInfo{Message: "order placed, no detailed information returned"}, nil
	}

	first := results[0]
	if first.SCode != "" && first.SCode != "0" {
		return nil, &APIError{Code: first.SCode, Msg: first.SMsg, Raw: string(data)}
	}

	return &OrderInfo{
		OrderID:       first.OrdID,
		ClientOrderID: first.ClOrdID,
		Message:       first.SMsg,
		Timestamp:     first.Ts,
	}, nil
}
