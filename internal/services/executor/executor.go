// Package executor turns validated recommendations into exchange orders,
// or into simulated no-ops when live trading is off.
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/temazzz/autotrader/internal/clients"
	"github.com/temazzz/autotrader/internal/domain"
	"github.com/temazzz/autotrader/pkg/retrier"
)

// ErrInvalidRecommendation is returned when a recommendation is rejected
// before any network call.
var ErrInvalidRecommendation = errors.New("invalid recommendation")

// Exchange is the slice of the OKX client the executor needs.
type Exchange interface {
	HasCredentials() bool
	GetBalance(ctx context.Context) (map[string]decimal.Decimal, error)
	PlaceMarketOrder(ctx context.Context, coin string, side domain.Action, amountUSD decimal.Decimal, clientOrderID string) (*clients.OrderInfo, error)
}

// TradeExecutor executes recommendations against the exchange.
type TradeExecutor struct {
	exchange Exchange
	retrier  *retrier.Retrier
	logger   *zap.Logger
}

// New creates a TradeExecutor.
func New(exchange Exchange, logger *zap.Logger) *TradeExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TradeExecutor{
		exchange: exchange,
		retrier:  retrier.New(retrier.WithMaxRetries(2)),
		logger:   logger,
	}
}

// Execute converts one recommendation into an execution report. With
// simulate set, or without exchange credentials, no network call is made.
// The returned report is always non-nil; the error mirrors the report's
// ERROR status for callers that count failures.
func (e *TradeExecutor) Execute(ctx context.Context, rec *domain.Recommendation, simulate bool) (*domain.ExecutionReport, error) {
	if rec == nil {
		return domain.NewErrorReport(nil, "no recommendation to execute"), errors.Wrap(ErrInvalidRecommendation, "recommendation is nil")
	}
	if err := rec.Validate(); err != nil {
		return domain.NewErrorReport(rec, err.Error()), errors.Wrap(ErrInvalidRecommendation, err.Error())
	}

	if simulate || !e.exchange.HasCredentials() {
		msg := fmt.Sprintf("Simulated %s order for %s of $%s USD", rec.Action, rec.Coin, rec.AmountUSD.StringFixed(2))
		e.logger.Info("simulated execution",
			zap.String("action", string(rec.Action)),
			zap.String("coin", rec.Coin),
			zap.String("amount_usd", rec.AmountUSD.StringFixed(2)))
		return domain.NewSimulatedReport(rec, msg), nil
	}

	e.preflightBalance(ctx)

	if rec.Action == domain.ActionSell {
		// known sharp edge: sell size is sent as-is, the exchange reads it
		// as a base-asset quantity, not a USD figure
		e.logger.Warn("live SELL order sizes in base units, amount_usd is passed through unconverted",
			zap.String("coin", rec.Coin),
			zap.String("amount_usd", rec.AmountUSD.String()))
	}

	clientOrderID := newClientOrderID()
	info, err := e.exchange.PlaceMarketOrder(ctx, rec.Coin, rec.Action, rec.AmountUSD, clientOrderID)
	if err != nil {
		msg := fmt.Sprintf("Failed to execute %s order for %s: %s", rec.Action, rec.Coin, err)
		return domain.NewErrorReport(rec, msg), err
	}

	e.logger.Info("order executed",
		zap.String("order_id", info.OrderID),
		zap.String("client_order_id", clientOrderID),
		zap.String("action", string(rec.Action)),
		zap.String("coin", rec.Coin))

	msg := fmt.Sprintf("Executed %s order for %s of $%s USD", rec.Action, rec.Coin, rec.AmountUSD.StringFixed(2))
	return domain.NewExecutedReport(rec, info.OrderID, msg), nil
}

// preflightBalance logs the account balances before a live order. The order
// is never gated on it: the exchange rejects underfunded orders itself, and
// a flaky balance endpoint must not block trading.
func (e *TradeExecutor) preflightBalance(ctx context.Context) {
	balances, err := retrier.DoWithData(e.retrier, ctx, func(ctx context.Context) (map[string]decimal.Decimal, error) {
		return e.exchange.GetBalance(ctx)
	})
	if err != nil {
		e.logger.Warn("balance preflight failed, proceeding with order", zap.Error(err))
		return
	}

	fields := make([]zap.Field, 0, len(balances))
	for currency, amount := range balances {
		fields = append(fields, zap.String(currency, amount.String()))
	}
	e.logger.Info("account balances", fields...)
}

// newClientOrderID returns an exchange-safe idempotency key: OKX accepts up
// to 32 alphanumeric characters, so the UUID's dashes are stripped.
func newClientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
