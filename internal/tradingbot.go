package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/temazzz/autotrader/internal/domain"
)

// Advisor produces one trade recommendation per query.
type Advisor interface {
	Request(ctx context.Context, query string) (*domain.Recommendation, error)
}

// Executor turns a recommendation into an execution report.
type Executor interface {
	Execute(ctx context.Context, rec *domain.Recommendation, simulate bool) (*domain.ExecutionReport, error)
}

// Journal records completed cycles for later review.
type Journal interface {
	Save(event domain.CycleEvent) error
}

// RunStatistics accumulates outcomes over the life of the run loop.
type RunStatistics struct {
	Cycles    uint64
	Successes uint64
	Errors    uint64
	StartTime time.Time
}

// Uptime reports how long the bot has been running.
func (s RunStatistics) Uptime() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime).Round(time.Second)
}

// TradingBot drives the advise-then-execute cycle on a fixed cadence.
type TradingBot struct {
	advisor  Advisor
	executor Executor
	journal  Journal

	query    string
	interval time.Duration
	simulate bool

	stats   RunStatistics
	lastRec *domain.Recommendation
	logger  *zap.Logger
}

// NewTradingBot creates a trading bot instance. The journal may be nil, in
// which case cycles are not persisted.
func NewTradingBot(advisor Advisor, executor Executor, journal Journal, query string, interval time.Duration, simulate bool, logger *zap.Logger) (*TradingBot, error) {
	if advisor == nil {
		return nil, errors.New("advisor is required")
	}
	if executor == nil {
		return nil, errors.New("executor is required")
	}
	if query == "" {
		return nil, errors.New("query is required")
	}
	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}

	return &TradingBot{
		advisor:  advisor,
		executor: executor,
		journal:  journal,
		query:    query,
		interval: interval,
		simulate: simulate,
		logger:   logger,
	}, nil
}

// Statistics returns a snapshot of the run counters.
func (b *TradingBot) Statistics() RunStatistics {
	return b.stats
}

// LastRecommendation returns the most recent recommendation, or nil if no
// cycle has produced one yet.
func (b *TradingBot) LastRecommendation() *domain.Recommendation {
	return b.lastRec
}

// Run executes trading cycles until the context is cancelled. A cycle that
// fails is counted and logged; the loop always continues to the next tick.
func (b *TradingBot) Run(ctx context.Context) error {
	b.stats.StartTime = time.Now()

	b.logger.Info("starting trading loop",
		zap.Duration("interval", b.interval),
		zap.Bool("simulate", b.simulate),
		zap.String("query", b.query))

	for {
		if err := ctx.Err(); err != nil {
			b.logger.Info("context done, stopping trading loop")
			return err
		}

		started := time.Now()
		b.stats.Cycles++

		report, err := b.runCycle(ctx, b.stats.Cycles)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				b.logger.Info("context done, stopping trading loop")
				return err
			}
			b.stats.Errors++
			b.logger.Error("trading cycle failed", zap.Uint64("cycle", b.stats.Cycles), zap.Error(err))
			fmt.Println(RenderCycleError(b.stats.Cycles, err))
		} else {
			b.stats.Successes++
			if report != nil {
				fmt.Println(RenderCycleSummary(b.stats.Cycles, b.lastRec, report))
			}
		}

		// Keep a steady cadence: the next cycle starts interval after this
		// one began, not after it finished.
		sleep := b.interval - time.Since(started)
		if sleep < 0 {
			sleep = 0
		}

		b.logger.Info("cycle complete, waiting for next",
			zap.Uint64("cycle", b.stats.Cycles),
			zap.Duration("sleep", sleep))

		select {
		case <-ctx.Done():
			b.logger.Info("context done, stopping trading loop")
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

func (b *TradingBot) runCycle(ctx context.Context, cycle uint64) (report *domain.ExecutionReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = errors.Errorf("cycle panicked: %v", r)
		}
	}()

	b.logger.Info("requesting recommendation", zap.Uint64("cycle", cycle))

	rec, err := b.advisor.Request(ctx, b.query)
	if err != nil {
		b.record(cycle, nil, nil, err)
		return nil, errors.Wrap(err, "advisor request failed")
	}
	b.lastRec = rec

	b.logger.Info("recommendation received",
		zap.Uint64("cycle", cycle),
		zap.String("recommendation", rec.String()))

	report, err = b.executor.Execute(ctx, rec, b.simulate)
	b.record(cycle, rec, report, err)
	if err != nil {
		return nil, errors.Wrap(err, "execution failed")
	}

	return report, nil
}

func (b *TradingBot) record(cycle uint64, rec *domain.Recommendation, report *domain.ExecutionReport, cycleErr error) {
	if b.journal == nil {
		return
	}

	event := domain.NewCycleEvent(cycle, b.query, rec, report, cycleErr)
	if err := b.journal.Save(event); err != nil {
		b.logger.Warn("failed to journal cycle", zap.Uint64("cycle", cycle), zap.Error(err))
	}
}
