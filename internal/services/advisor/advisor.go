// Package advisor manages interactive sessions with the external decision
// agent and extracts trading recommendations from its free-text output.
package advisor

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/temazzz/autotrader/internal/domain"
)

// DefaultAgentPath identifies the portfolio manager agent the trader talks
// to when no override is given.
const DefaultAgentPath = "temazzz.near/portfolio-manager/0.0.1"

const (
	defaultReadyTimeout    = 60 * time.Second
	defaultResponseTimeout = 10 * time.Minute
	defaultSettleDelay     = 1 * time.Second
	defaultKillGrace       = 5 * time.Second
)

// Typed session failures. The scheduler counts all of them as failed cycles;
// callers that need to distinguish use errors.Is.
var (
	ErrAgentInitTimeout    = errors.New("agent initialization timed out")
	ErrAgentExitedEarly    = errors.New("agent process exited before becoming ready")
	ErrQueryDispatchFailed = errors.New("failed to send query to agent")
	ErrNoRecommendation    = errors.New("no valid recommendation found in agent response")
)

// Advisor runs one agent session per request. Sessions are strictly
// sequential: a new one is never started before the previous process has
// been torn down.
type Advisor struct {
	command         []string
	readyTimeout    time.Duration
	responseTimeout time.Duration
	settleDelay     time.Duration
	killGrace       time.Duration
	logger          *zap.Logger
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithCommand overrides the full agent argv. Used by tests and for agents
// launched through a different runner.
func WithCommand(argv []string) Option {
	return func(a *Advisor) { a.command = argv }
}

// WithReadyTimeout overrides the readiness window.
func WithReadyTimeout(d time.Duration) Option {
	return func(a *Advisor) { a.readyTimeout = d }
}

// WithResponseTimeout overrides the response collection window.
func WithResponseTimeout(d time.Duration) Option {
	return func(a *Advisor) { a.responseTimeout = d }
}

// WithSettleDelay overrides the pause between readiness and query dispatch.
func WithSettleDelay(d time.Duration) Option {
	return func(a *Advisor) { a.settleDelay = d }
}

// WithKillGrace overrides how long teardown waits after SIGTERM before
// killing the process.
func WithKillGrace(d time.Duration) Option {
	return func(a *Advisor) { a.killGrace = d }
}

// New creates an Advisor for the given agent path.
func New(agentPath string, logger *zap.Logger, opts ...Option) *Advisor {
	if agentPath == "" {
		agentPath = DefaultAgentPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Advisor{
		command:         []string{"nearai", "agent", "interactive", agentPath, "--local"},
		readyTimeout:    defaultReadyTimeout,
		responseTimeout: defaultResponseTimeout,
		settleDelay:     defaultSettleDelay,
		killGrace:       defaultKillGrace,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Request runs one full session: launch, readiness wait, query dispatch,
// response collection and teardown. It returns exactly one of a validated
// recommendation or a typed failure. The subprocess is torn down regardless
// of outcome.
func (a *Advisor) Request(ctx context.Context, query string) (*domain.Recommendation, error) {
	s, err := startSession(a.command, a.killGrace, a.logger)
	if err != nil {
		return nil, err
	}
	defer s.close()

	if err := a.awaitReady(ctx, s); err != nil {
		return nil, err
	}

	if err := a.dispatchQuery(ctx, s, query); err != nil {
		return nil, err
	}

	rec, captured := a.collect(ctx, s)
	if rec == nil {
		// stream scan found nothing; run the whole-text fallback chain
		rec = extractFromText(captured)
	}
	if rec == nil {
		a.logger.Debug("agent response without recommendation", zap.String("response", captured))
		return nil, errors.Wrapf(ErrNoRecommendation, "captured %d bytes of agent output", len(captured))
	}

	if rec.Synthesized {
		a.logger.Warn("recommendation synthesized from free text, not asserted by agent",
			zap.String("recommendation", rec.String()))
	}

	return rec, nil
}

// awaitReady consumes output until the agent prints its input prompt.
func (a *Advisor) awaitReady(ctx context.Context, s *session) error {
	timer := time.NewTimer(a.readyTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return errors.Wrapf(ErrAgentInitTimeout, "no ready prompt within %s", a.readyTimeout)
		case line, ok := <-s.lines:
			if !ok {
				// wait for the reaper so stderr is fully captured
				<-s.exited
				return errors.Wrapf(ErrAgentExitedEarly, "stderr: %s", s.stderrTail())
			}
			a.logger.Debug("agent init", zap.String("line", strings.TrimSpace(line)))
			if isReadyLine(line) {
				return nil
			}
		}
	}
}

// isReadyLine reports whether a line signals the agent accepts input: a
// command prompt character or the explicit multiline-mode hint.
func isReadyLine(line string) bool {
	return strings.Contains(line, ">") ||
		strings.Contains(line, "Type 'multiline' to enter multiline mode")
}

// dispatchQuery writes the query, augmented with an explicit instruction to
// produce a recommendation when the user's text does not already ask for one.
func (a *Advisor) dispatchQuery(ctx context.Context, s *session, query string) error {
	// give the agent a moment to finish switching into input mode
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(a.settleDelay):
	}

	enhanced := query
	if !strings.Contains(strings.ToLower(query), "recommend") {
		enhanced = query + ". Please analyze and provide a trade recommendation."
	}

	a.logger.Debug("sending query", zap.String("query", enhanced))
	if err := s.writeLine(enhanced); err != nil {
		return errors.Wrapf(ErrQueryDispatchFailed, "%s", err)
	}
	return nil
}

// collect runs the streaming scan: marker-anchored JSON takes precedence
// once the decision marker is seen; before that, each line is scanned for an
// inline recommendation object. Collection stops on the first parsed
// recommendation, the response timeout, process exit, or ctx cancellation.
// The accumulated text is returned for the fallback chain either way.
func (a *Advisor) collect(ctx context.Context, s *session) (*domain.Recommendation, string) {
	timer := time.NewTimer(a.responseTimeout)
	defer timer.Stop()

	var full strings.Builder
	var jsonBuffer strings.Builder
	markerSeen := false

	for {
		select {
		case <-ctx.Done():
			return nil, full.String()
		case <-timer.C:
			a.logger.Warn("response collection timed out", zap.Duration("timeout", a.responseTimeout))
			return nil, full.String()
		case line, ok := <-s.lines:
			if !ok {
				return nil, full.String()
			}

			stripped := strings.TrimSpace(line)
			a.logger.Debug("agent response", zap.String("line", stripped))
			full.WriteString(line)
			full.WriteString("\n")

			if strings.Contains(stripped, DecisionMarker) {
				markerSeen = true
				continue
			}

			if markerSeen {
				jsonBuffer.WriteString(stripped)
				buffered := jsonBuffer.String()
				if span, ok := firstJSONSpan(buffered); ok {
					if rec := parseCandidate(span); rec != nil {
						return rec, full.String()
					}
				}
				continue
			}

			for _, span := range inlineJSONSpans(stripped) {
				if rec := parseCandidate(span); rec != nil {
					return rec, full.String()
				}
			}
		}
	}
}
