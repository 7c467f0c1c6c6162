package domain

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Required JSON keys of a recommendation payload. These three keys are the
// only structured contract the decision agent honors.
const (
	KeyAction    = "action"
	KeyCoin      = "coin"
	KeyAmountUSD = "amount_usd"
)

var coinPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// Recommendation is the validated trading recommendation extracted from the
// decision agent's output.
type Recommendation struct {
	Action    Action          `json:"action"`
	Coin      string          `json:"coin"`
	AmountUSD decimal.Decimal `json:"amount_usd"`

	// Synthesized marks recommendations reconstructed from free text rather
	// than asserted by the agent itself. Downstream consumers treat these
	// with lower trust.
	Synthesized bool `json:"-"`
}

// ParseRecommendation builds a validated recommendation from a raw JSON
// payload. The payload must contain all three required keys; a well-formed
// JSON object missing any of them is not a recommendation.
func ParseRecommendation(raw string) (*Recommendation, error) {
	payload := sanitizePayload(raw)

	if !json.Valid([]byte(payload)) {
		return nil, errors.New("invalid JSON structure")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, errors.Wrap(err, "JSON unmarshal error")
	}
	for _, key := range []string{KeyAction, KeyCoin, KeyAmountUSD} {
		if _, ok := fields[key]; !ok {
			return nil, errors.Errorf("missing required key %q", key)
		}
	}

	var parsed struct {
		Action    string          `json:"action"`
		Coin      string          `json:"coin"`
		AmountUSD decimal.Decimal `json:"amount_usd"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, errors.Wrap(err, "JSON unmarshal error")
	}

	action, ok := ParseAction(parsed.Action)
	if !ok {
		return nil, errors.Errorf("invalid action: %s", parsed.Action)
	}

	rec := &Recommendation{
		Action:    action,
		Coin:      strings.ToUpper(strings.TrimSpace(parsed.Coin)),
		AmountUSD: parsed.AmountUSD,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// sanitizePayload strips markdown code fences the agent occasionally wraps
// around its JSON.
func sanitizePayload(raw string) string {
	payload := strings.TrimSpace(raw)
	payload = strings.TrimPrefix(payload, "```json")
	payload = strings.TrimPrefix(payload, "```")
	payload = strings.TrimSuffix(payload, "```")
	return strings.TrimSpace(payload)
}

// Validate validates the recommendation invariants.
func (r *Recommendation) Validate() error {
	if _, ok := ParseAction(string(r.Action)); !ok {
		return errors.Errorf("invalid action: %s", r.Action)
	}
	if r.Coin == "" {
		return errors.New("coin field is required")
	}
	if !coinPattern.MatchString(r.Coin) {
		return errors.Errorf("invalid coin symbol: %s", r.Coin)
	}
	if r.AmountUSD.LessThanOrEqual(decimal.Zero) {
		return errors.Errorf("amount_usd must be positive, got %s", r.AmountUSD.String())
	}
	return nil
}

// String renders a compact human-readable form for logs.
func (r *Recommendation) String() string {
	var b strings.Builder
	b.WriteString(string(r.Action))
	b.WriteString(" ")
	b.WriteString(r.Coin)
	b.WriteString(" for $")
	b.WriteString(r.AmountUSD.StringFixed(2))
	if r.Synthesized {
		b.WriteString(" (synthesized)")
	}
	return b.String()
}
