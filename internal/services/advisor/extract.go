package advisor

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/temazzz/autotrader/internal/domain"
)

// DecisionMarker is the literal the agent prints before its final structured
// answer. The misspelling is part of the wire contract.
const DecisionMarker = "Final desision:"

// defaultAmountUSD is used when a synthesized recommendation carries no
// discoverable dollar figure.
var defaultAmountUSD = decimal.NewFromInt(500)

// coinVocabulary is the fixed set of symbols the heuristic fallback knows
// about.
var coinVocabulary = []string{"BTC", "ETH", "DOGE", "SHIB", "PEPE", "DOT", "AXS", "SOL", "BNB", "XRP"}

var (
	// markerJSONPattern finds the marker followed by a JSON object, tolerant
	// of embedded newlines and whitespace inside the braces.
	markerJSONPattern = regexp.MustCompile(`(?is)Final desision:\s*(\{.*?\})`)

	// keyTriplePattern matches a bare action/coin/amount_usd triple anywhere
	// in the text, with or without surrounding object syntax.
	keyTriplePattern = regexp.MustCompile(`"action"\s*:\s*"([^"]+)"\s*,\s*"coin"\s*:\s*"([^"]+)"\s*,\s*"amount_usd"\s*:\s*(\d+\.?\d*)`)

	// dollarAmountPattern finds the first dollar-ish figure in free text.
	dollarAmountPattern = regexp.MustCompile(`(?i)(?:\$|usd\s*)?(\d+(?:\.\d+)?)`)
)

// buyIntentPatterns maps each vocabulary coin to a buy-verb-near-symbol
// pattern, compiled once.
var buyIntentPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(coinVocabulary))
	for _, coin := range coinVocabulary {
		patterns[coin] = regexp.MustCompile(`(?i)(?:buy|buying|purchase)\s+(?:some)?\s*` + coin)
	}
	return patterns
}()

// extractStrategy attempts to recover a recommendation from accumulated
// text. Strategies are tried in a fixed priority order with early exit on
// the first success.
type extractStrategy func(text string) *domain.Recommendation

// fallbackStrategies is the ordered whole-text chain run after the streaming
// scan found nothing.
var fallbackStrategies = []extractStrategy{
	extractMarkerJSON,
	extractKeyTriple,
	synthesize,
}

// extractFromText runs the fallback chain over the full captured output.
func extractFromText(text string) *domain.Recommendation {
	for _, strategy := range fallbackStrategies {
		if rec := strategy(text); rec != nil {
			return rec
		}
	}
	return nil
}

// extractMarkerJSON looks for the decision marker followed by a parseable
// recommendation object.
func extractMarkerJSON(text string) *domain.Recommendation {
	for _, match := range markerJSONPattern.FindAllStringSubmatch(text, -1) {
		if rec := parseCandidate(match[1]); rec != nil {
			return rec
		}
	}
	return nil
}

// extractKeyTriple recovers a recommendation from a bare key triple even
// when the surrounding JSON is truncated.
func extractKeyTriple(text string) *domain.Recommendation {
	match := keyTriplePattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	action, ok := domain.ParseAction(match[1])
	if !ok {
		return nil
	}
	amount, err := decimal.NewFromString(match[3])
	if err != nil {
		return nil
	}

	rec := &domain.Recommendation{
		Action:    action,
		Coin:      strings.ToUpper(strings.TrimSpace(match[2])),
		AmountUSD: amount,
	}
	if rec.Validate() != nil {
		return nil
	}
	return rec
}

// synthesize is the last-resort heuristic: scan for known coin symbols and
// buy-intent verbs and fabricate a recommendation from them. The result is
// tagged Synthesized so consumers know the agent never asserted it.
func synthesize(text string) *domain.Recommendation {
	// explicit buy intent wins over bare mentions
	for _, coin := range coinVocabulary {
		if !buyIntentPatterns[coin].MatchString(text) {
			continue
		}
		return &domain.Recommendation{
			Action:      domain.ActionBuy,
			Coin:        coin,
			AmountUSD:   firstDollarAmount(text),
			Synthesized: true,
		}
	}

	for _, coin := range coinVocabulary {
		if strings.Contains(text, coin) {
			return &domain.Recommendation{
				Action:      domain.ActionBuy,
				Coin:        coin,
				AmountUSD:   defaultAmountUSD,
				Synthesized: true,
			}
		}
	}

	return nil
}

func firstDollarAmount(text string) decimal.Decimal {
	match := dollarAmountPattern.FindStringSubmatch(text)
	if match == nil {
		return defaultAmountUSD
	}
	amount, err := decimal.NewFromString(match[1])
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return defaultAmountUSD
	}
	return amount
}

// parseCandidate validates a JSON span as a recommendation; nil when the
// span is not a complete recommendation object.
func parseCandidate(span string) *domain.Recommendation {
	rec, err := domain.ParseRecommendation(span)
	if err != nil {
		return nil
	}
	return rec
}

// firstJSONSpan extracts the first brace-balanced {...} span from s.
func firstJSONSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// inlineJSONSpans returns every {...} span found within a single line.
func inlineJSONSpans(line string) []string {
	var spans []string
	rest := line
	for {
		span, ok := firstJSONSpan(rest)
		if !ok {
			return spans
		}
		spans = append(spans, span)
		idx := strings.Index(rest, span)
		rest = rest[idx+len(span):]
	}
}
