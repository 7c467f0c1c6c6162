package domain

import "strings"

// Action represents the trade direction recommended by the decision agent.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// ParseAction normalizes a raw action string to a typed Action.
// The agent emits both upper- and lowercase variants.
func ParseAction(raw string) (Action, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(ActionBuy):
		return ActionBuy, true
	case string(ActionSell):
		return ActionSell, true
	}
	return "", false
}

// Side returns the lowercase order side expected by the exchange API.
func (a Action) Side() string {
	return strings.ToLower(string(a))
}

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}
