package domain

import "time"

// CycleEvent is the journal record of one trading cycle: the query sent, the
// recommendation extracted (if any) and the execution outcome.
type CycleEvent struct {
	Timestamp       time.Time `json:"ts"`
	Cycle           uint64    `json:"cycle"`
	Query           string    `json:"query"`
	Action          string    `json:"action,omitempty"`
	Coin            string    `json:"coin,omitempty"`
	AmountUSD       string    `json:"amount_usd,omitempty"`
	Synthesized     bool      `json:"synthesized,omitempty"`
	ExecutionStatus string    `json:"execution_status,omitempty"`
	OrderID         string    `json:"order_id,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// NewCycleEvent builds a journal event from the cycle's recommendation and
// report, either of which may be nil on failed cycles.
func NewCycleEvent(cycle uint64, query string, rec *Recommendation, report *ExecutionReport, cycleErr error) CycleEvent {
	event := CycleEvent{
		Timestamp: time.Now(),
		Cycle:     cycle,
		Query:     query,
	}
	if rec != nil {
		event.Action = string(rec.Action)
		event.Coin = rec.Coin
		event.AmountUSD = rec.AmountUSD.String()
		event.Synthesized = rec.Synthesized
	}
	if report != nil {
		event.ExecutionStatus = string(report.ExecutionStatus)
		event.OrderID = report.OrderID
	}
	if cycleErr != nil {
		event.Error = cycleErr.Error()
	}
	return event
}

// CycleEventRecord bundles a cycle event with its journal index.
type CycleEventRecord struct {
	Index uint64
	Event CycleEvent
}
