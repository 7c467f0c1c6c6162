package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportStatus is the overall outcome of one execution attempt.
type ReportStatus string

const (
	ReportSuccess ReportStatus = "SUCCESS"
	ReportError   ReportStatus = "ERROR"
)

// ExecutionStatus distinguishes simulated from real executions.
type ExecutionStatus string

const (
	ExecutionSimulated ExecutionStatus = "SIMULATED"
	ExecutionExecuted  ExecutionStatus = "EXECUTED"
)

// ExecutionReport is the immutable record produced once per cycle describing
// what was (or was not) done with a recommendation.
type ExecutionReport struct {
	Status          ReportStatus
	Action          Action
	Coin            string
	AmountUSD       decimal.Decimal
	ExecutionStatus ExecutionStatus
	OrderID         string
	Message         string
	Time            time.Time
}

// NewSimulatedReport builds a successful report for an execution that never
// touched the exchange.
func NewSimulatedReport(rec *Recommendation, message string) *ExecutionReport {
	return &ExecutionReport{
		Status:          ReportSuccess,
		Action:          rec.Action,
		Coin:            rec.Coin,
		AmountUSD:       rec.AmountUSD,
		ExecutionStatus: ExecutionSimulated,
		Message:         message,
		Time:            time.Now(),
	}
}

// NewExecutedReport builds a successful report for a live order.
func NewExecutedReport(rec *Recommendation, orderID, message string) *ExecutionReport {
	return &ExecutionReport{
		Status:          ReportSuccess,
		Action:          rec.Action,
		Coin:            rec.Coin,
		AmountUSD:       rec.AmountUSD,
		ExecutionStatus: ExecutionExecuted,
		OrderID:         orderID,
		Message:         message,
		Time:            time.Now(),
	}
}

// NewErrorReport builds a failed report. The recommendation may be nil when
// validation rejected the input before execution.
func NewErrorReport(rec *Recommendation, message string) *ExecutionReport {
	report := &ExecutionReport{
		Status:  ReportError,
		Message: message,
		Time:    time.Now(),
	}
	if rec != nil {
		report.Action = rec.Action
		report.Coin = rec.Coin
		report.AmountUSD = rec.AmountUSD
	}
	return report
}
