package internal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/temazzz/autotrader/internal/domain"
)

var (
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warn      = lipgloss.AdaptiveColor{Light: "#BF6D43", Dark: "#F59F73"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}

	cycleTitleStyle = lipgloss.NewStyle().
			Foreground(highlight).
			Bold(true)

	executedStyle  = lipgloss.NewStyle().Foreground(special).Bold(true)
	simulatedStyle = lipgloss.NewStyle().Foreground(warn).Bold(true)

	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1)
)

// RenderCycleSummary renders a one-cycle report box for the terminal.
func RenderCycleSummary(cycle uint64, rec *domain.Recommendation, report *domain.ExecutionReport) string {
	var sb strings.Builder

	sb.WriteString(cycleTitleStyle.Render(fmt.Sprintf("CYCLE %d", cycle)))
	sb.WriteString("\n")

	if rec != nil {
		sb.WriteString(fmt.Sprintf("Recommendation: %s\n", rec.String()))
	}

	status := string(report.ExecutionStatus)
	switch report.ExecutionStatus {
	case domain.ExecutionExecuted:
		status = executedStyle.Render(status)
	case domain.ExecutionSimulated:
		status = simulatedStyle.Render(status)
	}
	sb.WriteString(fmt.Sprintf("Status: %s\n", status))

	if report.OrderID != "" {
		sb.WriteString(fmt.Sprintf("Order ID: %s\n", report.OrderID))
	}
	if report.Message != "" {
		sb.WriteString(fmt.Sprintf("Message: %s\n", report.Message))
	}
	sb.WriteString(fmt.Sprintf("Time: %s", report.Time.Format("2006-01-02 15:04:05")))

	return summaryBoxStyle.Render(sb.String())
}

// RenderCycleError renders a failed cycle so the operator stream stays a
// complete audit trail.
func RenderCycleError(cycle uint64, err error) string {
	var sb strings.Builder

	sb.WriteString(cycleTitleStyle.Render(fmt.Sprintf("CYCLE %d", cycle)))
	sb.WriteString("\n")
	sb.WriteString(simulatedStyle.Render("Status: ERROR"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Error: %s", err))

	return summaryBoxStyle.Render(sb.String())
}

// RenderFinalStatistics renders the shutdown banner with run totals.
func RenderFinalStatistics(stats RunStatistics) string {
	var sb strings.Builder

	sb.WriteString(cycleTitleStyle.Render("RUN STATISTICS"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Cycles:    %d\n", stats.Cycles))
	sb.WriteString(executedStyle.Render(fmt.Sprintf("Successes: %d", stats.Successes)))
	sb.WriteString("\n")
	sb.WriteString(simulatedStyle.Render(fmt.Sprintf("Errors:    %d", stats.Errors)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Uptime:    %s", stats.Uptime()))

	return summaryBoxStyle.Render(sb.String())
}
