package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/opencode-ai/promptctl/internal/prompt"
)

func formatReportStatus(report *prompt.Report) string {
	label, style := statusLabelForReport(report)
	return colorize(label, style)
}

func statusLabelForReport(report *prompt.Report) (string, lipgloss.Style) {
	styles := currentStyles()
	switch {
	case !report.Valid:
		return "ERR", styles.Error
	case len(report.Warnings) > 0:
		return "WARN", styles.Warning
	default:
		return "OK", styles.Success
	}
}

func formatIssue(issue prompt.Issue) string {
	styles := currentStyles()
	label, style := "ERR", styles.Error
	if issue.Severity == prompt.SeverityWarning {
		label, style = "WARN", styles.Warning
	}
	return fmt.Sprintf("%s %s", colorize(label, style), issue.String())
}
