package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/promptctl/internal/prompt"
	"github.com/opencode-ai/promptctl/internal/quality"
)

var (
	scoreVars     []string
	scoreVarsFile string
	scoreMin      int
)

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringArrayVarP(&scoreVars, "var", "v", nil, "sample value key=value used for token estimates")
	scoreCmd.Flags().StringVar(&scoreVarsFile, "vars-file", "", "YAML or JSON file with sample values")
	scoreCmd.Flags().IntVar(&scoreMin, "min-score", 0, "exit non-zero when any template scores below this (0-100)")
}

var scoreCmd = &cobra.Command{
	Use:   "score [NAME...]",
	Short: "Grade template quality",
	Long: `Grade templates from A to F on clarity, consistency, completeness,
efficiency and structure, and list semantic issues such as a missing role or
unlabelled placeholders. With no arguments every discoverable template is
graded. Templates scoring ` + fmt.Sprint(quality.ProductionThreshold) + ` or more are considered production ready.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if scoreMin < 0 || scoreMin > 100 {
			return fmt.Errorf("--min-score must be between 0 and 100")
		}
		samples, err := gatherVariables(scoreVars, scoreVarsFile)
		if err != nil {
			return err
		}

		defs, err := scoreTargets(args)
		if err != nil {
			return err
		}

		reports := make([]*quality.Report, 0, len(defs))
		below := 0
		for _, def := range defs {
			report := quality.Score(def, quality.Options{Samples: samples})
			if report.Score < scoreMin {
				below++
			}
			reports = append(reports, report)
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			if err := WriteOutput(out, reports); err != nil {
				return err
			}
		} else {
			for i, report := range reports {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if err := writeQualityReport(out, report); err != nil {
					return err
				}
			}
		}

		if below > 0 {
			return &ExitError{Code: 1, Err: fmt.Errorf("%d template(s) scored below %d", below, scoreMin), Silent: true}
		}
		return nil
	},
}

func scoreTargets(names []string) ([]*prompt.Definition, error) {
	registry := newRegistry()
	if len(names) == 0 {
		defs, _, err := registry.List()
		return defs, err
	}
	defs := make([]*prompt.Definition, 0, len(names))
	for _, name := range names {
		def, err := registry.Load(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func writeQualityReport(out io.Writer, report *quality.Report) error {
	styles := currentStyles()

	ready := colorize("production ready", styles.Success)
	if !report.ProductionReady {
		ready = colorize("needs work", styles.Warning)
	}
	fmt.Fprintf(out, "%s %s  %s %d/100  %s\n",
		colorize("Quality:", styles.Title), report.Template,
		colorize(report.Grade, gradeStyle(report.Grade)), report.Score, ready)
	fmt.Fprintln(out, report.Summary)
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(report.Dimensions))
	for _, d := range report.Dimensions {
		detail := ""
		if len(d.Details) > 0 {
			detail = strings.Join(d.Details[:min(2, len(d.Details))], "; ")
		}
		rows = append(rows, []string{d.Dimension, fmt.Sprintf("%d", d.Score), truncateText(detail, 70)})
	}
	if err := writeTable(out, []string{"DIMENSION", "SCORE", "DETAILS"}, rows); err != nil {
		return err
	}

	if len(report.Suggestions) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, colorize("Suggestions", styles.Heading))
		for i, s := range report.Suggestions {
			fmt.Fprintf(out, "  %d. %s\n", i+1, s)
		}
	}

	if report.Semantic != nil && len(report.Semantic.Findings) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, colorize("Semantic issues", styles.Heading))
		for _, f := range report.Semantic.Findings {
			label, style := "INFO", styles.Muted
			if f.Severity == quality.SeverityWarning {
				label, style = "WARN", styles.Warning
			}
			fmt.Fprintf(out, "  %s %s: %s\n", colorize(label, style), f.Location, f.Message)
		}
	}
	return nil
}

func gradeStyle(grade string) lipgloss.Style {
	styles := currentStyles()
	switch grade {
	case "A", "B":
		return styles.Success
	case "C":
		return styles.Warning
	}
	return styles.Error
}
