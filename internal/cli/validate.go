package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/promptctl/internal/prompt"
	"github.com/opencode-ai/promptctl/internal/quality"
	"github.com/opencode-ai/promptctl/internal/templates"
)

const codeLoadError = "load_error"

var (
	validateStrict   bool
	validateSemantic bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "treat warnings as errors")
	validateCmd.Flags().BoolVar(&validateSemantic, "semantic", false, "also report prompt-writing issues (role, instructions, placeholders) as warnings")
}

// ValidationResult is the outcome of validating one target.
type ValidationResult struct {
	Target string `json:"target"`
	Source string `json:"source,omitempty"`
	*prompt.Report
}

func (r ValidationResult) failed(strict bool) bool {
	return !r.Valid || (strict && len(r.Warnings) > 0)
}

var validateCmd = &cobra.Command{
	Use:   "validate [FILE|DIR|NAME...]",
	Short: "Statically check templates",
	Long: `Check templates without rendering them: schema, template syntax, and
that every referenced variable is declared. With no arguments every
discoverable template is checked. Exits non-zero when any template has errors.

--semantic adds advisory warnings about how the prompt is written, such as
a missing role or placeholders without a label.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		step := startProgress(cmd.ErrOrStderr(), "Checking templates")
		results := validateTargets(newRegistry(), args)
		step.Done()

		failed := 0
		for _, r := range results {
			if r.failed(validateStrict) {
				failed++
			}
		}
		if GetConfig().History.Enabled {
			recordValidations(ctx, cmd.ErrOrStderr(), results)
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			if err := WriteOutput(out, results); err != nil {
				return err
			}
		} else {
			writeValidationResults(out, results)
		}

		if failed > 0 {
			return &ExitError{Code: 1, Err: fmt.Errorf("%d of %d template(s) failed validation", failed, len(results)), Silent: true}
		}
		return nil
	},
}

func validateTargets(registry *templates.Registry, targets []string) []ValidationResult {
	if len(targets) == 0 {
		defs, loadErrs, err := registry.List()
		if err != nil {
			return []ValidationResult{loadFailure("templates", err)}
		}
		results := make([]ValidationResult, 0, len(defs)+len(loadErrs))
		for _, def := range defs {
			results = append(results, validateDefinition(def.Name, def))
		}
		for _, loadErr := range loadErrs {
			results = append(results, loadFailure(loadErr.Path, loadErr))
		}
		return results
	}

	var results []ValidationResult
	for _, target := range targets {
		info, err := os.Stat(target)
		switch {
		case err == nil && info.IsDir():
			defs, loadErrs, err := templates.LoadTemplatesFromDir(target)
			if err != nil {
				results = append(results, loadFailure(target, err))
				continue
			}
			for _, def := range defs {
				results = append(results, validateDefinition(def.Source, def))
			}
			for _, loadErr := range loadErrs {
				results = append(results, loadFailure(loadErr.Path, loadErr))
			}
		case err == nil:
			def, err := templates.LoadTemplate(target)
			if err != nil {
				results = append(results, loadFailure(target, err))
				continue
			}
			results = append(results, validateDefinition(target, def))
		default:
			def, err := registry.Load(target)
			if err != nil {
				results = append(results, loadFailure(target, err))
				continue
			}
			results = append(results, validateDefinition(target, def))
		}
	}
	return results
}

func validateDefinition(target string, def *prompt.Definition) ValidationResult {
	report := prompt.Validate(def)
	if validateSemantic {
		report.Warnings = append(report.Warnings, quality.CheckSemantics(def).Issues()...)
	}
	return ValidationResult{Target: target, Source: def.Source, Report: report}
}

func loadFailure(target string, err error) ValidationResult {
	return ValidationResult{
		Target: target,
		Report: &prompt.Report{
			Template: target,
			Errors: []prompt.Issue{{
				Code:     codeLoadError,
				Severity: prompt.SeverityError,
				Message:  err.Error(),
			}},
			Warnings:   []prompt.Issue{},
			Declared:   []string{},
			Referenced: []string{},
		},
	}
}

func writeValidationResults(out io.Writer, results []ValidationResult) {
	var errCount, warnCount int
	for _, r := range results {
		name := r.Template
		if name == "" {
			name = r.Target
		}
		fmt.Fprintf(out, "%s %s", formatReportStatus(r.Report), name)
		if r.Source != "" && r.Source != r.Target {
			fmt.Fprintf(out, " %s", colorize("("+r.Source+")", currentStyles().Muted))
		}
		fmt.Fprintln(out)
		for _, issue := range r.Errors {
			fmt.Fprintf(out, "  %s\n", formatIssue(issue))
		}
		for _, issue := range r.Warnings {
			fmt.Fprintf(out, "  %s\n", formatIssue(issue))
		}
		if !r.Valid {
			errCount++
		} else if len(r.Warnings) > 0 {
			warnCount++
		}
	}
	fmt.Fprintf(out, "\n%d template(s) checked, %d with errors, %d with warnings\n", len(results), errCount, warnCount)
}

func recordValidations(ctx context.Context, stderr io.Writer, results []ValidationResult) {
	recorder, err := openHistory(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "warning: history unavailable: %v\n", err)
		return
	}
	defer recorder.Close()
	for _, r := range results {
		if r.Template == "" {
			continue
		}
		if err := recorder.RecordValidation(ctx, r.Template, r.Valid, len(r.Errors), len(r.Warnings)); err != nil {
			fmt.Fprintf(stderr, "warning: failed to record validation: %v\n", err)
			return
		}
	}
}
