package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/promptctl/internal/analyzer"
)

var (
	analyzeModels   []string
	analyzeVars     []string
	analyzeVarsFile string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringSliceVarP(&analyzeModels, "model", "m", nil, "model to check context fit against (repeatable)")
	analyzeCmd.Flags().StringArrayVarP(&analyzeVars, "var", "v", nil, "sample value key=value used for token estimates")
	analyzeCmd.Flags().StringVar(&analyzeVarsFile, "vars-file", "", "YAML or JSON file with sample values")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze NAME",
	Short: "Estimate token usage and review template structure",
	Long: `Estimate how many tokens a template will use, whether it fits the
context window of common models, and how its variables are used. Sample
values given with --var replace the per-type estimates.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := newRegistry().Load(args[0])
		if err != nil {
			return err
		}
		samples, err := gatherVariables(analyzeVars, analyzeVarsFile)
		if err != nil {
			return err
		}

		result := analyzer.Analyze(def, analyzer.Options{Samples: samples, Models: analyzeModels})

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, result)
		}
		return writeAnalysis(out, result)
	},
}

func writeAnalysis(out io.Writer, result *analyzer.Result) error {
	styles := currentStyles()
	tokens := result.Tokens

	fmt.Fprintf(out, "%s %s\n\n", colorize("Analysis:", styles.Title), result.Template)

	fmt.Fprintln(out, colorize("Tokens", styles.Heading))
	rows := [][]string{}
	if result.Structure.HasTemplate {
		rows = append(rows, []string{"template", fmt.Sprintf("%d", tokens.Template)})
	}
	if result.Structure.HasSystemPrompt {
		rows = append(rows, []string{"system prompt", fmt.Sprintf("%d", tokens.System)})
	}
	if result.Structure.HasUserPrompt {
		rows = append(rows, []string{"user prompt", fmt.Sprintf("%d", tokens.User)})
	}
	rows = append(rows,
		[]string{"static", fmt.Sprintf("%d", tokens.Static)},
		[]string{"estimated total", fmt.Sprintf("%d", tokens.Total)},
	)
	if err := writeTable(out, nil, rows); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, colorize("Model fit", styles.Heading))
	models := make([]string, 0, len(tokens.ModelFit))
	for model := range tokens.ModelFit {
		models = append(models, model)
	}
	sort.Strings(models)
	rows = rows[:0]
	for _, model := range models {
		fit := colorize("fits", styles.Success)
		if !tokens.ModelFit[model] {
			fit = colorize("too large", styles.Error)
		}
		rows = append(rows, []string{model, fmt.Sprintf("%d", analyzer.ModelLimit(model)), fit})
	}
	if err := writeTable(out, []string{"MODEL", "CONTEXT", "FIT"}, rows); err != nil {
		return err
	}

	if len(result.Variables) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, colorize("Variables", styles.Heading))
		rows = rows[:0]
		for _, v := range result.Variables {
			rows = append(rows, []string{
				v.Name,
				v.Type,
				fmt.Sprintf("%d", v.EstimatedTokens),
				fmt.Sprintf("%d", v.UsageCount),
				v.DescriptionQuality,
			})
		}
		if err := writeTable(out, []string{"NAME", "TYPE", "TOKENS", "USES", "DESCRIPTION"}, rows); err != nil {
			return err
		}
	}

	s := result.Structure
	fmt.Fprintln(out)
	fmt.Fprintln(out, colorize("Structure", styles.Heading))
	fmt.Fprintf(out, "conditionals %d, loops %d, nesting depth %d, sections %d\n",
		s.Conditionals, s.Loops, s.NestingDepth, s.SectionCount)

	if len(result.Recommendations) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, colorize("Recommendations", styles.Heading))
		for _, rec := range result.Recommendations {
			fmt.Fprintf(out, "  - %s\n", rec)
		}
	}
	return nil
}
