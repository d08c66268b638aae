package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/promptctl/internal/format"
	"github.com/opencode-ai/promptctl/internal/logging"
	"github.com/opencode-ai/promptctl/internal/prompt"
	"github.com/opencode-ai/promptctl/internal/vars"
)

var (
	runVars        []string
	runVarsFile    string
	runInteractive bool
	runFormat      string
	runProvider    string
	runOutput      string
	runRecord      bool
	runDelimiter   string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVarP(&runVars, "var", "v", nil, "variable assignment key=value (repeatable, @file reads a file)")
	runCmd.Flags().StringVar(&runVarsFile, "vars-file", "", "YAML or JSON file with variable values")
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "prompt for every variable not supplied")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "", "output format ("+strings.Join(format.Names(), ", ")+")")
	runCmd.Flags().StringVar(&runProvider, "provider", "openai", "chat-api provider (openai, anthropic)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "write output to a file instead of stdout")
	runCmd.Flags().BoolVar(&runRecord, "record", false, "record the render in history")
	runCmd.Flags().StringVar(&runDelimiter, "delimiter", "", "list delimiter for string list values")
}

var runCmd = &cobra.Command{
	Use:   "run NAME",
	Short: "Render a template",
	Long: `Render a template with the supplied variables.

Values come from --vars-file and --var, the latter winning. A value of
"@path" reads the file's content; glob patterns concatenate every match.
Missing required variables are prompted for when a terminal is attached.`,
	Example: `  prompt run summarizer --var content=@README.md --var style=brief
  prompt run code-reviewer -v code=@main.go -v language=go --format chat-api --provider anthropic`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		cfg := GetConfig()
		logger := logging.Component("run")

		formatName := resolveFormat(cmd, cfg.Render.Format)
		formatter, err := format.Get(formatName, format.WithProvider(runProvider))
		if err != nil {
			return err
		}

		def, err := newRegistry().Load(args[0])
		if err != nil {
			return err
		}

		values, err := gatherVariables(runVars, runVarsFile)
		if err != nil {
			return err
		}
		delimiter := runDelimiter
		if delimiter == "" {
			delimiter = cfg.Render.ListDelimiter
		}
		values, err = collectMissing(ctx, cmd, def, values, delimiter)
		if err != nil {
			return err
		}

		recording := runRecord || cfg.History.Enabled
		out, err := prompt.Render(def, values, prompt.WithListDelimiter(delimiter))
		if err != nil {
			if recording {
				recordFailure(ctx, cmd.ErrOrStderr(), def, err)
			}
			return err
		}
		if len(out.Ignored) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: ignoring undeclared variables: %s\n", strings.Join(out.Ignored, ", "))
		}

		result := format.NewResult(def, out)
		text, err := formatter.Format(result)
		if err != nil {
			return fmt.Errorf("format output: %w", err)
		}

		if recording {
			recordRender(ctx, cmd.ErrOrStderr(), result, formatName)
		}
		logger.Debug().Str("template", def.Name).Str("format", formatName).Str("render_id", result.RenderID).Msg("rendered")

		return writeRendered(cmd.OutOrStdout(), cmd.ErrOrStderr(), text)
	},
}

func resolveFormat(cmd *cobra.Command, configured string) string {
	if cmd.Flags().Changed("format") {
		return runFormat
	}
	if IsJSONOutput() || IsJSONLOutput() {
		return format.JSON
	}
	if configured == "" {
		return format.Raw
	}
	return configured
}

// collectMissing prompts for variable values when --interactive is set, or
// when required values are missing and a terminal is attached.
func collectMissing(ctx context.Context, cmd *cobra.Command, def *prompt.Definition, values map[string]any, delimiter string) (map[string]any, error) {
	if runInteractive {
		if err := requireInteractive("--interactive"); err != nil {
			return nil, err
		}
		return collect(ctx, cmd, def, values, true, delimiter)
	}
	if !missingRequired(def, values) || IsNonInteractive() {
		return values, nil
	}
	return collect(ctx, cmd, def, values, false, delimiter)
}

func collect(ctx context.Context, cmd *cobra.Command, def *prompt.Definition, values map[string]any, all bool, delimiter string) (map[string]any, error) {
	collector := vars.NewCollector(
		driverFactory(cmd.ErrOrStderr()),
		vars.PromptOptional(all),
		vars.ListDelimiter(delimiter),
	)
	collected, err := collector.Collect(ctx, def, values)
	if errors.Is(err, vars.ErrAborted) {
		return nil, &ExitError{Code: 130, Err: err}
	}
	return collected, err
}

func missingRequired(def *prompt.Definition, values map[string]any) bool {
	for _, v := range def.RequiredVariables() {
		if value, ok := values[v.Name]; !ok || value == nil {
			return true
		}
	}
	return false
}

func writeRendered(stdout, stderr io.Writer, text string) error {
	if runOutput == "" {
		_, err := fmt.Fprintln(stdout, text)
		return err
	}
	if dir := filepath.Dir(runOutput); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(runOutput, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(stderr, "Wrote %s\n", runOutput)
	return nil
}

func recordRender(ctx context.Context, stderr io.Writer, result *format.Result, formatName string) {
	recorder, err := openHistory(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "warning: history unavailable: %v\n", err)
		return
	}
	defer recorder.Close()
	if _, err := recorder.Record(ctx, result, formatName); err != nil {
		fmt.Fprintf(stderr, "warning: failed to record render: %v\n", err)
	}
}

func recordFailure(ctx context.Context, stderr io.Writer, def *prompt.Definition, renderErr error) {
	recorder, err := openHistory(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "warning: history unavailable: %v\n", err)
		return
	}
	defer recorder.Close()
	if err := recorder.RecordFailure(ctx, def.Name, def.Version, renderErr); err != nil {
		fmt.Fprintf(stderr, "warning: failed to record render failure: %v\n", err)
	}
}
