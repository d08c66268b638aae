// Package cli implements the prompt command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/promptctl/internal/config"
	"github.com/opencode-ai/promptctl/internal/history"
	"github.com/opencode-ai/promptctl/internal/logging"
	"github.com/opencode-ai/promptctl/internal/templates"
)

var (
	cfgFile        string
	logLevel       string
	logFormat      string
	jsonOutput     bool
	jsonlOutput    bool
	noColor        bool
	nonInteractive bool
	noProgress     bool
	templateDirs   []string

	appConfig *config.Config
)

// Build metadata, set by SetVersionInfo.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Validate and render prompt templates",
	Long: `prompt manages reusable prompt templates: typed variables, static
validation, strict rendering and output formats for LLM tooling.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default "+config.DefaultPath()+")")
	flags.StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "log format (console, json)")
	flags.BoolVar(&jsonOutput, "json", false, "output JSON")
	flags.BoolVar(&jsonlOutput, "jsonl", false, "output JSON lines")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never prompt; fail instead")
	flags.BoolVar(&noProgress, "no-progress", false, "disable progress output")
	flags.StringSliceVar(&templateDirs, "templates", nil, "extra template directories, searched first")
}

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
	rootCmd.Version = v
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if jsonOutput && jsonlOutput {
		return fmt.Errorf("--json and --jsonl are mutually exclusive")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	appConfig = cfg

	logging.Init(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		NoColor: !colorEnabled(),
		Output:  cmd.ErrOrStderr(),
	})
	logger := logging.Component("cli")
	logger.Debug().
		Str("command", cmd.CommandPath()).
		Str("config", cfgFile).
		Msg("configuration loaded")
	return nil
}

// GetConfig returns the loaded configuration, or defaults before loading.
func GetConfig() *config.Config {
	if appConfig == nil {
		return config.DefaultConfig()
	}
	return appConfig
}

func newRegistry() *templates.Registry {
	cfg := GetConfig()
	projectDir, err := os.Getwd()
	if err != nil {
		projectDir = ""
	}
	extra := append(append([]string(nil), templateDirs...), cfg.Templates.Paths...)
	return templates.NewRegistry(
		templates.TemplateSearchPaths(projectDir, extra),
		templates.WithBuiltins(cfg.Templates.Builtins),
		templates.WithLogger(logging.Component("templates")),
	)
}

func openHistory(ctx context.Context) (*history.Recorder, error) {
	path := GetConfig().History.Path
	if path == "" {
		return nil, &PreflightError{
			Message:  "history database path is not configured",
			Hint:     "Set history.path in the config file or PROMPT_HISTORY_PATH",
			NextStep: "prompt init",
		}
	}
	return history.Open(ctx, path)
}
