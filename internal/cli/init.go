package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/promptctl/internal/config"
	"github.com/opencode-ai/promptctl/internal/templates"
)

var (
	initPath         string
	initWithExamples bool
	initForce        bool
)

// configDirFunc is replaced in tests.
var configDirFunc = config.ConfigDir

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initPath, "path", "templates", "template directory to create")
	initCmd.Flags().BoolVar(&initWithExamples, "with-examples", false, "copy the built-in templates into the directory")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing files")
}

type initResult struct {
	name    string
	status  string // done, skipped, failed
	message string
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file and a template directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		results := []initResult{
			createConfigFile(),
			createTemplatesDir(initPath),
		}
		if initWithExamples {
			results = append(results, writeExamples(initPath))
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			payload := make([]map[string]string, 0, len(results))
			for _, r := range results {
				payload = append(payload, map[string]string{"step": r.name, "status": r.status, "message": r.message})
			}
			if err := WriteOutput(out, payload); err != nil {
				return err
			}
		} else {
			writeInitResults(out, results)
		}

		for _, r := range results {
			if r.status == "failed" {
				return &ExitError{Code: 1, Err: fmt.Errorf("init failed: %s", r.message), Silent: true}
			}
		}
		return nil
	},
}

const configTemplate = `# Prompt Configuration File
# Environment variables with the PROMPT_ prefix override these values,
# for example PROMPT_LOG_LEVEL=debug.

templates:
  # Extra template directories, searched before the defaults.
  paths: []
  # Include the built-in templates.
  builtins: true

render:
  # raw, json, markdown, chat-api or env
  format: raw
  list_delimiter: ","

history:
  enabled: false
  # path: ~/.local/share/prompt/history.db

log:
  level: warn
  format: console

server:
  addr: 127.0.0.1:8484
  # rate_limits:
  #   render: {rate: 50, burst: 100}
`

func createConfigFile() initResult {
	result := initResult{name: "Config file"}
	path := filepath.Join(configDirFunc(), "config.yaml")

	if _, err := os.Stat(path); err == nil && !initForce {
		result.status = "skipped"
		result.message = fmt.Sprintf("%s already exists (use --force to overwrite)", path)
		return result
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		result.status = "failed"
		result.message = fmt.Sprintf("create config directory: %v", err)
		return result
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o644); err != nil {
		result.status = "failed"
		result.message = fmt.Sprintf("write config: %v", err)
		return result
	}
	result.status = "done"
	result.message = path
	return result
}

func createTemplatesDir(dir string) initResult {
	result := initResult{name: "Template directory"}
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		result.status = "skipped"
		result.message = fmt.Sprintf("%s already exists", dir)
		return result
	case err == nil:
		result.status = "failed"
		result.message = fmt.Sprintf("%s exists and is not a directory", dir)
		return result
	case !errors.Is(err, fs.ErrNotExist):
		result.status = "failed"
		result.message = err.Error()
		return result
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.status = "failed"
		result.message = fmt.Sprintf("create %s: %v", dir, err)
		return result
	}
	result.status = "done"
	result.message = dir
	return result
}

func writeExamples(dir string) initResult {
	result := initResult{name: "Example templates"}
	written, skipped, err := templates.WriteBuiltinTemplates(dir, initForce)
	if err != nil {
		result.status = "failed"
		result.message = err.Error()
		return result
	}
	if len(written) == 0 {
		result.status = "skipped"
		result.message = fmt.Sprintf("already present: %s", strings.Join(skipped, ", "))
		return result
	}
	result.status = "done"
	result.message = strings.Join(written, ", ")
	return result
}

func writeInitResults(out io.Writer, results []initResult) {
	styles := currentStyles()
	for _, r := range results {
		label := r.status
		switch r.status {
		case "done":
			label = colorize("done", styles.Success)
		case "skipped":
			label = colorize("skipped", styles.Muted)
		case "failed":
			label = colorize("failed", styles.Error)
		}
		fmt.Fprintf(out, "[%s] %s: %s\n", label, r.name, r.message)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next: 'prompt list' to see templates, 'prompt new NAME' to create one.")
}
