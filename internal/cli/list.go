package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/promptctl/internal/prompt"
	"github.com/opencode-ai/promptctl/internal/templates"
)

var (
	listTags   []string
	listSearch string
	listPaths  bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringSliceVarP(&listTags, "tag", "t", nil, "only templates with this tag (repeatable)")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "match name or description")
	listCmd.Flags().BoolVar(&listPaths, "paths", false, "show template search paths")
}

// TemplateSummary is the list entry for one template.
type TemplateSummary struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Variables   int      `json:"variables"`
	Chat        bool     `json:"chat"`
	Source      string   `json:"source"`
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List available templates",
	Long: `List templates from every search path. Project templates shadow user
templates, which shadow the built-in set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		registry := newRegistry()

		if listPaths {
			return writePathStatus(out, registry.PathStatus())
		}

		var (
			defs []*prompt.Definition
			err  error
		)
		if listSearch != "" || len(listTags) > 0 {
			defs, err = registry.Search(listSearch, listTags)
		} else {
			var loadErrs []*templates.LoadError
			defs, loadErrs, err = registry.List()
			for _, loadErr := range loadErrs {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", loadErr)
			}
		}
		if err != nil {
			return err
		}

		summaries := make([]TemplateSummary, 0, len(defs))
		for _, def := range defs {
			summaries = append(summaries, summarize(def))
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, summaries)
		}

		if len(summaries) == 0 {
			fmt.Fprintln(out, "No templates found.")
			fmt.Fprintln(out, "Searched:")
			for _, path := range registry.Paths() {
				fmt.Fprintf(out, "  %s\n", path)
			}
			fmt.Fprintln(out, "Run 'prompt init --with-examples' to create starter templates.")
			return nil
		}

		rows := make([][]string, 0, len(summaries))
		for _, s := range summaries {
			rows = append(rows, []string{
				s.Name,
				s.Version,
				fmt.Sprintf("%d", s.Variables),
				strings.Join(s.Tags, ","),
				truncateText(s.Description, 48),
			})
		}
		return writeTable(out, []string{"NAME", "VERSION", "VARS", "TAGS", "DESCRIPTION"}, rows)
	},
}

func summarize(def *prompt.Definition) TemplateSummary {
	return TemplateSummary{
		Name:        def.Name,
		Version:     def.Version,
		Description: def.Description,
		Tags:        def.Tags,
		Variables:   len(def.Variables),
		Chat:        def.IsChat(),
		Source:      def.Source,
	}
}

func writePathStatus(out io.Writer, statuses []templates.PathStatus) error {
	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(out, statuses)
	}
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		rows = append(rows, []string{
			status.Path,
			formatYesNo(status.Exists),
			fmt.Sprintf("%d", status.Templates),
		})
	}
	return writeTable(out, []string{"PATH", "EXISTS", "TEMPLATES"}, rows)
}
