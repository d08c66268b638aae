package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opencode-ai/promptctl/internal/prompt"
)

var (
	showRaw     bool
	showPreview bool
)

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().BoolVar(&showRaw, "raw", false, "print the template document as YAML")
	showCmd.Flags().BoolVar(&showPreview, "preview", false, "render with placeholders for missing values")
}

var showCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show template details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		def, err := newRegistry().Load(args[0])
		if err != nil {
			return err
		}

		if showRaw {
			data, err := yaml.Marshal(def)
			if err != nil {
				return fmt.Errorf("encode template: %w", err)
			}
			_, err = out.Write(data)
			return err
		}

		if showPreview {
			text, err := prompt.Preview(def, nil)
			if err != nil {
				return err
			}
			if IsJSONOutput() || IsJSONLOutput() {
				return WriteOutput(out, map[string]string{"template": def.Name, "preview": text})
			}
			fmt.Fprintln(out, text)
			return nil
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, def)
		}
		return writeDefinition(out, def)
	},
}

func writeDefinition(out io.Writer, def *prompt.Definition) error {
	styles := currentStyles()

	fmt.Fprintf(out, "%s %s\n", colorize(def.Name, styles.Title), colorize("v"+def.Version, styles.Muted))
	if def.Description != "" {
		fmt.Fprintln(out, def.Description)
	}
	fmt.Fprintln(out)
	if def.Author != "" {
		fmt.Fprintf(out, "Author:  %s\n", def.Author)
	}
	if len(def.Tags) > 0 {
		fmt.Fprintf(out, "Tags:    %s\n", strings.Join(def.Tags, ", "))
	}
	fmt.Fprintf(out, "Source:  %s\n", def.Source)

	if len(def.Variables) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, colorize("Variables", styles.Heading))
		rows := make([][]string, 0, len(def.Variables))
		for _, v := range def.Variables {
			rows = append(rows, []string{
				v.Name,
				string(v.Type),
				formatYesNo(v.Required),
				formatValue(v.Default),
				truncateText(v.Description, 40),
			})
		}
		if err := writeTable(out, []string{"NAME", "TYPE", "REQUIRED", "DEFAULT", "DESCRIPTION"}, rows); err != nil {
			return err
		}
	}

	for _, body := range def.Bodies() {
		fmt.Fprintln(out)
		fmt.Fprintln(out, panel(bodyTitle(body.Name), strings.TrimRight(body.Text, "\n")))
	}
	return nil
}

func bodyTitle(name string) string {
	switch name {
	case prompt.BodySystem:
		return "System Prompt"
	case prompt.BodyUser:
		return "User Prompt"
	default:
		return "Template"
	}
}
