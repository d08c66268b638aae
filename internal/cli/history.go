package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/promptctl/internal/models"
)

var (
	historyLimit       int
	historyTemplate    string
	historyStatsLimit  int
	historyEventsLimit int
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyEventsCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum renders to show")
	historyCmd.Flags().StringVarP(&historyTemplate, "template", "t", "", "only renders of this template")
	historyStatsCmd.Flags().IntVarP(&historyStatsLimit, "limit", "n", 20, "maximum templates to show")
	historyEventsCmd.Flags().IntVarP(&historyEventsLimit, "limit", "n", 50, "maximum events to show")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded renders",
	Long: `List renders recorded with 'prompt run --record' or with history.enabled
set in the config file, newest first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		recorder, err := openHistory(ctx)
		if err != nil {
			return err
		}
		defer recorder.Close()

		records, err := recorder.List(ctx, models.RenderQuery{Template: historyTemplate, Limit: historyLimit})
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, records)
		}
		if len(records) == 0 {
			fmt.Fprintln(out, "No renders recorded.")
			return nil
		}
		rows := make([][]string, 0, len(records))
		for _, record := range records {
			rows = append(rows, []string{
				shortID(record.ID),
				formatTimestamp(record.CreatedAt),
				record.Template,
				record.Version,
				record.Format,
				fmt.Sprintf("%d", record.EstimatedTokens),
			})
		}
		return writeTable(out, []string{"ID", "CREATED", "TEMPLATE", "VERSION", "FORMAT", "TOKENS"}, rows)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one recorded render",
	Long:  "Show one recorded render. ID may be a unique prefix.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		recorder, err := openHistory(ctx)
		if err != nil {
			return err
		}
		defer recorder.Close()

		record, err := recorder.Get(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, record)
		}
		return writeRenderRecord(out, record)
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize renders per template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		recorder, err := openHistory(ctx)
		if err != nil {
			return err
		}
		defer recorder.Close()

		usage, err := recorder.TopTemplates(ctx, historyStatsLimit)
		if err != nil {
			return fmt.Errorf("summarize history: %w", err)
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, usage)
		}
		if len(usage) == 0 {
			fmt.Fprintln(out, "No renders recorded.")
			return nil
		}
		rows := make([][]string, 0, len(usage))
		for _, u := range usage {
			rows = append(rows, []string{
				u.Template,
				fmt.Sprintf("%d", u.Renders),
				fmt.Sprintf("%d", u.EstimatedTokens),
				formatTimestamp(u.LastRenderedAt),
			})
		}
		return writeTable(out, []string{"TEMPLATE", "RENDERS", "TOKENS", "LAST RENDERED"}, rows)
	},
}

// TemplateEvents is the payload of 'history events'.
type TemplateEvents struct {
	Usage  *models.TemplateUsage `json:"usage"`
	Events []*models.Event       `json:"events"`
}

var historyEventsCmd = &cobra.Command{
	Use:   "events TEMPLATE",
	Short: "Show the event log of one template",
	Long:  "Show renders, failed renders and validations recorded for a template, oldest first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		recorder, err := openHistory(ctx)
		if err != nil {
			return err
		}
		defer recorder.Close()

		usage, err := recorder.Usage(ctx, args[0])
		if err != nil {
			return fmt.Errorf("summarize %s: %w", args[0], err)
		}
		evts, err := recorder.Events(ctx, args[0], historyEventsLimit)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() {
			return WriteOutput(out, TemplateEvents{Usage: usage, Events: evts})
		}
		if IsJSONLOutput() {
			return WriteOutput(out, evts)
		}

		fmt.Fprintf(out, "%s: %d render(s), %d estimated tokens\n\n", args[0], usage.Renders, usage.EstimatedTokens)
		if len(evts) == 0 {
			fmt.Fprintln(out, "No events recorded.")
			return nil
		}
		rows := make([][]string, 0, len(evts))
		for _, event := range evts {
			rows = append(rows, []string{
				formatTimestamp(event.Timestamp),
				string(event.Type),
				truncateText(string(event.Payload), 60),
			})
		}
		return writeTable(out, []string{"TIME", "TYPE", "DETAILS"}, rows)
	},
}

func writeRenderRecord(out io.Writer, record *models.RenderRecord) error {
	styles := currentStyles()
	fmt.Fprintf(out, "%s %s\n", colorize("Render", styles.Title), record.ID)
	rows := [][]string{
		{"Template:", record.Template + " v" + record.Version},
		{"Format:", record.Format},
		{"Created:", formatTimestamp(record.CreatedAt)},
		{"Tokens:", fmt.Sprintf("%d (%d chars)", record.EstimatedTokens, record.Chars)},
	}
	if record.Source != "" {
		rows = append(rows, []string{"Source:", record.Source})
	}
	if err := writeTable(out, nil, rows); err != nil {
		return err
	}

	if len(record.Variables) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, colorize("Variables", styles.Heading))
		vrows := make([][]string, 0, len(record.Variables))
		for _, key := range sortedKeys(record.Variables) {
			vrows = append(vrows, []string{key, truncateText(formatValue(record.Variables[key]), 60)})
		}
		if err := writeTable(out, nil, vrows); err != nil {
			return err
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, panel("Output", record.Output))
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
