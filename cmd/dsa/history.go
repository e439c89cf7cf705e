package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/dsadash/dsadash/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	GroupID: "questions",
	Short:   "Show recent status, pinned and add requests",
	Long: `Show the local log of every change sent to the sheet, newest first, with
whether the webhook accepted it.

--since accepts a date ("2026-01-31"), an RFC 3339 time, or plain English
("yesterday", "last monday", "3 days ago").`,
	Run: func(cmd *cobra.Command, args []string) {
		sinceFlag, _ := cmd.Flags().GetString("since")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")
		if !validFormat(format) {
			fatal("--format must be table, json, or yaml")
		}

		var since time.Time
		if sinceFlag != "" {
			t, err := parseSince(sinceFlag, time.Now())
			if err != nil {
				fatal("%v", err)
			}
			since = t
		}

		ctx, stop := signalContext()
		defer stop()
		a := mustOpen(ctx, nil)
		defer a.close()

		entries, err := a.db.ListMutations(ctx, since, limit)
		if err != nil {
			fatal("failed to read history: %v", err)
		}

		if format != "table" {
			if err := writeStructured(os.Stdout, format, map[string]any{"mutations": entries}); err != nil {
				fatal("%v", err)
			}
			return
		}

		if len(entries) == 0 {
			fmt.Println(ui.RenderMuted("No changes recorded."))
			return
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tACTION\tQUESTION\tVALUE\tRESULT")
		for _, m := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				m.CreatedAt.Local().Format("2006-01-02 15:04"), m.Action, m.Name, m.Value, m.Outcome)
		}
		_ = tw.Flush()
	},
}

// parseSince reads an absolute date or a natural-language expression
// relative to now.
func parseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse --since %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand --since %q", s)
	}
	return r.Time, nil
}

func init() {
	historyCmd.Flags().String("since", "", "Only show changes after this time")
	historyCmd.Flags().Int("limit", 50, "Maximum entries to show (0 for all)")
	historyCmd.Flags().String("format", "table", "Output format: table, json, or yaml")
	rootCmd.AddCommand(historyCmd)
}
