package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dsadash/dsadash/internal/mutate"
	"github.com/dsadash/dsadash/internal/reconcile"
	"github.com/dsadash/dsadash/internal/schema"
	"github.com/dsadash/dsadash/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "questions",
	Short:   "List questions, pinned first",
	Long: `List the practice questions with local status and pinned changes applied.

The sheet is fetched on every run unless --offline is given, in which case the
last fetched copy is shown.

Examples:
  dsa list
  dsa list --filter pending
  dsa list --format json`,
	Run: func(cmd *cobra.Command, args []string) {
		filterFlag, _ := cmd.Flags().GetString("filter")
		format, _ := cmd.Flags().GetString("format")
		offline, _ := cmd.Flags().GetBool("offline")

		filter, err := schema.ParseFilter(filterFlag)
		if err != nil {
			fatal("%v", err)
		}
		if !validFormat(format) {
			fatal("--format must be table, json, or yaml")
		}

		ctx, stop := signalContext()
		defer stop()
		a := mustOpen(ctx, nil)
		defer a.close()

		if !offline {
			if err := a.refresh(ctx); err != nil {
				fmt.Fprintln(os.Stderr, ui.RenderFail("No questions loaded: "+err.Error()))
			}
		}

		questions := a.store.Questions(filter)
		if format != "table" {
			if err := writeStructured(os.Stdout, format, map[string]any{"questions": questions}); err != nil {
				fatal("%v", err)
			}
			return
		}
		fmt.Print(ui.QuestionTable(questions, ui.Width(os.Stdout)))
		fmt.Print(ui.Summary(a.store.Questions(schema.FilterAll), a.store.FetchedAt()))
	},
}

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "questions",
	Short:   "Fetch the sheet and save a local copy",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signalContext()
		defer stop()
		a := mustOpen(ctx, nil)
		defer a.close()

		fmt.Printf("%s Fetching sheet %s...\n", ui.RenderAccent("↻"), a.store.DocumentID())
		start := time.Now()
		if err := a.refresh(ctx); err != nil {
			fatal("sync failed: %v", err)
		}

		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
		fmt.Print(ui.Summary(a.store.Questions(schema.FilterAll), a.store.FetchedAt()))
	},
}

var statusCmd = &cobra.Command{
	Use:     "status <question name>",
	GroupID: "questions",
	Short:   "Toggle a question between Solved and Pending",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runToggle(cmd, strings.Join(args, " "), reconcile.FieldStatus)
	},
}

var pinCmd = &cobra.Command{
	Use:     "pin <question name>",
	GroupID: "questions",
	Short:   "Toggle whether a question is pinned",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runToggle(cmd, strings.Join(args, " "), reconcile.FieldPinned)
	},
}

func runToggle(cmd *cobra.Command, name string, field reconcile.Field) {
	offline, _ := cmd.Flags().GetBool("offline")

	ctx, stop := signalContext()
	defer stop()
	a := mustOpen(ctx, nil)
	defer a.close()

	if err := a.ensureLoaded(ctx, offline); err != nil {
		fatal("%v", err)
	}

	toggle := a.store.ToggleStatus
	if field == reconcile.FieldPinned {
		toggle = a.store.TogglePinned
	}

	res, err := toggle(ctx, name)
	var rbErr *reconcile.RollbackError
	switch {
	case errors.As(err, &rbErr):
		fatal("%v (the change was undone)", rbErr)
	case err != nil:
		fatal("%v", err)
	}

	q, _ := a.store.Question(name)
	fmt.Print(ui.Question(q))
	printResult(res)
}

var randomCmd = &cobra.Command{
	Use:     "random",
	GroupID: "questions",
	Short:   "Pick a random pending question",
	Run: func(cmd *cobra.Command, args []string) {
		offline, _ := cmd.Flags().GetBool("offline")

		ctx, stop := signalContext()
		defer stop()
		a := mustOpen(ctx, nil)
		defer a.close()

		if err := a.ensureLoaded(ctx, offline); err != nil {
			fatal("%v", err)
		}

		q, ok := a.store.PickRandomPending()
		if !ok {
			fatal("no pending questions")
		}
		fmt.Print(ui.Question(q))
	},
}

func printResult(res mutate.Result) {
	fmt.Print(ui.Result(res))
	if verbose && res.Method == mutate.MethodLocal {
		fmt.Print(ui.SetupSteps(res.SetupInstructions))
	}
}

func validFormat(f string) bool {
	return f == "table" || f == "json" || f == "yaml"
}

func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// signalContext is cancelled on Ctrl+C.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func init() {
	listCmd.Flags().String("filter", "all", "Filter: all, solved, or pending")
	listCmd.Flags().String("format", "table", "Output format: table, json, or yaml")
	listCmd.Flags().Bool("offline", false, "Show the last fetched copy without fetching")

	for _, c := range []*cobra.Command{statusCmd, pinCmd, randomCmd} {
		c.Flags().Bool("offline", false, "Use the last fetched copy without fetching")
	}

	rootCmd.AddCommand(listCmd, syncCmd, statusCmd, pinCmd, randomCmd)
}
