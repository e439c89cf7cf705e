package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/dsadash/dsadash/internal/extract"
	"github.com/dsadash/dsadash/internal/schema"
	"github.com/dsadash/dsadash/internal/ui"
)

var addCmd = &cobra.Command{
	Use:     "add <link or description>",
	GroupID: "ai",
	Short:   "Add a question from a problem link or description",
	Long: `Add a question to the sheet. The input is sent to the AI model, which
fills in the name, platform, topic and link. Without an API key, a link is
used as-is and the name is taken from its path.

New questions are always pinned and Pending.

Examples:
  dsa add https://leetcode.com/problems/two-sum/
  dsa add "find the longest palindromic substring" --interactive`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		interactive, _ := cmd.Flags().GetBool("interactive")
		input := strings.TrimSpace(strings.Join(args, " "))
		if input == "" {
			fatal("question input is required")
		}

		ctx, stop := signalContext()
		defer stop()
		a := mustOpen(ctx, nil)
		defer a.close()

		if err := a.ensureLoaded(ctx, false); err != nil {
			fmt.Fprintln(os.Stderr, ui.RenderFail("Could not load the sheet: "+err.Error()))
		}

		fmt.Printf("%s Generating question details...\n", ui.RenderAccent("…"))
		draft := a.extractor.Extract(ctx, input)

		if interactive {
			if !ui.IsTerminal(os.Stdin) {
				fatal("--interactive needs a terminal")
			}
			if err := editDraft(&draft); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Println("Cancelled")
					return
				}
				fatal("%v", err)
			}
		}

		q, res, err := a.store.AddQuestion(ctx, draft.Question())
		if err != nil {
			fatal("%v", err)
		}

		fmt.Print(ui.Question(q))
		if draft.Description != "" {
			fmt.Println("  " + ui.RenderMuted(draft.Description))
		}
		printResult(res)
	},
}

// editDraft lets the user correct the generated fields before saving.
func editDraft(d *extract.Draft) error {
	required := func(field string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", field)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(&d.Name).Validate(required("name")),
			huh.NewInput().Title("Platform").Value(&d.Platform).Validate(required("platform")),
			huh.NewInput().Title("Link").Value(&d.Link),
			huh.NewInput().Title("Topic").Value(&d.Topic),
			huh.NewConfirm().Title("Pin this question?").Value(&d.Pinned),
		),
	)
	return form.Run()
}

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	GroupID: "ai",
	Short:   "Ask the AI model which question matches a query",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		offline, _ := cmd.Flags().GetBool("offline")

		ctx, stop := signalContext()
		defer stop()
		a := mustOpen(ctx, nil)
		defer a.close()

		if err := a.ensureLoaded(ctx, offline); err != nil {
			fatal("%v", err)
		}

		res := a.extractor.Search(ctx, strings.Join(args, " "), a.store.Questions(schema.FilterAll))
		fmt.Print(ui.Search(res))
	},
}

var solutionCmd = &cobra.Command{
	Use:     "solution <question name>",
	GroupID: "ai",
	Short:   "Show an AI-written explanation and C++ solution",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		offline, _ := cmd.Flags().GetBool("offline")
		name := strings.Join(args, " ")

		ctx, stop := signalContext()
		defer stop()
		a := mustOpen(ctx, nil)
		defer a.close()

		if err := a.ensureLoaded(ctx, offline); err != nil {
			fatal("%v", err)
		}

		q, ok := a.store.Question(name)
		if !ok {
			fatal("unknown question %q", name)
		}
		fmt.Print(ui.Solution(q.Name, a.extractor.Solve(ctx, q)))
	},
}

func init() {
	addCmd.Flags().BoolP("interactive", "i", false, "Review the generated fields before adding")
	searchCmd.Flags().Bool("offline", false, "Search the last fetched copy without fetching")
	solutionCmd.Flags().Bool("offline", false, "Use the last fetched copy without fetching")

	rootCmd.AddCommand(addCmd, searchCmd, solutionCmd)
}
