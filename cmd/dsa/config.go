package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/dsadash/dsadash/internal/config"
	"github.com/dsadash/dsadash/internal/localdb"
	"github.com/dsadash/dsadash/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Show and edit configuration",
	Long: `Configuration is layered: built-in defaults, then the TOML config file,
then DSA_* environment variables, then command-line flags.

The sheet and webhook URLs may also be saved in the local database with
"dsa config save" (the dashboard's settings form does the same). A saved URL
is used only when the file, environment and flags leave it empty, and
expires after a year.

Keys:
  ` + strings.Join(config.SortedKeys(), "\n  "),
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		if format == "table" {
			format = "yaml"
		}
		if !validFormat(format) {
			fatal("--format must be json or yaml")
		}

		ctx, stop := signalContext()
		defer stop()
		a := mustOpen(ctx, nil)
		defer a.close()

		cfg := a.config()
		fmt.Println(ui.RenderMuted("# " + configPath()))
		if err := writeStructured(os.Stdout, format, cfg.Redacted()); err != nil {
			fatal("%v", err)
		}
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(configPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		path := configPath()
		if err := config.WriteStarter(path, force); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a key in the config file",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.SetKey(configPath(), args[0], args[1]); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s %s = %s\n", ui.RenderPass("✓"), args[0], args[1])
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a key from the config file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.UnsetKey(configPath(), args[0]); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s Removed %s\n", ui.RenderPass("✓"), args[0])
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save [sheet-url] [webhook-url]",
	Short: "Save the sheet and webhook URLs for a year",
	Long: `Save the Google Sheet URL and, optionally, the Apps Script webhook URL in
the local database. Without arguments on a terminal, a form asks for them.`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var sheetURL, webhookURL string
		if len(args) > 0 {
			sheetURL = args[0]
		}
		if len(args) > 1 {
			webhookURL = args[1]
		}

		ctx, stop := signalContext()
		defer stop()
		db := openSettings(ctx)
		defer db.Close()

		if len(args) == 0 {
			if !ui.IsTerminal(os.Stdin) {
				fatal("a sheet URL is required")
			}
			sheetURL, _, _ = db.Setting(ctx, localdb.SettingSheetURL)
			webhookURL, _, _ = db.Setting(ctx, localdb.SettingWebhookURL)
			if err := promptURLs(&sheetURL, &webhookURL); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Println("Cancelled")
					return
				}
				fatal("%v", err)
			}
		}

		if err := config.Save(ctx, db, sheetURL, webhookURL); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s Saved %s\n", ui.RenderPass("✓"), strings.TrimSpace(sheetURL))
	},
}

var configForgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Remove the saved sheet and webhook URLs",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signalContext()
		defer stop()
		db := openSettings(ctx)
		defer db.Close()

		if err := config.Forget(ctx, db); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s Forgot saved URLs\n", ui.RenderPass("✓"))
	},
}

// openSettings opens the local database without loading the question list.
func openSettings(ctx context.Context) *localdb.DB {
	cfg, err := config.Load(newViper())
	if err != nil {
		fatal("%v", err)
	}
	db, err := localdb.OpenContext(ctx, cfg.DBPath)
	if err != nil {
		fatal("failed to open local database: %v", err)
	}
	onFatal(func() { _ = db.Close() })
	return db
}

func promptURLs(sheetURL, webhookURL *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Google Sheet URL").
				Placeholder("https://docs.google.com/spreadsheets/d/.../edit").
				Value(sheetURL).
				Validate(config.ValidateSheetURL),
			huh.NewInput().
				Title("Apps Script webhook URL (optional)").
				Value(webhookURL).
				Validate(config.ValidateWebhookURL),
		),
	)
	return form.Run()
}

func init() {
	configShowCmd.Flags().String("format", "yaml", "Output format: yaml or json")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd, configSetCmd,
		configUnsetCmd, configSaveCmd, configForgetCmd)
	rootCmd.AddCommand(configCmd)
}
