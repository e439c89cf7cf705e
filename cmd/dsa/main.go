// Command dsa tracks a DSA practice list kept in a Google Sheet.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dsadash/dsadash/internal/config"
	"github.com/dsadash/dsadash/internal/ui"
)

var (
	cfgFile string
	verbose bool

	// logOut receives component logs; set before each command runs.
	logOut io.Writer = io.Discard
)

var rootCmd = &cobra.Command{
	Use:   "dsa",
	Short: "Track DSA practice questions from a Google Sheet",
	Long: `dsa reads a practice list from a published Google Sheet, lets you mark
questions solved or pinned, adds new questions from a link or description,
and serves a live dashboard.

Status and pinned changes apply locally at once and are sent to the sheet's
Apps Script webhook when one is configured.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// logWriter reads rootCmd's flags, so the hook cannot live in the literal.
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		ui.Setup(os.Stdout)
		logOut = logWriter()
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: "questions", Title: "Questions:"},
		&cobra.Group{ID: "ai", Title: "AI helpers:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log activity to stderr")
	rootCmd.PersistentFlags().String("db", "", "Local state database")
	rootCmd.PersistentFlags().String("sheet", "", "Google Sheet URL (overrides config and saved setting)")
	rootCmd.PersistentFlags().String("webhook", "", "Apps Script webhook URL")
}

// newViper returns the config layers with the persistent flags bound on top.
func newViper() *viper.Viper {
	v := config.NewViper(cfgFile)
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag(config.KeyDBPath, flags.Lookup("db"))
	_ = v.BindPFlag(config.KeySheetURL, flags.Lookup("sheet"))
	_ = v.BindPFlag(config.KeyWebhookURL, flags.Lookup("webhook"))
	_ = v.BindPFlag(config.KeyLogVerbose, flags.Lookup("verbose"))
	return v
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath()
}

// logWriter routes logs to the configured rotating file and, with
// --verbose, to stderr.
func logWriter() io.Writer {
	cfg, err := config.Load(newViper())
	if err != nil {
		if verbose {
			return os.Stderr
		}
		return io.Discard
	}

	var writers []io.Writer
	if cfg.LogFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	if cfg.Verbose {
		writers = append(writers, os.Stderr)
	}

	switch len(writers) {
	case 0:
		return io.Discard
	case 1:
		return writers[0]
	default:
		return io.MultiWriter(writers...)
	}
}

func newLogger(component string) *log.Logger {
	return log.New(logOut, "["+component+"] ", log.LstdFlags)
}

// exitHooks run in reverse order when fatal exits; os.Exit skips defers.
var exitHooks []func()

// onFatal registers f to run if the command exits through fatal.
func onFatal(f func()) {
	exitHooks = append(exitHooks, f)
}

// fatal prints err the way every command reports failure and exits.
func fatal(format string, args ...any) {
	fmt.Fprint(os.Stderr, ui.Error(fmt.Errorf(format, args...)))
	runExitHooks()
	os.Exit(1)
}

func runExitHooks() {
	for i := len(exitHooks) - 1; i >= 0; i-- {
		exitHooks[i]()
	}
	exitHooks = nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, ui.Error(err))
		os.Exit(1)
	}
}
