package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsadash/dsadash/internal/config"
	"github.com/dsadash/dsadash/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "questions",
	Short:   "Serve the question list over HTTP with live WebSocket updates",
	Long: `Start the dashboard server.

The JSON API under /api/ mirrors the CLI: list, toggle status and pinned,
add, random, search, solution and settings. Every change is pushed to
connected WebSocket clients.

WebSocket messages include:
- stats: totals (sent on connect and after every change)
- refresh: the list was re-fetched, or the fetch failed
- question_update / rollback: a status or pinned change settled
- question_added: a question was appended
- highlight: a random pick to highlight briefly
- config: the sheet or webhook changed

Edits to the config file are picked up while the server runs.

Example usage:
  dsa dashboard                  # Start on the configured port (8080)
  dsa dashboard --port 9000      # Start on a custom port`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		// The handler is the store's notice callback, so it is built first
		// and given the store and server once they exist.
		handler := dashboard.NewHandler(nil, nil, newLogger("dashboard"))

		a := mustOpen(ctx, handler.OnNotice)
		defer a.close()
		handler.SetStore(a.store)

		port := a.config().DashboardPort
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		reload := func(ctx context.Context) error {
			if err := a.reload(ctx); err != nil {
				return err
			}
			cfg := a.config()
			handler.OnConfigChanged(cfg.DocumentID(), cfg.WebhookURL != "")
			go func() {
				_ = a.refresh(context.Background())
			}()
			return nil
		}

		server := dashboard.NewServer(&dashboard.Config{
			Port: port,
			API: dashboard.NewAPI(dashboard.Backend{
				Store:     a.store,
				Extractor: a.extractor,
				Settings:  a.db,
				Config:    a.config,
				Reload:    reload,
				Logger:    newLogger("api"),
			}),
			Welcome: handler.StatsMessage,
			Logger:  newLogger("dashboard"),
		})
		handler.SetServer(server)

		if err := server.Start(); err != nil {
			fatal("failed to start dashboard: %v", err)
		}

		go func() {
			if err := a.refresh(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: initial fetch failed: %v\n", err)
			}
		}()

		watcher, err := config.NewWatcher(configPath(), 200*time.Millisecond, newLogger("config"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: config file changes will not be picked up: %v\n", err)
		} else {
			defer watcher.Stop()
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-watcher.Changes():
						if err := reload(ctx); err != nil {
							fmt.Fprintf(os.Stderr, "Warning: failed to reload config: %v\n", err)
						}
					}
				}
			}()
		}

		addr := server.GetAddr()
		fmt.Printf("Dashboard server started on http://%s\n", addr)
		fmt.Printf("WebSocket endpoint: ws://%s/ws\n", addr)
		fmt.Printf("Health check: http://%s/health\n", addr)
		fmt.Println("\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			fatal("error during shutdown: %v", err)
		}
		fmt.Println("Dashboard server stopped")
	},
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 8080, "Port to listen on (default from dashboard.port)")
	rootCmd.AddCommand(dashboardCmd)
}
