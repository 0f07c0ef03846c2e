package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warroomhq/warroom"
	"github.com/warroomhq/warroom/internal/adapters/bridge"
	"github.com/warroomhq/warroom/internal/adapters/gateway"
	"github.com/warroomhq/warroom/internal/logging"
	"github.com/warroomhq/warroom/internal/observability"
	"github.com/warroomhq/warroom/internal/presentation/tui"
	"github.com/warroomhq/warroom/pkg/bus"
	"github.com/warroomhq/warroom/pkg/event"
	"github.com/warroomhq/warroom/pkg/orchestrator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the warroom coordinator",
	Long:  `Starts the event gateway, the command dispatch loop, and periodic autosave of the active session.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		log := newLogger(cmd)
		metrics := observability.New()

		b := bus.New(
			bus.WithCapacity(cfg.BusCapacity),
			bus.WithPublishHandler(func(event.Event) { metrics.EventsPublished.Inc() }),
			bus.WithDropHandler(func(event.Event) { metrics.EventsDropped.Inc() }),
		)
		store := newStore(cfg, log)
		core := orchestrator.New(store, b,
			orchestrator.WithExecutor(bridge.New(cfg.BridgeURL,
				bridge.WithLogger(logging.Component(log, "bridge")))),
			orchestrator.WithLogger(logging.Component(log, "core")),
			orchestrator.WithAutosaveHook(func() { metrics.AutosaveRuns.Inc() }),
		)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		core.Dispatch(ctx)
		go core.Autosave(ctx, cfg.AutosaveInterval)

		gw := gateway.New(b,
			gateway.WithLogger(logging.Component(log, "gateway")),
			gateway.WithMetrics(metrics))
		srv := &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: gw.Handler(),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Print(tui.Banner(warroom.Version))
			fmt.Printf("Listening on %s (ws at /ws)\n", srv.Addr)
			fmt.Printf("Sessions stored in: %s\n", cfg.SessionsDir())
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Stop the loops, save what we hold, then drain the listener.
			cancel()
			if id := core.ActiveSessionID(); id != "" {
				saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := core.SaveSession(saveCtx, id); err != nil {
					fmt.Printf("Final save failed: %v\n", err)
				}
				saveCancel()
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Warroom stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
