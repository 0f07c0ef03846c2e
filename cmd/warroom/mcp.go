package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warroomhq/warroom/internal/adapters/bridge"
	mcpAdapter "github.com/warroomhq/warroom/internal/adapters/mcp"
	"github.com/warroomhq/warroom/internal/logging"
	"github.com/warroomhq/warroom/pkg/bus"
	"github.com/warroomhq/warroom/pkg/orchestrator"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the coordinator over MCP on stdio",
	Long:  `Exposes session tools (create_session, list_sessions, queue_task, resolve_approval, session_report) to MCP clients over stdin/stdout.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		log := newLogger(cmd)

		b := bus.New(bus.WithCapacity(cfg.BusCapacity))
		core := orchestrator.New(newStore(cfg, log), b,
			orchestrator.WithExecutor(bridge.New(cfg.BridgeURL,
				bridge.WithLogger(logging.Component(log, "bridge")))),
			orchestrator.WithLogger(logging.Component(log, "core")),
		)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go core.Autosave(ctx, cfg.AutosaveInterval)

		if err := mcpAdapter.NewServer(core).ServeStdio(); err != nil {
			fmt.Printf("MCP server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
