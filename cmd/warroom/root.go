package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/warroomhq/warroom/internal/adapters/file"
	"github.com/warroomhq/warroom/internal/adapters/redis"
	"github.com/warroomhq/warroom/internal/config"
	"github.com/warroomhq/warroom/internal/logging"
	"github.com/warroomhq/warroom/pkg/ports"
)

var rootCmd = &cobra.Command{
	Use:   "warroom",
	Short: "Warroom is a multi-agent automation session coordinator",
	Long:  `Warroom coordinates automation sessions: a shared event stream, durable session state, and human-in-the-loop approvals behind one binary.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a warroom config file (YAML)")
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
}

// loadConfig resolves configuration for a command: file, environment,
// then flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	switch name, _ := cmd.Flags().GetString("log-level"); name {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return logging.New(level)
}

// newStore builds the configured session store backend.
func newStore(cfg config.Config, log *slog.Logger) ports.SessionStore {
	storeLog := logging.Component(log, "store")
	switch cfg.StoreBackend {
	case "redis":
		return redis.New(cfg.RedisAddr, "", 0,
			redis.WithExportPath(cfg.ExportsDir()),
			redis.WithLogger(storeLog))
	default:
		return file.New(cfg.SessionsDir(),
			file.WithExportPath(cfg.ExportsDir()),
			file.WithLogger(storeLog))
	}
}
