package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warroomhq/warroom/internal/presentation/tui"
	"github.com/warroomhq/warroom/pkg/ports"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored sessions",
	Long:  `List, inspect, export, import, and remove sessions from the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored sessions, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)
		summaries, err := store.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing sessions: %v\n", err)
			os.Exit(1)
		}

		if len(summaries) == 0 {
			fmt.Println("No sessions found.")
			return
		}

		for _, s := range summaries {
			fmt.Printf("%s  %-20s %-9s %s  tasks=%d findings=%d\n",
				s.ID, s.Name, s.Mode, s.UpdatedAt.Format("2006-01-02 15:04"),
				s.TaskCount, s.FindingCount)
		}
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print a session's full state as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)
		session, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error loading session '%s': %v\n", args[0], err)
			os.Exit(1)
		}

		data, err := json.MarshalIndent(session, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling session: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)
		hasError := false

		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				fmt.Printf("Error removing '%s': %v\n", id, err)
				hasError = true
			} else {
				fmt.Printf("Removed session '%s'\n", id)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

var sessionExportCmd = &cobra.Command{
	Use:   "export <session-id> [destination]",
	Short: "Export a session to a .wrs file",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)

		if len(args) == 2 {
			if err := store.Export(cmd.Context(), args[0], args[1]); err != nil {
				fmt.Printf("Error exporting '%s': %v\n", args[0], err)
				os.Exit(1)
			}
			fmt.Printf("Exported to %s\n", args[1])
			return
		}

		path, err := store.ExportAuto(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error exporting '%s': %v\n", args[0], err)
			os.Exit(1)
		}
		fmt.Printf("Exported to %s\n", path)
	},
}

var sessionImportCmd = &cobra.Command{
	Use:   "import <file.wrs>",
	Short: "Import a session from a .wrs file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)
		id, err := store.Import(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error importing '%s': %v\n", args[0], err)
			os.Exit(1)
		}
		fmt.Printf("Imported session '%s'\n", id)
	},
}

var sessionReportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Render a session's engagement report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)
		session, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error loading session '%s': %v\n", args[0], err)
			os.Exit(1)
		}

		rendered, err := tui.Render(tui.Report(session))
		if err != nil {
			// Fall back to plain markdown when styling fails.
			fmt.Println(tui.Report(session))
			return
		}
		fmt.Print(rendered)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionCmd.AddCommand(sessionExportCmd)
	sessionCmd.AddCommand(sessionImportCmd)
	sessionCmd.AddCommand(sessionReportCmd)
}

func getStore(cmd *cobra.Command) ports.SessionStore {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	return newStore(cfg, newLogger(cmd))
}
