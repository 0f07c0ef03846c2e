package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warroomhq/warroom"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of warroom",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("warroom version %s\n", warroom.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
