package main

import (
	"fmt"
	"strings"

	"github.com/promptloom/promptloom"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of promptloom",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("promptloom version %s\n", strings.TrimSpace(promptloom.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
