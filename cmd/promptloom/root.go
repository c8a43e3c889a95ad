package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "promptloom",
	Short: "Promptloom is a prompt-chain execution engine",
	Long:  `Promptloom runs matrices of templated prompts across a team of agents, resolving placeholders against a shared context and persisting progress between steps.`,
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
	rootCmd.PersistentFlags().StringP("file", "f", "chain.yaml", "Chain definition file (YAML or JSON)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable verbose logging")
}
