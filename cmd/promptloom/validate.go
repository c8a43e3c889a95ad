package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptloom/promptloom/pkg/loader"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a chain definition for consistency",
	Long:  `Parses the definition file, checks that the prompt matrix is rectangular and matches the agent roster, and reports the executable step count.`,
	Run: func(cmd *cobra.Command, args []string) {
		steps, err := runValidate(cmd, args)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Chain is valid! ✅ (%d executable steps)\n", steps)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) (int, error) {
	file, _ := cmd.Flags().GetString("file")
	if !cmd.Flags().Changed("file") && len(args) > 0 {
		file = args[0]
	}

	definition, err := loader.LoadFile(file)
	if err != nil {
		return 0, err
	}

	mc, _, err := definition.Build()
	if err != nil {
		return 0, err
	}
	mc.BuildDependencies()
	return mc.StepCount(), nil
}
