package main

import (
	"fmt"
	"os"

	"github.com/promptloom/promptloom/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a chain definition",
	Long:  `Runs the chain described by the definition file, resolving prompt placeholders and fanning steps across the declared agents. With --session, progress persists between invocations.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		if !cmd.Flags().Changed("file") && len(args) > 0 {
			file = args[0]
		}

		opts := cli.RunOptions{FilePath: file}
		opts.SessionID, _ = cmd.Flags().GetString("session")
		opts.StepMode, _ = cmd.Flags().GetBool("step")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.RedisAddr, _ = cmd.Flags().GetString("redis")
		opts.Debug, _ = cmd.Flags().GetBool("debug")

		if err := cli.RunChain(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("session", "", "Session ID for durable, resumable progress")
	runCmd.Flags().Bool("step", false, "Execute a single step instead of running to completion")
	runCmd.Flags().Bool("json", false, "Emit the result as JSON instead of rendered markdown")
	runCmd.Flags().String("redis", "", "Redis address for session persistence (e.g. localhost:6379)")

	// Make 'run' the default if no command is provided
	rootCmd.Run = runCmd.Run
}
