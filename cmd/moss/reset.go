package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every note, the queue and the sync history",
	Long: `Reset wipes all local data. Pending changes that were never synced are
lost. Requires --force.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if !resetForce {
			fmt.Fprintln(os.Stderr, "Error: reset deletes all local data; re-run with --force")
			os.Exit(1)
		}

		ctx := cmd.Context()
		rt := openRuntime(ctx)
		defer rt.Close()

		if err := rt.Service.ClearAllData(ctx); err != nil {
			fatal("Failed to clear data", err)
		}
		fmt.Println("All data cleared.")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Confirm the reset")
}
