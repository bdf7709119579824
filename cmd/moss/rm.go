package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:     "rm [id...]",
	Aliases: []string{"delete"},
	Short:   "Delete notes",
	Long:    `Delete notes locally and queue their deletion for the next sync.`,
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		rt := openRuntime(ctx)
		defer rt.Close()

		failed := false
		for _, id := range args {
			if err := rt.Service.DeleteNote(ctx, id); err != nil {
				fmt.Fprintf(os.Stderr, "Error deleting %s: %v\n", id, err)
				failed = true
				continue
			}
			fmt.Printf("Note deleted: %s\n", id)
		}
		if failed {
			rt.Close()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
