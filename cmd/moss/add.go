package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addContent string

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a note",
	Long:  `Create a note locally and queue its creation for the next sync.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		rt := openRuntime(ctx)
		defer rt.Close()

		note := rt.Service.AddNote(ctx, args[0], addContent)
		fmt.Printf("Note created: %s\n", note.ID)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addContent, "content", "c", "", "Note content")
}
