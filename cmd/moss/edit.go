package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	editTitle   string
	editContent string
)

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Update the title and/or content of a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		rt := openRuntime(ctx)
		defer rt.Close()

		current, err := rt.Service.Note(args[0])
		if err != nil {
			fatal("Failed to read note", err)
		}
		title, content := current.Title, current.Content
		if cmd.Flags().Changed("title") {
			title = editTitle
		}
		if cmd.Flags().Changed("content") {
			content = editContent
		}

		if _, err := rt.Service.UpdateNote(ctx, current.ID, title, content); err != nil {
			fatal("Failed to update note", err)
		}
		fmt.Printf("Note updated: %s\n", current.ID)
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "New title")
	editCmd.Flags().StringVarP(&editContent, "content", "c", "", "New content")
}
