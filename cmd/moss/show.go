package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print one note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rt := openRuntime(cmd.Context())
		defer rt.Close()

		note, err := rt.Service.Note(args[0])
		if err != nil {
			fatal("Failed to read note", err)
		}

		if showJSON {
			printJSON(note)
			return
		}

		state := "synced"
		if !note.Synced {
			state = pendingStyle.Render("unsynced")
		}
		fmt.Println(titleStyle.Render(note.Title))
		fmt.Println(mutedStyle.Render(fmt.Sprintf("%s · created %s · updated %s · %s",
			note.ID, formatTime(note.CreatedAt), formatTime(note.UpdatedAt), state)))
		if note.Content != "" {
			fmt.Println()
			fmt.Println(note.Content)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
}
