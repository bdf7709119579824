package main

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/aretw0/moss/pkg/core"
)

var (
	listJSON     bool
	listMatch    string
	listUnsynced bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, oldest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if listMatch != "" && !doublestar.ValidatePattern(listMatch) {
			fatal("Invalid pattern", doublestar.ErrBadPattern)
		}

		rt := openRuntime(cmd.Context())
		defer rt.Close()

		var filtered []core.Note
		for _, note := range rt.Service.Notes() {
			if listUnsynced && note.Synced {
				continue
			}
			if listMatch != "" {
				if ok, _ := doublestar.Match(listMatch, note.Title); !ok {
					continue
				}
			}
			filtered = append(filtered, note)
		}

		if listJSON {
			if filtered == nil {
				filtered = []core.Note{}
			}
			printJSON(filtered)
			return
		}

		for _, note := range filtered {
			marker := " "
			if !note.Synced {
				marker = pendingStyle.Render("*")
			}
			fmt.Printf("%s %s  %s\n", marker, mutedStyle.Render(note.ID), note.Title)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&listMatch, "match", "", "Only titles matching a glob pattern (e.g. 'todo*')")
	listCmd.Flags().BoolVar(&listUnsynced, "unsynced", false, "Only notes with unsynced changes")
}
