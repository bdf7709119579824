package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var queueJSON bool

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the mutations waiting to be synced",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		rt := openRuntime(cmd.Context())
		defer rt.Close()

		entries := rt.Service.Pending()
		if queueJSON {
			printJSON(entries)
			return
		}

		if len(entries) == 0 {
			fmt.Println(mutedStyle.Render("Nothing to sync."))
			return
		}
		for _, e := range entries {
			fmt.Printf("%4d  %-6s  %s  %s\n", e.Seq, e.Action, mutedStyle.Render(e.Note.ID), e.Note.Title)
		}
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.Flags().BoolVar(&queueJSON, "json", false, "Output in JSON format")
}
