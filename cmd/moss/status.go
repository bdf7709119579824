package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/moss/pkg/core"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity, pending changes and the last sync time",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		rt := openRuntime(ctx)
		defer rt.Close()

		rt.AwaitConnectivity(ctx, connectivityWait)
		st := rt.Service.Status()
		if statusJSON {
			printJSON(st)
			return
		}

		var conn string
		switch st.Connectivity {
		case core.ConnectivityOnline:
			conn = onlineStyle.Render("online")
		case core.ConnectivityOffline:
			conn = offlineStyle.Render("offline")
		default:
			conn = mutedStyle.Render("unknown")
		}

		last := mutedStyle.Render("never")
		if st.LastSyncedAt != nil {
			last = formatTime(*st.LastSyncedAt)
		}

		pending := fmt.Sprintf("%d", st.Pending)
		if st.Pending > 0 {
			pending = pendingStyle.Render(pending)
		}

		fmt.Printf("%s  %s\n", titleStyle.Render("Network:    "), conn)
		fmt.Printf("%s  %d (%d unsynced)\n", titleStyle.Render("Notes:      "), st.Notes, st.Unsynced)
		fmt.Printf("%s  %s\n", titleStyle.Render("Pending:    "), pending)
		fmt.Printf("%s  %s\n", titleStyle.Render("Last synced:"), last)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
}
