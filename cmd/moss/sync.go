package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/moss/pkg/core"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Send pending mutations to the remote",
	Long: `Send every pending mutation to the remote in one batch. On success the
notes that were sent are marked synced and the queue is cleared.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		rt := openRuntime(ctx)
		defer rt.Close()

		if !rt.AwaitConnectivity(ctx, connectivityWait) {
			logger.Warn("connectivity still unknown", "waited", connectivityWait)
		}

		if n := len(rt.Service.Pending()); n > 0 && rt.Service.IsOnline() {
			fmt.Printf("Syncing %d change(s)...\n", n)
		}
		res := rt.Service.Reconcile(ctx)

		switch res.Status {
		case core.SyncStatusSynced:
			fmt.Println(onlineStyle.Render(res.Message))
		case core.SyncStatusNothingToSync:
			fmt.Println(mutedStyle.Render(res.Message))
		case core.SyncStatusOffline:
			fmt.Fprintln(os.Stderr, offlineStyle.Render("You are offline.")+" Changes will sync when connection is restored.")
			rt.Close()
			os.Exit(1)
		default:
			fmt.Fprintf(os.Stderr, "Error: Sync failed: %s\n", res.Message)
			rt.Close()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
