package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/moss"
	"github.com/aretw0/moss/pkg/adapters/httpapi"
	mosslifecycle "github.com/aretw0/moss/pkg/adapters/lifecycle"
	"github.com/aretw0/moss/pkg/core"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	Long: `Serve runs the notes core as a long-lived process behind a local HTTP
API. Pending changes are synced automatically whenever the network comes
back. Serve owns the data directory while it runs: other moss commands on
the same directory are refused, so drive it through the API. With --watch,
record files rewritten by other tools are picked up.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		extra := []moss.Option{moss.WithManualSync(false)}
		if serveWatch {
			extra = append(extra, moss.WithWatch(true))
		}
		rt := openRuntime(ctx, extra...)
		defer rt.Close()

		source := mosslifecycle.NewSource(rt.Service,
			core.EventConnectivity, core.EventSyncOK, core.EventSyncFail, core.EventStorageWarning)
		if err := source.Start(ctx); err != nil {
			fatal("Failed to start event log", err)
		}
		go func() {
			for e := range source.Events() {
				logger.Info("event", "event", e.String())
			}
		}()

		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           httpapi.NewRouter(rt.Service, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()
		fmt.Printf("moss listening on http://%s (data: %s)\n", serveAddr, rt.Dir)

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				fatal("Server failed", err)
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown failed", "error", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", cfg.Addr, "Listen address")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", cfg.Watch, "Reload when other tools rewrite the record files (fs store)")
}
