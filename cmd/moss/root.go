package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aretw0/moss"
)

var (
	verbose bool
	cfg     = loadConfig()
	logger  = slog.Default()
)

// connectivityWait bounds how long a command waits for the first
// connectivity report before giving up and treating the state as unknown.
const connectivityWait = 3 * time.Second

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "moss",
	Short: "An offline-first notes store that syncs when the network comes back",
	Long: `moss keeps your notes on this machine and records every change in a
queue. When a connection is available the queue is sent to the remote in
one batch.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Dir == "" && cfg.Store != "memory" {
			dir, err := dataDir()
			if err != nil {
				return err
			}
			cfg.Dir = dir
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level := slog.LevelInfo
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return err
		}
		if verbose {
			level = slog.LevelDebug
		}

		var out io.Writer = os.Stderr
		if cfg.LogFile != "" {
			out = &lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    10, // MB
				MaxBackups: 3,
				MaxAge:     28, // days
			}
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger = slog.New(slog.NewTextHandler(out, opts))
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func loadConfig() moss.Config {
	c, err := moss.LoadConfig()
	if err != nil {
		fatal("Invalid environment", err)
	}
	return c
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&cfg.Dir, "dir", cfg.Dir, "Data directory (default: nearest .moss directory, else ./.moss)")
	flags.StringVar(&cfg.Store, "store", cfg.Store, "Storage adapter: fs, sqlite or memory")
	flags.StringVar(&cfg.Codec, "codec", cfg.Codec, "Record encoding for the fs store: json or yaml")
	flags.StringVar(&cfg.Remote, "remote", cfg.Remote, "Remote adapter: stub or couch")
	flags.StringVar(&cfg.CouchURL, "couch-url", cfg.CouchURL, "CouchDB URL for the couch remote")
	flags.StringVar(&cfg.CouchDB, "couch-db", cfg.CouchDB, "CouchDB database name")
	flags.StringVar(&cfg.Online, "online", cfg.Online, "Connectivity: auto (probe the network), true or false")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Write logs to a rotating file instead of stderr")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
}

// dataDir finds the data directory when --dir is not given.
func dataDir() (string, error) {
	if cfg.Dir != "" {
		return cfg.Dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	if found, err := moss.FindDataDir(wd); err == nil {
		return found, nil
	}
	return filepath.Join(wd, ".moss"), nil
}

// openRuntime wires a runtime for one command. One-shot commands sync
// explicitly and do not watch; extra options can turn both back on.
func openRuntime(ctx context.Context, extra ...moss.Option) *moss.Runtime {
	opts := append(cfg.Options(), moss.WithLogger(logger), moss.WithManualSync(true), moss.WithWatch(false))
	opts = append(opts, extra...)
	rt, err := moss.New(ctx, cfg.Dir, opts...)
	if errors.Is(err, moss.ErrDirInUse) {
		fatal("Failed to open moss (is `moss serve` running on this directory? use its HTTP API)", err)
	}
	if err != nil {
		fatal("Failed to open moss", err)
	}
	logger.Debug("runtime opened", "dir", rt.Dir, "store", cfg.Store, "remote", cfg.Remote)
	return rt
}
