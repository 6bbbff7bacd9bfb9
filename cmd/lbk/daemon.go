package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/Vadko/lbk-launcher/internal/remote"
)

func newDaemonCmd() *cobra.Command {
	var (
		logFile  string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Keep the local mirror continuously up to date",
		Long: `daemon runs an initial sync, subscribes to the catalog's realtime
channel for push updates, and re-syncs on a timer as a safety net for
events missed while disconnected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newDaemonLogger(logFile)

			a, err := openApp(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			o, err := a.orchestrator(logger, nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := o.Sync(ctx); err != nil {
				// The daemon keeps running on a failed initial sync; the
				// periodic re-sync will retry.
				logger.Printf("Initial sync failed: %v", err)
			}

			if realtimeURL := viper.GetString("realtime_url"); realtimeURL != "" {
				sub, err := remote.NewSubscriber(&remote.SubscriberConfig{
					URL:    realtimeURL,
					Logger: logger,
				}, o)
				if err != nil {
					return err
				}
				go func() {
					if err := sub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Printf("Realtime subscription ended: %v", err)
					}
				}()
			} else {
				logger.Printf("No realtime URL configured, relying on periodic sync only")
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			logger.Printf("Daemon running (periodic sync every %v)", interval)
			for {
				select {
				case <-ctx.Done():
					logger.Printf("Shutting down")
					return nil
				case <-ticker.C:
					if err := o.Sync(ctx); err != nil {
						logger.Printf("Periodic sync failed: %v", err)
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "log to a rotating file instead of stderr (default: XDG state dir)")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Minute, "periodic re-sync interval")

	return cmd
}

// newDaemonLogger logs to a rotating file under the XDG state directory, or
// to the given path. An empty path with no resolvable state dir falls back
// to stderr.
func newDaemonLogger(path string) *log.Logger {
	if path == "" {
		path = filepath.Join(xdg.StateHome, "lbk", "daemon.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot create log directory: %v\n", err)
		return log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	var w io.Writer = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
		Compress:   true,
	}
	return log.New(w, "[daemon] ", log.LstdFlags)
}

func init() {
	rootCmd.AddCommand(newDaemonCmd())
}
