package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/copp1723/code-team-sub001/internal/otel"
)

func newWatchCmd() *cobra.Command {
	var interval time.Duration
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Periodically sync active task branches",
		Long: `Run the background sync loop: every interval each role with an
active task is rebased onto the project master branch. When a metrics address
is configured, Prometheus metrics are served at /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			if interval <= 0 {
				interval = app.Cfg.Watch.SyncInterval
			}
			if metricsAddr == "" {
				metricsAddr = app.Cfg.Watch.MetricsAddr
			}

			if metricsAddr != "" {
				handler, err := otel.Init(ctx, "crew")
				if err != nil {
					return err
				}
				mux := http.NewServeMux()
				mux.Handle("/metrics", handler)
				srv := &http.Server{Addr: metricsAddr, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						fmt.Fprintf(cmd.ErrOrStderr(), "metrics server: %v\n", err)
					}
				}()
				defer func() { _ = srv.Close() }()
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving metrics on %s/metrics\n", metricsAddr)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Watching; syncing active branches every %s\n", interval)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Watch stopped")
					return nil
				case <-ticker.C:
					app.Tracker.SyncActive(ctx)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Sync interval (default: from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address for the Prometheus /metrics endpoint")
	return cmd
}
