package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/fortuna/hoopsdaily/internal/api/rest"
	"github.com/fortuna/hoopsdaily/internal/api/websocket"
	"github.com/fortuna/hoopsdaily/internal/backfill"
	"github.com/fortuna/hoopsdaily/internal/scheduler"
)

const redisStartupAttempts = 30

func newServeCmd(opts *rootOptions) *cobra.Command {
	var noSchedule bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API, WebSocket feed, and daily scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			d, err := openDeps(ctx, cfg, redisStartupAttempts)
			if err != nil {
				return err
			}
			defer d.Close()

			wsServer := websocket.NewServer()
			svc := backfill.NewService(d.runner(wsServer), nil)
			svc.Start()
			log.Println("✓ Backfill service started")

			var sched *scheduler.Orchestrator
			if !noSchedule {
				sched, err = scheduler.NewOrchestrator(svc, &scheduler.Config{Schedule: cfg.Schedule, Location: loc})
				if err != nil {
					return err
				}
				sched.Start()
			}

			handler := rest.NewHandler(d.docs, d.ledger, cmd.Root().Version)
			if d.db != nil {
				handler.AddHealthCheck("postgres", d.db)
			}
			if d.redis != nil {
				handler.AddHealthCheck("redis", d.redis)
			}
			restServer := rest.NewServer(cfg.RESTPort, handler, svc)

			errCh := make(chan error, 2)
			go func() {
				if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			go func() {
				if err := wsServer.Start(cfg.WSPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			log.Printf("✓ hoopsdaily %s started", cmd.Root().Version)
			log.Printf("  REST API: http://0.0.0.0:%s", cfg.RESTPort)
			log.Printf("  WebSocket: ws://0.0.0.0:%s/ws/blurbs", cfg.WSPort)

			var serveErr error
			select {
			case <-ctx.Done():
			case serveErr = <-errCh:
				log.Printf("❌ server error: %v", serveErr)
			}

			log.Println("Shutting down gracefully...")
			if sched != nil {
				sched.Stop()
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := restServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("REST API server shutdown error: %v", err)
			}
			if err := svc.Shutdown(shutdownCtx); err != nil {
				log.Printf("Backfill service shutdown error: %v", err)
			}
			if err := wsServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("WebSocket server shutdown error: %v", err)
			}

			log.Println("hoopsdaily stopped")
			return serveErr
		},
	}

	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "serve without the daily cron scrape")
	return cmd
}
