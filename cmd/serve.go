package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openkiosk/priceboard/internal/api"
	"github.com/openkiosk/priceboard/internal/auth"
	"github.com/openkiosk/priceboard/internal/fetcher"
	"github.com/openkiosk/priceboard/internal/pipeline"
	"github.com/openkiosk/priceboard/internal/scheduler"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the daily scrape schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent: cfg.Scrape.UserAgent,
			Timeout:   time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
		})
		pipe := pipeline.New(f, st, cfg.Scrape)

		a, err := auth.New(cfg.Auth.SigningSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
		if err != nil {
			return err
		}

		sched, err := scheduler.New(pipe, cfg.Schedule)
		if err != nil {
			return err
		}

		srv := api.New(st, pipe, a)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.ListenAndServe(ctx, port)
		})
		g.Go(func() error {
			err := sched.Start(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
