package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tekkin/internal/checkout"
	"tekkin/internal/config"
	"tekkin/internal/instagram"
	appLog "tekkin/internal/log"
	"tekkin/internal/metrics"
	"tekkin/internal/schedule"
	"tekkin/internal/spotlight"
	"tekkin/internal/store"
	"tekkin/internal/web"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the harvest scheduler",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loc, err := initConfig(config.PurposeServe)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			ig := instagram.NewClient(cfg.Instagram)
			var thumbs spotlight.ThumbnailResolver
			if cfg.Instagram.AccessToken != "" && cfg.Instagram.BusinessID != "" {
				thumbs = ig
			}

			news := newsRunner(cfg, st)
			deps := web.Deps{
				Spotlight:  spotlight.NewService(st, thumbs, artistHandles(cfg.Events.Artists), cfg.AssetsURL, loc),
				News:       st,
				NewsIngest: news,
				Instagram:  ig,
				Health:     st,
			}
			if cfg.CheckoutReady() {
				deps.Checkout = checkout.NewService(cfg.Stripe, cfg.SiteURL, nil)
			} else {
				appLog.Info("stripe checkout disabled", "reason", "missing STRIPE_SECRET_KEY, STRIPE_PRICE_ID or SITE_URL")
			}
			srv := web.NewServer(cfg, deps).HTTPServer()

			sched := schedule.New(loc)
			if err := sched.Add(metrics.JobNews, cfg.Schedule.News, news); err != nil {
				return errors.Wrap(err, "invalid configuration")
			}
			if err := sched.Add(metrics.JobEvents, cfg.Schedule.Events, eventsRunner(cfg, st, loc)); err != nil {
				return errors.Wrap(err, "invalid configuration")
			}
			if err := sched.Add(metrics.JobCalendars, cfg.Schedule.Calendars, calendarsRunner(cfg, st, loc)); err != nil {
				return errors.Wrap(err, "invalid configuration")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				appLog.Info("http server listening", "listen", srv.Addr, "timezone", loc.String(), "version", VERSION)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "http server")
				}
				return nil
			})
			g.Go(func() error {
				sched.Start()
				<-gctx.Done()
				appLog.Info("shutting down")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				sched.Stop(shutdownCtx)
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}
