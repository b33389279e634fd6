package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adammck/rangecache/pkg/httprange"
	"github.com/adammck/rangecache/pkg/metrics"
	"github.com/adammck/rangecache/pkg/rangecache"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve objects from S3 over HTTP, through the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, g)
		},
	}
}

func runServe(ctx context.Context, g *globals) error {
	cfg := g.cfg
	m := metrics.New(prometheus.DefaultRegisterer)

	s, err := newStack(ctx, cfg, rangecache.WithMetrics(m))
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	if err := s.requireSource(); err != nil {
		return err
	}

	// whatever was on disk might be more than the current max size allows.
	if err := s.cache.EnsureCleared(ctx); err != nil {
		return err
	}

	h := httprange.NewHandler(s.sizer, s.loader, logrus.StandardLogger())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Mount("/", h.Routes())

	mr := chi.NewRouter()
	mr.Handle("/metrics", promhttp.Handler())

	servers := []*http.Server{
		{Addr: cfg.Listen, Handler: r},
		{Addr: cfg.MetricsListen, Handler: mr},
	}

	grp, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		grp.Go(func() error {
			logrus.WithField("addr", srv.Addr).Info("listening")
			err := srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}

	grp.Go(func() error {
		<-ctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		for _, srv := range servers {
			if err := srv.Shutdown(sctx); err != nil {
				logrus.WithError(err).WithField("addr", srv.Addr).Warn("shutdown failed")
			}
		}
		return nil
	})

	return grp.Wait()
}
