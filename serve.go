package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Zachkp/researcher-profile/internal/config"
	"github.com/Zachkp/researcher-profile/internal/contact"
	"github.com/Zachkp/researcher-profile/internal/logging"
	"github.com/Zachkp/researcher-profile/internal/metrics"
	"github.com/Zachkp/researcher-profile/internal/profile"
	"github.com/Zachkp/researcher-profile/internal/session"
	"github.com/Zachkp/researcher-profile/internal/visits"
	"github.com/Zachkp/researcher-profile/internal/web"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
	cleanupInterval = 24 * time.Hour
)

func newServeCmd(envFile *string) *cobra.Command {
	var profilePath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the profile site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			if profilePath != "" {
				cfg.ProfilePath = profilePath
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&profilePath, "profile", "", "profile YAML file (overrides PROFILE_PATH)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if mode := os.Getenv(gin.EnvGinMode); mode != "" {
		gin.SetMode(mode)
	}

	p, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store, err := openStore(cfg, m)
	if err != nil {
		return err
	}
	defer store.Close()

	var tracker *visits.Tracker
	if cfg.Visits.DBPath != "" {
		tracker, err = visits.Open(cfg.Visits.DBPath, logger, visits.WithCounter(m.VisitsRecorded))
		if err != nil {
			return err
		}
		defer tracker.Close()
	} else {
		logger.Info("visitor tracking disabled")
	}

	if !cfg.SMTP.Configured() {
		logger.Warn("SMTP credentials not set, contact form submissions will fail")
	}
	mailer := contact.NewSMTPMailer(cfg.SMTP, p.Email, logger)

	separateMetrics := cfg.MetricsPort != "" && cfg.MetricsPort != "0" && cfg.MetricsPort != cfg.Port
	site := web.New(web.Deps{
		Profile: p,
		Store:   store,
		Tracker: tracker,
		Mailer:  mailer,
		Metrics: m,
		Logger:  logger,
	}, web.Options{
		CookieName:     cfg.Session.Cookie,
		SessionTTL:     cfg.Session.TTL,
		SecureCookies:  cfg.Session.Secure,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		VisitRetention: cfg.Visits.Retention,
		ServeMetrics:   !separateMetrics,
	})

	servers := []*http.Server{{
		Addr:              ":" + cfg.Port,
		Handler:           site.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if separateMetrics {
		servers = append(servers, &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	if tracker != nil {
		g.Go(func() error {
			purgeVisits(gctx, tracker, cfg.Visits.Retention, logger)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs error
		for _, srv := range servers {
			errs = errors.Join(errs, srv.Shutdown(shutdownCtx))
		}
		return errs
	})

	err = g.Wait()
	if tracker != nil {
		tracker.Wait()
	}
	return err
}

func openStore(cfg *config.Config, m *metrics.Metrics) (session.Store, error) {
	if cfg.Session.Backend == config.BackendRedis {
		store, err := session.NewRedisStore(cfg.Redis, cfg.Session.TTL)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return session.NewMemoryStore(cfg.Session.TTL, sweepInterval, session.WithGauge(m.ActiveSessions)), nil
}

// purgeVisits deletes visits older than retention at startup and then once a
// day until ctx is done.
func purgeVisits(ctx context.Context, t *visits.Tracker, retention time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		if _, err := t.Cleanup(ctx, retention); err != nil && ctx.Err() == nil {
			logger.Warn("visit cleanup failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
