package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/primeslot/primeslot/pkg/api"
	"github.com/primeslot/primeslot/pkg/auth"
	"github.com/primeslot/primeslot/pkg/availability"
	"github.com/primeslot/primeslot/pkg/catalog"
	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/log"
	"github.com/primeslot/primeslot/pkg/meeting"
	"github.com/primeslot/primeslot/pkg/metrics"
	"github.com/primeslot/primeslot/pkg/reconciler"
	"github.com/primeslot/primeslot/pkg/roster"
)

const (
	shutdownTimeout        = 10 * time.Second
	sessionCleanupInterval = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the primeslot HTTP API server together with the metrics
collector, the admin session janitor and the mirror reconciler.

Examples:
  # Serve with defaults and PRIMESLOT_* environment variables
  primeslot serve

  # Serve from a config file on a different port
  primeslot serve -c primeslot.yaml --addr :9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides config)")
	serveCmd.Flags().Bool("secure-cookies", false, "Mark the admin session cookie Secure")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	secure, _ := cmd.Flags().GetBool("secure-cookies")

	logger := log.WithComponent("serve")
	metrics.SetVersion(Version)
	metrics.SetCriticalComponents("storage", "api")

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	metrics.RegisterComponent("storage", true, store.Path())

	broker := events.NewBroker()
	broker.Start()
	go metrics.WatchEvents(broker.Subscribe())

	sessions := auth.NewSessionManager(store, cfg.Auth.SessionTTL)
	sessions.Start(sessionCleanupInterval)

	deps := api.Deps{
		Store:   store,
		Catalog: catalog.NewService(store, broker),
		Roster:  roster.NewService(store, broker),
		Meetings: meeting.NewService(store, broker, meeting.Config{
			RequireExistingMembership: cfg.Meetings.RequireExistingMembership,
			RejectOverlaps:            cfg.Meetings.RejectOverlaps,
			DefaultDurationMin:        cfg.Meetings.DefaultDurationMin,
		}),
		Availability: availability.NewEngine(store),
		Admins:       auth.NewAdmins(store),
		Sessions:     sessions,
		Resolver: auth.NewResolver(auth.ResolverConfig{
			Secret:       cfg.Auth.JWTSecret,
			MemberCookie: cfg.Auth.MemberCookie,
			AdminCookie:  cfg.Auth.AdminCookie,
			Disabled:     cfg.Auth.Disabled,
			TestIdentity: cfg.Auth.TestIdentity,
		}, sessions),
	}
	if cfg.Auth.Disabled {
		logger.Warn().Str("identity", cfg.Auth.TestIdentity).Msg("authentication disabled, all requests act as admin")
	}

	collector := metrics.NewCollector(store)
	collector.Start()

	var recon *reconciler.Reconciler
	if cfg.Reconciler.Interval > 0 {
		recon = reconciler.NewReconciler(store, broker, cfg.Reconciler.Interval)
		recon.Start()
		metrics.RegisterComponent("reconciler", true, cfg.Reconciler.Interval.String())
	}

	server := api.NewServer(api.Config{
		RequestTimeout:       cfg.Server.RequestTimeout,
		CORSOrigin:           cfg.Server.CORSOrigin,
		ExposeInternalErrors: cfg.Server.ExposeInternalErrors,
		LoginRatePerSecond:   cfg.Server.LoginRatePerSecond,
		LoginBurst:           cfg.Server.LoginBurst,
		SecureCookies:        secure,
		TrustProxyHeaders:    cfg.Server.TrustProxyHeaders,
	}, deps)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Server.Addr); err != nil {
			errCh <- err
		}
	}()

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("data_dir", cfg.Storage.DataDir).
		Str("version", Version).
		Msg("primeslot is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("API server stopped")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("API shutdown incomplete")
	}
	if recon != nil {
		recon.Stop()
	}
	collector.Stop()
	sessions.Stop()
	broker.Stop()

	logger.Info().Msg("shutdown complete")
	return runErr
}
