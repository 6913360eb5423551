package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/waypoint/internal/core/api"
	"github.com/solatis/waypoint/internal/core/auth"
	"github.com/solatis/waypoint/internal/core/config"
	"github.com/solatis/waypoint/internal/core/server"
)

// drainTimeout bounds graceful shutdown of both servers.
const drainTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC navigation service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50052, "gRPC server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	st, err := buildStack(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.sessionStore(ctx)
	if err != nil {
		return err
	}

	var authenticator *auth.Authenticator
	if cfg.Server.RequireAuth {
		secrets, err := config.HMACSecrets()
		if err != nil {
			return fmt.Errorf("failed to load HMAC secrets: %w", err)
		}
		if len(secrets) == 0 {
			return fmt.Errorf("no HMAC secrets configured (set WP_HMAC_SECRET environment variable)")
		}
		authenticator = auth.NewAuthenticator(secrets, st.queries, logger)
	}

	service, err := api.NewService(api.ServiceConfig{
		Navigator: st.navigator,
		Engine:    st.engine,
		Compiler:  st.compiler,
		Pages:     st.registry,
		Sessions:  sessions,
		Loader:    st.loader,
		Mapper:    st.mapper,
		ErrorPage: cfg.Navigation.ErrorPage,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg.Server, service, authenticator, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Addr != "" {
		metricsServer = server.NewMetricsServer(cfg.Metrics.Addr, st.metrics, logger)
	}

	logger.InfoContext(ctx, "starting waypoint", "version", Version, "addr", cfg.Server.Address(),
		"rule_source", cfg.Navigation.RuleSource, "session_backend", cfg.Session.Backend)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcServer.Start(gctx)
	})
	if metricsServer != nil {
		g.Go(func() error {
			return metricsServer.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully")

		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		var errs []error
		if metricsServer != nil {
			errs = append(errs, metricsServer.Shutdown(drainCtx))
		}
		errs = append(errs, grpcServer.Shutdown(drainCtx))
		return errors.Join(errs...)
	})

	return g.Wait()
}
