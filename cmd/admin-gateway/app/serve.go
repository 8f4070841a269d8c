package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bizportal/admin-gateway/internal/api"
	"github.com/bizportal/admin-gateway/internal/config"
	"github.com/bizportal/admin-gateway/internal/identity"
	"github.com/bizportal/admin-gateway/internal/service"
	"github.com/bizportal/admin-gateway/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin gateway server",
	Long: `Start the admin gateway server.

The server requires a configuration file (--config) that specifies:
- The Supabase project URL and API keys
- The designated owner email
- All other operational settings`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time
	serverRequestTimeout   = 10 * time.Second // Gate requests should respond quickly
	serverReadTimeout      = 10 * time.Second // Enough for headers and small requests
	serverWriteTimeout     = 15 * time.Second // Must be > serverRequestTimeout to let middleware handle timeout
	serverIdleTimeout      = 60 * time.Second // Keep connections alive for reuse
)

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides config)")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		slog.Error("Failed to bind config flag", "error", err)
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	configPath := viper.GetString("config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	address := viper.GetString("address")
	if address == "" {
		address = cfg.GetAddress()
	}

	slog.Info("Starting admin gateway",
		"address", address,
		"supabase_url", cfg.Supabase.URL,
		"metrics", cfg.MetricsEnabled())

	serviceRoleKey, err := cfg.Supabase.GetServiceRoleKey()
	if err != nil {
		return err
	}

	store, err := identity.NewSupabaseStore(identity.SupabaseConfig{
		ProjectURL:     cfg.Supabase.URL,
		AnonKey:        cfg.Supabase.AnonKey,
		ServiceRoleKey: serviceRoleKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create identity store: %w", err)
	}

	svc, err := service.NewUserAdminService(store, cfg.Owner.Email)
	if err != nil {
		return fmt.Errorf("failed to create user admin service: %w", err)
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(serverRequestTimeout),
		api.CORSMiddleware,
		api.LoggingMiddleware,
	}

	opts := []api.ServerOption{}
	if cfg.MetricsEnabled() {
		provider, err := telemetry.NewPrometheusMeterProvider()
		if err != nil {
			return fmt.Errorf("failed to create meter provider: %w", err)
		}
		metricsMw, err := telemetry.MetricsMiddleware(provider)
		if err != nil {
			return fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		middlewares = append(middlewares, metricsMw)
		opts = append(opts, api.WithMetricsHandler(promhttp.Handler()))
	}
	opts = append(opts, api.WithMiddlewares(middlewares...))

	router := api.NewServer(svc, opts...)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		slog.Info("Server listening", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	slog.Info("Server shutdown complete")
	return nil
}
