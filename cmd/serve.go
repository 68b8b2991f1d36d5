package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/kozaktomas/attendance-dashboard/internal/analytics"
	"github.com/kozaktomas/attendance-dashboard/internal/attendance"
	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/camera"
	"github.com/kozaktomas/attendance-dashboard/internal/config"
	"github.com/kozaktomas/attendance-dashboard/internal/database/mariadb"
	"github.com/kozaktomas/attendance-dashboard/internal/database/postgres"
	"github.com/kozaktomas/attendance-dashboard/internal/metrics"
	"github.com/kozaktomas/attendance-dashboard/internal/roster"
	"github.com/kozaktomas/attendance-dashboard/internal/web"
	"github.com/kozaktomas/attendance-dashboard/internal/web/middleware"
)

const sessionCleanupInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard web server",
	Long: `Start the Attendance Dashboard web server.
The server proxies camera streams and recognition results from the attendance
backend and serves the operator UI.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies")
	serveCmd.Flags().String("language", "en", "Locale for analytics number formatting (BCP 47 tag)")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	sessionSecret := mustGetString(cmd, "session-secret")

	if sessionSecret == "" {
		sessionSecret = os.Getenv("WEB_SESSION_SECRET")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, sessionSecret
}

// initSessionStore connects to PostgreSQL when DATABASE_URL is set. Without
// it sessions live in memory and are lost on restart.
func initSessionStore(ctx context.Context, cfg *config.Config) (middleware.SessionRepository, func()) {
	if cfg.Database.URL == "" {
		fmt.Println("Session persistence disabled (DATABASE_URL not set)")
		return nil, func() {}
	}

	fmt.Println("Connecting to PostgreSQL database...")
	pool, err := postgres.Initialize(ctx, &cfg.Database)
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
		fmt.Println("Sessions will be kept in memory")
		return nil, func() {}
	}

	repo := postgres.NewSessionRepository(pool)
	cleanupCtx, cancel := context.WithCancel(ctx)
	repo.StartCleanup(cleanupCtx, sessionCleanupInterval)
	fmt.Println("Session persistence enabled (PostgreSQL)")

	return repo, func() {
		cancel()
		pool.Close()
	}
}

// initAnalyticsSource reads logs straight from the backend's MariaDB when
// BACKEND_DATABASE_URL is set, otherwise through the REST API.
func initAnalyticsSource(cfg *config.Config, client *backend.Client) (analytics.LogSource, string, func()) {
	if cfg.Backend.DatabaseURL == "" {
		return analytics.BackendLogs{Client: client}, "backend", func() {}
	}

	pool, err := mariadb.NewPool(cfg.Backend.DatabaseURL)
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
		fmt.Println("Analytics will read logs through the backend API")
		return analytics.BackendLogs{Client: client}, "backend", func() {}
	}
	fmt.Println("Analytics reading logs from MariaDB")
	return pool, "mariadb", func() { pool.Close() }
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	port, host, sessionSecret := resolveServeHostPort(cmd)

	lang, err := language.Parse(mustGetString(cmd, "language"))
	if err != nil {
		return fmt.Errorf("invalid --language: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}
	client.SetMetrics(m)

	settings, err := openSettings(cfg)
	if err != nil {
		return err
	}
	defer settings.Close()
	if cfg.Settings.Path != "" {
		fmt.Printf("Dashboard settings stored in %s\n", cfg.Settings.Path)
	}

	sessionRepo, closeSessions := initSessionStore(ctx, cfg)
	defer closeSessions()

	logSource, analyticsSource, closeAnalytics := initAnalyticsSource(cfg, client)
	defer closeAnalytics()

	d := cfg.Dashboard
	loc := d.Location()

	selector := camera.NewSelector(client, d.Slots)
	selector.SetRecorder(settings)
	feed := camera.NewFeed(selector, client, camera.ChannelOptions{
		URL:        client.AIResultsURL,
		RetryDelay: d.ReconnectDelay,
		Metrics:    m,
		Reference:  camera.Reference{Width: float64(d.ReferenceWidth), Height: float64(d.ReferenceHeight)},
	})
	feed.Start(ctx)

	resolver := attendance.NewStartResolver(settings, d.LateAfter)
	poller := attendance.NewPoller(client, d.PollInterval, m)

	analyticsService := analytics.NewService(logSource, client, loc, d.AnalyticsCacheTTL)
	analyticsService.SetLanguage(lang)

	server := web.NewServer(cfg, &web.Services{
		Backend:         client,
		Feed:            feed,
		Selector:        selector,
		Settings:        settings,
		Roster:          roster.NewService(client, d.MinFaceImages, d.MaxFaceImages),
		Resolver:        resolver,
		View:            attendance.NewView(client, resolver, loc),
		Poller:          poller,
		Analytics:       analyticsService,
		Metrics:         m,
		AnalyticsSource: analyticsSource,
	}, port, host, sessionSecret, sessionRepo)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		// streams and event subscribers end first so Shutdown does not wait on them
		feed.Close()
		poller.Stop()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	if !cfg.Web.AuthEnabled() {
		fmt.Println("Warning: DASHBOARD_USERNAME/DASHBOARD_PASSWORD not set, the dashboard is open to anyone")
	}
	fmt.Printf("Attendance backend: %s\n", cfg.Backend.URL)
	fmt.Printf("Starting Attendance Dashboard on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
