package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jjenkins/regwatch/internal/handlers"
	"github.com/jjenkins/regwatch/internal/logger"
)

var port string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the regwatch web server",
	Long: `Start the web server that runs comparisons on demand, shows saved report
history when DATABASE_URL is set, and exposes Prometheus metrics on /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to run the server on (default from config or PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if port == "" {
		port = cfg.Server.Port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{
		persist:  cfg.Database.URL != "",
		registry: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	app := newServer(a)

	go func() {
		<-ctx.Done()
		appLogger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Error("Server shutdown failed", logger.Error(err))
		}
	}()

	appLogger.Info("Starting server", logger.String("port", port))
	return app.Listen(":" + port)
}

// newServer registers routes; history routes degrade to an explanatory page without a database
func newServer(a *app) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "regwatch",
		DisableStartupMessage: true,
	})

	app.Use(fiberlogger.New())

	defaults := handlers.Defaults{Agency: cfg.Report.Agency, Days: cfg.Report.Days}

	var (
		reports handlers.ReportReader
		metrics handlers.MetricsReader
	)
	if a.reports != nil {
		reports = a.reports
		metrics = a.metrics
	}

	app.Get("/", handlers.HomeHandler(a.reporter, reports, metrics, defaults, appLogger))

	// Comparison routes
	app.Get("/compare", handlers.CompareHandler(a.reporter, defaults, appLogger))
	app.Get("/api/compare", handlers.CompareAPIHandler(a.reporter, defaults, appLogger))

	app.Get("/agencies", handlers.AgenciesHandler(a.reporter))

	// History routes
	app.Get("/history", handlers.HistoryHandler(reports, appLogger))
	app.Get("/history/:id", handlers.ReportDetailHandler(reports, appLogger))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}
