package cmd

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/config"
	"github.com/jjenkins/recnotify/internal/handlers"
	"github.com/jjenkins/recnotify/internal/service"
	"github.com/jjenkins/recnotify/internal/store"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inspection web server",
	Long: `Start a read-only web server showing the last notify run, the subject
registry and the contact directory, with Prometheus metrics on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log := bootstrap()
		defer log.Sync()

		// Use PORT from the configuration unless the flag was given
		if !cmd.Flags().Changed("port") && cfg.Port != 0 {
			port = cfg.Port
		}

		ctx, cancel := signalContext(log)
		defer cancel()

		st, err := store.Open(ctx, cfg.Cache, log)
		if err != nil {
			log.Fatal("Failed to open cache store", zap.Error(err))
		}
		defer st.Close()

		app := newServer(cfg, st, service.NewMetrics(), log)

		go func() {
			<-ctx.Done()
			_ = app.Shutdown()
		}()

		log.Info("Starting server", zap.Int("port", port))
		if err := app.Listen(":" + strconv.Itoa(port)); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to run the server on")
}

func newServer(cfg *config.Config, st store.Store, metrics *service.Metrics, log *zap.Logger) *fiber.App {
	keys := handlers.Keys{
		Subjects:      cfg.Cache.SubjectsKey,
		Contacts:      cfg.Cache.ContactsKey,
		Notifications: cfg.Cache.NotificationsKey,
	}
	log = log.Named("http")

	app := fiber.New(fiber.Config{
		AppName:               "Recording notifier",
		DisableStartupMessage: cfg.Env == config.EnvProduction,
	})

	app.Use(logger.New())

	// Routes
	app.Get("/", handlers.HomeHandler(st, keys, log))
	app.Get("/subjects", handlers.SubjectsHandler(st, keys))
	app.Get("/contacts", handlers.ContactsHandler(st, keys))

	// Machine-readable routes
	app.Get("/api/notifications", handlers.NotificationsHandler(st, keys))
	app.Get("/metrics", handlers.MetricsHandler(metrics, st, keys, log))

	return app
}
