package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/model"
	"github.com/jjenkins/recnotify/internal/service"
	"github.com/jjenkins/recnotify/internal/store"
)

// NotificationsHandler returns the payload of the last run in the notifier's wire format
func NotificationsHandler(st store.Store, keys Keys) fiber.Handler {
	return func(c *fiber.Ctx) error {
		run, err := service.LoadLastRun(c.UserContext(), st, keys.Notifications)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load last run"})
		}
		if run == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no run recorded"})
		}

		payload := run.Payload
		if payload == nil {
			payload = []model.OwnerRecord{}
		}
		data, err := service.EncodeJSON(payload, false)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to encode payload"})
		}
		c.Set("X-Run-ID", run.RunID)
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		return c.Send(data)
	}
}

// MetricsHandler publishes the last recorded run as gauges and serves the registry
func MetricsHandler(metrics *service.Metrics, st store.Store, keys Keys, logger *zap.Logger) fiber.Handler {
	promHandler := adaptor.HTTPHandler(metrics.Handler())
	return func(c *fiber.Ctx) error {
		run, err := service.LoadLastRun(c.UserContext(), st, keys.Notifications)
		if err != nil {
			logger.Warn("Error loading last run for metrics", zap.Error(err))
		} else {
			metrics.SetLastRun(run)
		}
		return promHandler(c)
	}
}
