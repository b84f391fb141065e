package handlers

import (
	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/model"
	"github.com/jjenkins/recnotify/internal/service"
	"github.com/jjenkins/recnotify/internal/store"
	"github.com/jjenkins/recnotify/internal/templates"
)

// Keys names the cache entries the pages read
type Keys struct {
	Subjects      string
	Contacts      string
	Notifications string
}

func HomeHandler(st store.Store, keys Keys, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		data := templates.HomeData{}

		// counts are best effort; the page still renders without them
		subjects := model.NewSubjectRegistry()
		if _, err := st.Load(ctx, keys.Subjects, subjects); err != nil {
			logger.Warn("Error loading subject registry", zap.Error(err))
		} else {
			data.Subjects = subjects.Len()
		}

		contacts, err := service.LoadContactDirectory(ctx, st, keys.Contacts)
		if err != nil {
			logger.Warn("Error loading contact directory", zap.Error(err))
		} else {
			data.Contacts = contacts.Len()
		}

		run, err := service.LoadLastRun(ctx, st, keys.Notifications)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading last run")
		}
		data.Run = run

		page := templates.Home(data)
		handler := adaptor.HTTPHandler(templ.Handler(page))

		return handler(c)
	}
}
