package handlers

import (
	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jjenkins/recnotify/internal/model"
	"github.com/jjenkins/recnotify/internal/store"
	"github.com/jjenkins/recnotify/internal/templates"
)

func SubjectsHandler(st store.Store, keys Keys) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subjects := model.NewSubjectRegistry()
		if _, err := st.Load(c.UserContext(), keys.Subjects, subjects); err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading subjects")
		}

		page := templates.Subjects(subjects)
		handler := adaptor.HTTPHandler(templ.Handler(page))

		return handler(c)
	}
}
