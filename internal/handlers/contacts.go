package handlers

import (
	"strings"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jjenkins/recnotify/internal/model"
	"github.com/jjenkins/recnotify/internal/service"
	"github.com/jjenkins/recnotify/internal/store"
	"github.com/jjenkins/recnotify/internal/templates"
)

func ContactsHandler(st store.Store, keys Keys) fiber.Handler {
	return func(c *fiber.Ctx) error {
		directory, err := service.LoadContactDirectory(c.UserContext(), st, keys.Contacts)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading contacts")
		}

		query := strings.TrimSpace(c.Query("q"))
		contacts := filterContacts(directory, query)

		// Check if this is an HTMX request for just the table body
		if c.Get("HX-Request") == "true" {
			page := templates.ContactsTableBody(contacts)
			handler := adaptor.HTTPHandler(templ.Handler(page))
			return handler(c)
		}

		page := templates.Contacts(contacts, query)
		handler := adaptor.HTTPHandler(templ.Handler(page))

		return handler(c)
	}
}

// filterContacts keeps directory order and matches owner or email case-insensitively
func filterContacts(directory *model.ContactDirectory, query string) []model.ContactEntry {
	needle := strings.ToLower(query)
	contacts := make([]model.ContactEntry, 0, directory.Len())
	for owner, email := range directory.All() {
		if needle != "" &&
			!strings.Contains(strings.ToLower(owner), needle) &&
			!strings.Contains(strings.ToLower(email), needle) {
			continue
		}
		contacts = append(contacts, model.ContactEntry{OwnerName: owner, Email: email})
	}
	return contacts
}
