package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/jjenkins/recnotify/internal/model"
)

// Contacts renders the contact directory with a filter box that swaps the table body through htmx
func Contacts(contacts []model.ContactEntry, query string) templ.Component {
	return Layout("Contacts", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<input type="search" name="q" value="%s" placeholder="Filter owners"
  hx-get="/contacts" hx-trigger="keyup changed delay:300ms" hx-target="#contacts-body">
<table>
<thead><tr><th>Owner</th><th>Email</th></tr></thead>
<tbody id="contacts-body">
`, esc(query)); err != nil {
			return err
		}
		if err := ContactsTableBody(contacts).Render(ctx, w); err != nil {
			return err
		}
		return writeAll(w, "</tbody>\n</table>")
	}))
}

// ContactsTableBody renders only the rows of the contacts table
func ContactsTableBody(contacts []model.ContactEntry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(contacts) == 0 {
			_, err := io.WriteString(w, `<tr><td colspan="2">No contacts</td></tr>`+"\n")
			return err
		}
		for _, c := range contacts {
			email := esc(c.Email)
			if c.Email == "" {
				email = `<span class="missing">not found</span>`
			}
			if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td></tr>\n", esc(c.OwnerName), email); err != nil {
				return err
			}
		}
		return nil
	})
}
