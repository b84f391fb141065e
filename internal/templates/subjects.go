package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/jjenkins/recnotify/internal/model"
)

// Subjects renders the subject registry in registry order
func Subjects(subjects *model.SubjectRegistry) templ.Component {
	return Layout("Subjects", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if subjects.Len() == 0 {
			_, err := io.WriteString(w, `<p>The subject registry is empty.</p>`)
			return err
		}
		if err := writeAll(w, "<table>\n<thead><tr><th>Abbreviation</th><th>ID</th><th>Recording</th><th>Name</th></tr></thead>\n<tbody>\n"); err != nil {
			return err
		}
		for abbr, s := range subjects.All() {
			recording := "no"
			if s.RecordingAllowed {
				recording = "yes"
			}
			if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
				esc(abbr), esc(s.ID), recording, esc(s.FullName)); err != nil {
				return err
			}
		}
		return writeAll(w, "</tbody>\n</table>")
	}))
}
