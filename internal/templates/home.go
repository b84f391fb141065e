package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/jjenkins/recnotify/internal/model"
)

// HomeData is what the landing page shows
type HomeData struct {
	Run      *model.RunRecord
	Subjects int
	Contacts int
}

// Home renders the last run summary and its owners
func Home(data HomeData) templ.Component {
	return Layout("Last run", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := stat(w, "Subjects", strconv.Itoa(data.Subjects)); err != nil {
			return err
		}
		if err := stat(w, "Known contacts", strconv.Itoa(data.Contacts)); err != nil {
			return err
		}

		run := data.Run
		if run == nil {
			_, err := io.WriteString(w, `<p>No run has been recorded yet. Run <code>recnotify notify</code> first.</p>`)
			return err
		}

		for _, s := range []struct{ label, value string }{
			{"Year", strconv.Itoa(run.Year)},
			{"Owners", strconv.Itoa(run.Owners)},
			{"Pending recordings", strconv.Itoa(run.Recordings)},
			{"Unresolved contacts", strconv.Itoa(run.UnresolvedContacts)},
		} {
			if err := stat(w, s.label, s.value); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(w, "<p>Run <code>%s</code> finished %s. Dispatch: %s</p>\n",
			esc(run.RunID), esc(run.FinishedAt.Format(time.RFC3339)), esc(dispatchText(run))); err != nil {
			return err
		}

		if err := writeAll(w, "<table>\n<thead><tr><th>Owner</th><th>Contact</th><th>Recorded</th><th>Subject</th><th>Permission</th></tr></thead>\n<tbody>\n"); err != nil {
			return err
		}
		for _, owner := range run.Payload {
			contact := esc(owner.OwnerContact)
			if owner.OwnerContact == "" {
				contact = `<span class="missing">unknown</span>`
			}
			for i, rec := range owner.PendingRecordings {
				name, mail := "", ""
				if i == 0 {
					name, mail = esc(owner.OwnerName), contact
				}
				if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
					name, mail, esc(rec.RecordedAt), esc(rec.SubjectFullName), esc(rec.CurrentPermission)); err != nil {
					return err
				}
			}
		}
		return writeAll(w, "</tbody>\n</table>")
	}))
}

func dispatchText(run *model.RunRecord) string {
	switch {
	case run.DryRun:
		return "skipped (dry run)"
	case run.DispatchStatus == 0:
		return "failed (no response)"
	default:
		return fmt.Sprintf("HTTP %d", run.DispatchStatus)
	}
}

func stat(w io.Writer, label, value string) error {
	_, err := fmt.Fprintf(w, `<div class="stat"><b>%s</b>%s</div>`+"\n", esc(value), esc(label))
	return err
}
