package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

var navLinks = []struct {
	Href  string
	Label string
}{
	{"/", "Last run"},
	{"/subjects", "Subjects"},
	{"/contacts", "Contacts"},
}

// Layout wraps body in the page chrome shared by every page
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s | Recording notifier</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0 auto;max-width:72rem;padding:1rem 2rem;color:#1f2933}
nav a{margin-right:1.5rem}
table{border-collapse:collapse;width:100%%}
th,td{text-align:left;padding:.35rem .6rem;border-bottom:1px solid #e4e7eb}
.stat{display:inline-block;margin:0 2rem 1rem 0}
.stat b{display:block;font-size:1.6rem}
.missing{color:#b91c1c}
</style>
</head>
<body>
<nav>`, esc(title)); err != nil {
			return err
		}
		for _, link := range navLinks {
			if _, err := fmt.Fprintf(w, `<a href="%s">%s</a>`, link.Href, esc(link.Label)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "</nav>\n<h1>%s</h1>\n", esc(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n</body>\n</html>\n")
		return err
	})
}

func esc(s string) string {
	return templ.EscapeString(s)
}

// writeAll writes each fragment in turn, stopping at the first error
func writeAll(w io.Writer, fragments ...string) error {
	for _, f := range fragments {
		if _, err := io.WriteString(w, f); err != nil {
			return err
		}
	}
	return nil
}
