package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "recnotify/1.0"
	maxPageSize      = 16 << 20
)

// ErrNotFound is returned when a selector matches nothing on the current page
var ErrNotFound = errors.New("element not found")

// ErrNoPage is returned when an element is queried before any navigation
var ErrNoPage = errors.New("no page loaded")

// Agent drives one browsing session against the portal. It holds the
// current page and the form state edited by Fill and SelectOption.
type Agent interface {
	Navigate(ctx context.Context, rawURL string) error
	Find(selector string) (Element, error)
	FindAll(selector string) ([]Element, error)
	Fill(selector, value string) error
	SelectOption(selector, value string) error
	Click(ctx context.Context, selector string) error
	CurrentURL() string
}

// Options configures a Session
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// Session is an Agent backed by an HTTP client with its own cookie jar.
// Two sessions never share cookies or page state.
type Session struct {
	name      string
	client    *http.Client
	userAgent string
	logger    *zap.Logger

	doc     *goquery.Document
	current *url.URL
}

// NewSession creates a session with an empty cookie jar
func NewSession(name string, logger *zap.Logger, opts Options) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Session{
		name: name,
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		userAgent: userAgent,
		logger:    logger.Named("session").With(zap.String("session", name)),
	}, nil
}

// Name returns the session label used in logs
func (s *Session) Name() string { return s.name }

// CurrentURL returns the URL of the loaded page after redirects
func (s *Session) CurrentURL() string {
	if s.current == nil {
		return ""
	}
	return s.current.String()
}

// Navigate loads rawURL, resolved against the current page when relative
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	target, err := s.resolve(rawURL)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return s.load(req)
}

// Find returns the first element matching the CSS selector
func (s *Session) Find(selector string) (Element, error) {
	if s.doc == nil {
		return Element{}, ErrNoPage
	}
	sel := s.doc.Find(selector)
	if sel.Length() == 0 {
		return Element{}, fmt.Errorf("%w: %s on %s", ErrNotFound, selector, s.CurrentURL())
	}
	return Element{sel: sel.First()}, nil
}

// FindAll returns every element matching the CSS selector, possibly none
func (s *Session) FindAll(selector string) ([]Element, error) {
	if s.doc == nil {
		return nil, ErrNoPage
	}
	return wrap(s.doc.Find(selector)), nil
}

// Fill sets the value of a text-like input
func (s *Session) Fill(selector, value string) error {
	el, err := s.Find(selector)
	if err != nil {
		return err
	}
	if goquery.NodeName(el.sel) == "textarea" {
		el.sel.SetText(value)
		return nil
	}
	el.sel.SetAttr("value", value)
	return nil
}

// SelectOption marks the option with the given value as the only selected
// option of the matched <select>
func (s *Session) SelectOption(selector, value string) error {
	el, err := s.Find(selector)
	if err != nil {
		return err
	}
	if goquery.NodeName(el.sel) != "select" {
		return fmt.Errorf("%s is not a select element", selector)
	}

	found := false
	el.sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		if optionValue(opt) == value && !found {
			opt.SetAttr("selected", "selected")
			found = true
			return
		}
		opt.RemoveAttr("selected")
	})
	if !found {
		return fmt.Errorf("%w: option %q in %s", ErrNotFound, value, selector)
	}
	return nil
}

// Click follows a link or submits the form owning a submit control
func (s *Session) Click(ctx context.Context, selector string) error {
	el, err := s.Find(selector)
	if err != nil {
		return err
	}

	switch goquery.NodeName(el.sel) {
	case "a":
		href, ok := el.sel.Attr("href")
		if !ok {
			return fmt.Errorf("link %s has no href", selector)
		}
		return s.Navigate(ctx, href)
	case "input", "button":
		form := el.sel.Closest("form")
		if form.Length() == 0 {
			return fmt.Errorf("%s is not inside a form", selector)
		}
		req, err := s.formRequest(ctx, form, el.sel)
		if err != nil {
			return err
		}
		return s.load(req)
	default:
		return fmt.Errorf("cannot click %s element", goquery.NodeName(el.sel))
	}
}

func (s *Session) load(req *http.Request) error {
	req.Header.Set("User-Agent", s.userAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("failed to load %s: unexpected status code: %d", req.URL, resp.StatusCode)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxPageSize), resp.Header.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", req.URL, err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", req.URL, err)
	}

	s.doc = doc
	s.current = resp.Request.URL
	s.logger.Debug("Page loaded",
		zap.String("method", req.Method),
		zap.String("url", s.current.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return nil
}

// formRequest serializes form the way a browser would when submitter is clicked
func (s *Session) formRequest(ctx context.Context, form, submitter *goquery.Selection) (*http.Request, error) {
	values := url.Values{}

	form.Find("input, select, textarea, button").Each(func(_ int, field *goquery.Selection) {
		name, ok := field.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := field.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(field) {
		case "select":
			selected := field.Find("option[selected]").First()
			if selected.Length() == 0 {
				selected = field.Find("option").First()
			}
			if selected.Length() > 0 {
				values.Add(name, optionValue(selected))
			}
		case "textarea":
			values.Add(name, field.Text())
		case "button":
			if field.IsSelection(submitter) {
				values.Add(name, field.AttrOr("value", ""))
			}
		default:
			switch strings.ToLower(field.AttrOr("type", "text")) {
			case "submit", "image":
				if field.IsSelection(submitter) {
					values.Add(name, field.AttrOr("value", ""))
				}
			case "checkbox", "radio":
				if _, checked := field.Attr("checked"); checked {
					values.Add(name, field.AttrOr("value", "on"))
				}
			case "reset", "file":
			default:
				values.Add(name, field.AttrOr("value", ""))
			}
		}
	})

	action, err := s.resolve(form.AttrOr("action", ""))
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(form.AttrOr("method", http.MethodGet))
	if method == http.MethodPost {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, action.String(), strings.NewReader(values.Encode()))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	action.RawQuery = values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, action.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

func (s *Session) resolve(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if s.current != nil {
		u = s.current.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("URL %q is not absolute", rawURL)
	}
	return u, nil
}

func optionValue(opt *goquery.Selection) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return normalizeSpace(opt.Text())
}
