package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/config"
	"github.com/jjenkins/recnotify/internal/model"
	"github.com/jjenkins/recnotify/internal/service"
	"github.com/jjenkins/recnotify/internal/store"
)

func TestCommandsAreRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"notify", "subjects", "contacts", "serve"} {
		assert.True(t, names[want], want)
	}

	for _, flag := range []string{"year", "reload-subjects", "dry-run"} {
		assert.NotNil(t, notifyCmd.Flags().Lookup(flag), flag)
	}
	assert.NotNil(t, subjectsCmd.Flags().Lookup("reload"))
	assert.NotNil(t, contactsCmd.Flags().Lookup("out"))
	assert.NotNil(t, serveCmd.Flags().Lookup("port"))
}

func TestPrintSubjects(t *testing.T) {
	subjects := model.NewSubjectRegistry()
	subjects.Set("IZP", model.SubjectRecord{Abbreviation: "IZP", FullName: "IZP Základy programování", ID: "268", RecordingAllowed: true})
	subjects.Set("BIT", model.SubjectRecord{Abbreviation: "BIT", FullName: "BIT Intro", ID: "281"})

	var buf bytes.Buffer
	printSubjects(&buf, subjects)

	out := buf.String()
	assert.Contains(t, out, "ABBR")
	assert.Regexp(t, `IZP\s+268\s+yes\s+IZP Základy programování`, out)
	assert.Regexp(t, `BIT\s+281\s+no\s+BIT Intro`, out)
	assert.Contains(t, out, "2 subjects")
}

func TestDumpContacts(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	contacts := model.NewContactDirectory()
	contacts.Set("Zeman Tomáš", "zeman@fit.vut.cz")
	contacts.Set("Adámek Jiří", "")
	require.NoError(t, st.Save(ctx, "contact_info", contacts))

	path := filepath.Join(t.TempDir(), "contacts_out")
	count, err := dumpContacts(ctx, st, "contact_info", path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"Zeman Tomáš\": \"zeman@fit.vut.cz\",\n  \"Adámek Jiří\": \"\"\n}", string(data))

	var stdout bytes.Buffer
	_, err = dumpContacts(ctx, st, "contact_info", "-", &stdout)
	require.NoError(t, err)
	assert.Equal(t, string(data)+"\n", stdout.String())
}

func TestDumpContactsEmpty(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	var stdout bytes.Buffer
	count, err := dumpContacts(context.Background(), st, "contact_info", "-", &stdout)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, "{}\n", stdout.String())
}

type fakeLoginSource struct {
	loginErr error
	logins   int
}

func (f *fakeLoginSource) Login(ctx context.Context) error {
	f.logins++
	return f.loginErr
}

func (f *fakeLoginSource) FetchSubjectOptions(ctx context.Context) ([]model.SubjectOption, error) {
	return []model.SubjectOption{{Label: "IZP", Value: "1"}}, nil
}

func (f *fakeLoginSource) FetchRecordingAllowed(ctx context.Context, option model.SubjectOption) (bool, error) {
	return true, nil
}

func TestLazyLoginLogsInOnce(t *testing.T) {
	source := &fakeLoginSource{}
	l := &lazyLogin{client: source}
	ctx := context.Background()

	_, err := l.FetchSubjectOptions(ctx)
	require.NoError(t, err)
	_, err = l.FetchRecordingAllowed(ctx, model.SubjectOption{Value: "1"})
	require.NoError(t, err)

	assert.Equal(t, 1, source.logins)
}

func TestLazyLoginFailure(t *testing.T) {
	source := &fakeLoginSource{loginErr: service.ErrNoAccess}
	l := &lazyLogin{client: source}

	_, err := l.FetchSubjectOptions(context.Background())
	assert.True(t, errors.Is(err, service.ErrNoAccess))
	_, err = l.FetchRecordingAllowed(context.Background(), model.SubjectOption{})
	assert.True(t, errors.Is(err, service.ErrNoAccess))
	assert.Equal(t, 1, source.logins)
}

func TestLazyLoginSkippedWhenCached(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	cached := model.NewSubjectRegistry()
	cached.Set("IZP", model.SubjectRecord{Abbreviation: "IZP", ID: "1"})
	require.NoError(t, st.Save(ctx, "allowed_subjects", cached))

	source := &fakeLoginSource{}
	registry := service.NewRegistry(&lazyLogin{client: source}, st, "allowed_subjects", nil, zap.NewNop())
	_, err = registry.GetSubjects(ctx, false)
	require.NoError(t, err)

	assert.Zero(t, source.logins)
}

func TestContactOptions(t *testing.T) {
	metrics := service.NewMetrics()
	opts := contactOptions(config.ContactsConfig{
		CacheNegative: true,
		Overrides:     map[string]string{"A": "a@fit.vut.cz"},
	}, metrics)

	assert.True(t, opts.CacheNegative)
	assert.Equal(t, "a@fit.vut.cz", opts.Overrides["A"])
	assert.Same(t, metrics, opts.Metrics)
}

func TestNewServerRoutes(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	cfg := &config.Config{Cache: config.CacheConfig{
		SubjectsKey:      "allowed_subjects",
		ContactsKey:      "contact_info",
		NotificationsKey: "notifications",
	}}
	app := newServer(cfg, st, service.NewMetrics(), zap.NewNop())

	for target, want := range map[string]int{
		"/":                  http.StatusOK,
		"/subjects":          http.StatusOK,
		"/contacts":          http.StatusOK,
		"/api/notifications": http.StatusNotFound,
		"/metrics":           http.StatusOK,
		"/missing":           http.StatusNotFound,
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, target)
	}
}

func TestNewPortalClient(t *testing.T) {
	client, err := newPortalClient("listing", config.PortalConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, client)
}
