package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/model"
	"github.com/jjenkins/recnotify/internal/service"
	"github.com/jjenkins/recnotify/internal/store"
)

var testKeys = Keys{Subjects: "allowed_subjects", Contacts: "contact_info", Notifications: "notifications"}

func newTestApp(t *testing.T, seed bool) (*fiber.App, *service.Metrics) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	if seed {
		ctx := context.Background()
		subjects := model.NewSubjectRegistry()
		subjects.Set("IZP", model.SubjectRecord{Abbreviation: "IZP", FullName: "IZP Základy programování", ID: "268", RecordingAllowed: true})
		subjects.Set("BIT", model.SubjectRecord{Abbreviation: "BIT", FullName: "BIT <Intro>", ID: "281"})
		require.NoError(t, st.Save(ctx, testKeys.Subjects, subjects))

		contacts := model.NewContactDirectory()
		contacts.Set("Novák Jan, Ing.", "novak@fit.vut.cz")
		contacts.Set("Svoboda Petr", "")
		require.NoError(t, st.Save(ctx, testKeys.Contacts, contacts))

		finished := time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC)
		require.NoError(t, st.Save(ctx, testKeys.Notifications, &model.RunRecord{
			RunID:          "run-42",
			Year:           2024,
			StartedAt:      finished.Add(-time.Minute),
			FinishedAt:     finished,
			RowsScanned:    12,
			Owners:         1,
			Recordings:     2,
			DispatchStatus: 200,
			Payload: []model.OwnerRecord{{
				OwnerName: "Novák Jan, Ing.",
				PendingRecordings: []model.PendingRecording{
					{RecordedAt: "2024-03-01T10:00:00Z", SubjectFullName: "IZP Základy programování", SubjectAbbreviation: "IZP", CurrentPermission: "persons"},
					{RecordedAt: "2024-03-02T10:00:00Z", SubjectFullName: "IZP Základy programování", SubjectAbbreviation: "IZP", CurrentPermission: "lects"},
				},
				OwnerContact: "novak@fit.vut.cz",
			}},
		}))
	}

	metrics := service.NewMetrics()
	app := fiber.New()
	app.Get("/", HomeHandler(st, testKeys, zap.NewNop()))
	app.Get("/subjects", SubjectsHandler(st, testKeys))
	app.Get("/contacts", ContactsHandler(st, testKeys))
	app.Get("/api/notifications", NotificationsHandler(st, testKeys))
	app.Get("/metrics", MetricsHandler(metrics, st, testKeys, zap.NewNop()))
	return app, metrics
}

func get(t *testing.T, app *fiber.App, target string, headers map[string]string) (int, string, http.Header) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body), resp.Header
}

func TestHomeShowsLastRun(t *testing.T) {
	app, _ := newTestApp(t, true)

	status, body, _ := get(t, app, "/", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "run-42")
	assert.Contains(t, body, "Novák Jan, Ing.")
	assert.Contains(t, body, "2024-03-02T10:00:00Z")
	assert.Contains(t, body, "HTTP 200")
}

func TestHomeWithoutRun(t *testing.T) {
	app, _ := newTestApp(t, false)

	status, body, _ := get(t, app, "/", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "No run has been recorded yet")
}

func TestSubjectsPageEscapesNames(t *testing.T) {
	app, _ := newTestApp(t, true)

	status, body, _ := get(t, app, "/subjects", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "BIT &lt;Intro&gt;")
	assert.NotContains(t, body, "<Intro>")
	assert.Less(t, strings.Index(body, "IZP Základy"), strings.Index(body, "BIT &lt;Intro"), "registry order is kept")
}

func TestContactsFilterWithHTMX(t *testing.T) {
	app, _ := newTestApp(t, true)

	status, body, _ := get(t, app, "/contacts?q=novak", map[string]string{"HX-Request": "true"})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "novak@fit.vut.cz")
	assert.NotContains(t, body, "Svoboda")
	assert.NotContains(t, body, "<html")

	_, full, _ := get(t, app, "/contacts", nil)
	assert.Contains(t, full, "<html")
	assert.Contains(t, full, "Svoboda Petr")
	assert.Contains(t, full, "not found")
}

func TestNotificationsAPI(t *testing.T) {
	app, _ := newTestApp(t, true)

	status, body, header := get(t, app, "/api/notifications", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "run-42", header.Get("X-Run-ID"))
	assert.Contains(t, body, `"owner_name":"Novák Jan, Ing."`)
	assert.Contains(t, body, `"seznam_nepublikovanych_zaznamu":[`)
}

func TestNotificationsAPIWithoutRun(t *testing.T) {
	app, _ := newTestApp(t, false)

	status, body, _ := get(t, app, "/api/notifications", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "no run recorded")
}

func TestMetricsPublishesLastRun(t *testing.T) {
	app, _ := newTestApp(t, true)

	status, body, _ := get(t, app, "/metrics", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "recnotify_last_run_rows 12")
	assert.Contains(t, body, "recnotify_last_run_pending_recordings 2")
}
