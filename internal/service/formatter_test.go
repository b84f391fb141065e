package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjenkins/recnotify/internal/model"
)

func TestFlattenKeepsOwnerOrder(t *testing.T) {
	notifications := model.NewNotifications()
	for _, owner := range []string{"Zeman Tomáš", "Adámek Jiří", "Novák Jan"} {
		notifications.Set(owner, &model.OwnerAggregate{
			OwnerName:         owner,
			PendingRecordings: []model.PendingRecording{{RecordedAt: "2024-03-01T10:00:00Z"}},
			ContactEmail:      "x@fit.vut.cz",
		})
	}

	records := Flatten(notifications)

	require.Len(t, records, 3)
	assert.Equal(t, "Zeman Tomáš", records[0].OwnerName)
	assert.Equal(t, "Adámek Jiří", records[1].OwnerName)
	assert.Equal(t, "Novák Jan", records[2].OwnerName)
	assert.Equal(t, "x@fit.vut.cz", records[2].OwnerContact)
}

func TestFlattenEmpty(t *testing.T) {
	records := Flatten(model.NewNotifications())
	assert.NotNil(t, records)
	assert.Empty(t, records)

	data, err := EncodeJSON(records, false)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestEncodeJSONWireFormat(t *testing.T) {
	records := []model.OwnerRecord{{
		OwnerName: "Žmolíková Kateřina, Ing.",
		PendingRecordings: []model.PendingRecording{{
			RecordedAt:          "2024-03-01T10:00:00Z",
			SubjectFullName:     "IZP Základy programování",
			SubjectAbbreviation: "IZP",
			CurrentPermission:   "persons",
		}},
		OwnerContact: "izmolikova@fit.vut.cz",
	}}

	data, err := EncodeJSON(records, false)
	require.NoError(t, err)

	want := `[{"owner_name":"Žmolíková Kateřina, Ing.","seznam_nepublikovanych_zaznamu":[{"datum_zaznamu":"2024-03-01T10:00:00Z","nazev_predmetu":"IZP Základy programování","zkratka_predmetu":"IZP","aktualni_povoleni":"persons"}],"owner_contact":"izmolikova@fit.vut.cz"}]`
	assert.Equal(t, want, string(data))
}

func TestWriteJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "notifications_out")
	records := []model.OwnerRecord{{OwnerName: "A & B", PendingRecordings: []model.PendingRecording{}}}

	require.NoError(t, WriteJSONFile(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"owner_name\": \"A & B\"")

	var decoded []model.OwnerRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, records, decoded)
}
