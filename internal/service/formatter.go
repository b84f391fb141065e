package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jjenkins/recnotify/internal/model"
)

// Flatten converts the owner-keyed aggregate into the notifier's list
// format, one record per owner in aggregate order
func Flatten(notifications *model.Notifications) []model.OwnerRecord {
	records := make([]model.OwnerRecord, 0, notifications.Len())
	for owner, agg := range notifications.All() {
		recordings := agg.PendingRecordings
		if recordings == nil {
			recordings = []model.PendingRecording{}
		}
		records = append(records, model.OwnerRecord{
			OwnerName:         owner,
			PendingRecordings: recordings,
			OwnerContact:      agg.ContactEmail,
		})
	}
	return records
}

// EncodeJSON encodes v as UTF-8 JSON without HTML escaping. With indent set
// the output is indented by two spaces for reading and diffing.
func EncodeJSON(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteJSONFile writes v to path as indented JSON
func WriteJSONFile(path string, v any) error {
	data, err := EncodeJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
