package model

import "github.com/jjenkins/recnotify/internal/orderedmap"

// RawRow holds the cell texts of one row of the portal's recordings listing
type RawRow struct {
	DateTime    string
	SubjectName string
	Permission  string
	OwnerName   string
}

// PendingRecording is a recording that has not been published to students yet
type PendingRecording struct {
	RecordedAt          string `json:"datum_zaznamu"`
	SubjectFullName     string `json:"nazev_predmetu"`
	SubjectAbbreviation string `json:"zkratka_predmetu"`
	CurrentPermission   string `json:"aktualni_povoleni"`
}

// OwnerAggregate collects every pending recording of one owner in a run
type OwnerAggregate struct {
	OwnerName         string
	PendingRecordings []PendingRecording
	ContactEmail      string
}

// Notifications maps owner name to aggregate, in first-appearance order
type Notifications = orderedmap.Map[*OwnerAggregate]

// NewNotifications creates an empty owner-keyed aggregate
func NewNotifications() *Notifications {
	return orderedmap.New[*OwnerAggregate]()
}

// OwnerRecord is the wire format expected by the notifier service
type OwnerRecord struct {
	OwnerName         string             `json:"owner_name"`
	PendingRecordings []PendingRecording `json:"seznam_nepublikovanych_zaznamu"`
	OwnerContact      string             `json:"owner_contact"`
}
