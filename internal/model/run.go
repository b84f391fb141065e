package model

import "time"

// RunRecord summarizes one notify run and keeps its payload for inspection
type RunRecord struct {
	RunID              string        `json:"run_id"`
	Year               int           `json:"year"`
	StartedAt          time.Time     `json:"started_at"`
	FinishedAt         time.Time     `json:"finished_at"`
	RowsScanned        int           `json:"rows_scanned"`
	Owners             int           `json:"owners"`
	Recordings         int           `json:"recordings"`
	UnresolvedContacts int           `json:"unresolved_contacts"`
	DryRun             bool          `json:"dry_run"`
	DispatchStatus     int           `json:"dispatch_status,omitempty"`
	DispatchBody       string        `json:"dispatch_body,omitempty"`
	Payload            []OwnerRecord `json:"payload"`
}
