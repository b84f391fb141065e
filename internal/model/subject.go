package model

import "github.com/jjenkins/recnotify/internal/orderedmap"

// SubjectRecord represents a course as listed on the portal's subject selector
type SubjectRecord struct {
	Abbreviation     string `json:"zkratka"`
	FullName         string `json:"nazev"`
	ID               string `json:"id"`
	RecordingAllowed bool   `json:"zaznam_povolen"`
}

// SubjectRegistry maps a subject abbreviation to its record, in portal order
type SubjectRegistry = orderedmap.Map[SubjectRecord]

// NewSubjectRegistry creates an empty registry
func NewSubjectRegistry() *SubjectRegistry {
	return orderedmap.New[SubjectRecord]()
}

// SubjectOption is one entry of the portal's subject <select>
type SubjectOption struct {
	Label string
	Value string
}
