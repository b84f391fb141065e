package service

import (
	"fmt"
	"strings"
	"time"
)

const (
	// listingDateLayout matches "1. 3. 2024, 10:00"; day, month and hour may be unpadded
	listingDateLayout = "2. 1. 2006, 15:04"
	canonicalLayout   = "2006-01-02T15:04:05Z"
)

// AbbreviationFunc derives the registry key of a subject from its display name
type AbbreviationFunc func(subjectName string) (string, error)

// FirstToken uses the first whitespace-delimited word, which is how the
// portal prefixes every subject name with its course code.
func FirstToken(subjectName string) (string, error) {
	fields := strings.Fields(subjectName)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty subject name", ErrUnexpectedPage)
	}
	return fields[0], nil
}

// NormalizeRecordedAt converts a listing timestamp to YYYY-MM-DDTHH:MM:SSZ.
// The listing shows local wall-clock time; it is labelled Z unchanged because
// that is what the notifier expects.
func NormalizeRecordedAt(raw string) (string, error) {
	t, err := time.Parse(listingDateLayout, strings.Join(strings.Fields(raw), " "))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrDateFormat, raw, err)
	}
	return t.Format(canonicalLayout), nil
}
