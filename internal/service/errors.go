package service

import "errors"

var (
	// ErrNoAccess means the portal login succeeded but the account cannot see recordings
	ErrNoAccess = errors.New("no access to the recordings portal")
	// ErrUnexpectedPage means a page no longer has the structure the scraper relies on
	ErrUnexpectedPage = errors.New("unexpected page structure")
	// ErrDateFormat means a recording date does not match the listing format
	ErrDateFormat = errors.New("unexpected recording date format")
	// ErrUnknownSubject means a recording references a subject missing from the registry
	ErrUnknownSubject = errors.New("subject not found in registry")
	// ErrDispatch means the notifier answered with a non-success status
	ErrDispatch = errors.New("notifier rejected the payload")
)
