package model

import "github.com/jjenkins/recnotify/internal/orderedmap"

// ContactEntry is a resolved owner email. An empty Email means the owner
// was looked up and no address was found.
type ContactEntry struct {
	OwnerName string `json:"owner_name"`
	Email     string `json:"email"`
}

// ContactDirectory maps an owner display name (titles included) to an email
type ContactDirectory = orderedmap.Map[string]

// NewContactDirectory creates an empty directory
func NewContactDirectory() *ContactDirectory {
	return orderedmap.New[string]()
}

// ContactSource identifies which resolution step produced an email
type ContactSource string

const (
	ContactSourceCache    ContactSource = "cache"
	ContactSourceProfile  ContactSource = "profile"
	ContactSourceOverride ContactSource = "override"
	ContactSourceNone     ContactSource = "none"
)
