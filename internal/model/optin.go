package model

import "time"

type OptInSource string

const (
	OptInSourceWebsite OptInSource = "website"
	OptInSourceImport  OptInSource = "import"
	OptInSourceInbound OptInSource = "inbound"
)

// OptIn is an explicit consent record. An inactive opt-in never receives a
// new campaign recipient; reactivation requires a new consent event, never a
// flip by campaign code.
type OptIn struct {
	ID          int64       `json:"id"`
	WorkspaceID int64       `json:"workspace_id"`
	PhoneNumber string      `json:"phone_number"`
	Name        string      `json:"name,omitempty"`
	Source      OptInSource `json:"source"`
	IsActive    bool        `json:"is_active"`
	OptedInAt   time.Time   `json:"opted_in_at"`
	OptedOutAt  *time.Time  `json:"opted_out_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// OptInFilter controls List and audience-build queries.
type OptInFilter struct {
	WorkspaceID  *int64
	ActiveOnly   bool
	PhonePrefix  *string
	OptedInAfter *time.Time
	Limit        int
	Offset       int
}
