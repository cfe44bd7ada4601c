// Package audit records session lifecycle events for the owner reports screen.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action is the session event that occurred.
type Action string

const (
	ActionSignIn        Action = "sign_in"
	ActionSignOut       Action = "sign_out"
	ActionProfileUpdate Action = "profile_update"
	ActionStorageClear  Action = "storage_clear"
)

// Event is a single audit log entry.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      Action    `json:"action"`
	ViewerID    string    `json:"viewer_id"`
	UserID      string    `json:"user_id"`
	UserEmail   string    `json:"user_email"`
	UserType    string    `json:"user_type"`
	Description string    `json:"description"`
}

// NewEvent creates an audit event stamped with the current time.
// PRE: viewerID and action are non-empty
func NewEvent(viewerID string, action Action) Event {
	return Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		ViewerID:  viewerID,
	}
}

// WithUser sets the user the event concerns.
func (e Event) WithUser(id, email, userType string) Event {
	e.UserID = id
	e.UserEmail = email
	e.UserType = userType
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}
