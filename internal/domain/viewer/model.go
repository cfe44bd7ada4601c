package viewer

import (
	"errors"
	"strings"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength    = 254
	MaxNameLength     = 120
	MaxPhotoURLLength = 2048
)

// Domain errors
var (
	ErrEmptyID         = errors.New("user id cannot be empty")
	ErrEmptyEmail      = errors.New("email cannot be empty")
	ErrInvalidEmail    = errors.New("email must contain '@'")
	ErrInvalidUserType = errors.New("user type must be one of: customer, staff, trainer, manager, admin")
	ErrNameTooLong     = errors.New("name cannot exceed 120 characters")
	ErrInvalidPhotoURL = errors.New("profile photo must be an http(s) URL")
	ErrEmptyPatch      = errors.New("no profile fields to update")
)

// Profile is the signed-in viewer's user record as supplied by ClubFlow.
type Profile struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	FullName        string `json:"full_name"`
	UserType        string `json:"user_type"`
	IsTrainer       bool   `json:"is_trainer"`
	ProfilePhotoURL string `json:"profile_photo_url,omitempty"`
}

// Validate checks if the Profile has valid data.
// PRE: Profile struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(p.Email) == "" {
		return ErrEmptyEmail
	}
	if len(p.Email) > MaxEmailLength {
		return errors.New("email cannot exceed 254 characters")
	}
	if !strings.Contains(p.Email, "@") {
		return ErrInvalidEmail
	}
	if !IsValidUserType(p.UserType) {
		return ErrInvalidUserType
	}
	return nil
}

// DisplayName returns the friendliest available name for greetings.
func (p *Profile) DisplayName() string {
	if p.FirstName != "" {
		return p.FirstName
	}
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}

// Patch carries a partial profile update. Nil fields are left untouched.
// Identity fields (ID, UserType) are owned by ClubFlow and cannot be patched.
type Patch struct {
	Email           *string `json:"email,omitempty"`
	FirstName       *string `json:"first_name,omitempty"`
	FullName        *string `json:"full_name,omitempty"`
	IsTrainer       *bool   `json:"is_trainer,omitempty"`
	ProfilePhotoURL *string `json:"profile_photo_url,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Email == nil && p.FirstName == nil && p.FullName == nil && p.IsTrainer == nil && p.ProfilePhotoURL == nil
}

// Validate checks the fields present in the patch.
// PRE: none
// POST: Returns nil if every non-nil field is acceptable
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Email != nil {
		if strings.TrimSpace(*p.Email) == "" {
			return ErrEmptyEmail
		}
		if !strings.Contains(*p.Email, "@") {
			return ErrInvalidEmail
		}
	}
	if p.FirstName != nil && len(*p.FirstName) > MaxNameLength {
		return ErrNameTooLong
	}
	if p.FullName != nil && len(*p.FullName) > MaxNameLength {
		return ErrNameTooLong
	}
	if p.ProfilePhotoURL != nil && *p.ProfilePhotoURL != "" {
		u := *p.ProfilePhotoURL
		if len(u) > MaxPhotoURLLength || !(strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://")) {
			return ErrInvalidPhotoURL
		}
	}
	return nil
}

// Apply returns a copy of the profile with the patch shallow-merged in.
// INVARIANT: the receiver is not mutated
func (p Profile) Apply(patch Patch) Profile {
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.FirstName != nil {
		p.FirstName = *patch.FirstName
	}
	if patch.FullName != nil {
		p.FullName = *patch.FullName
	}
	if patch.IsTrainer != nil {
		p.IsTrainer = *patch.IsTrainer
	}
	if patch.ProfilePhotoURL != nil {
		p.ProfilePhotoURL = *patch.ProfilePhotoURL
	}
	return p
}
