package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"fitrit/internal/adapters/clubflow"
	"fitrit/internal/domain/session"
	"fitrit/internal/domain/viewer"
)

var ErrNotSignedIn = errors.New("you need to sign in first")

// ProfileClient saves profile edits to ClubFlow.
type ProfileClient interface {
	UpdateProfile(ctx context.Context, ts clubflow.TokenSource, update clubflow.ProfileUpdate) (viewer.Profile, error)
}

// ProfileSession is the Session Store surface needed by profile edits.
type ProfileSession interface {
	clubflow.TokenSource
	Snapshot() session.Session
	UpdateUser(ctx context.Context, patch viewer.Patch) error
}

// UpdateProfileInput carries the submitted form. Empty fields keep their value,
// except PhotoURL which clears the photo when ClearPhoto is set.
type UpdateProfileInput struct {
	FirstName  string
	FullName   string
	PhotoURL   string
	ClearPhoto bool
}

type UpdateProfileDeps struct {
	Client  ProfileClient
	Session ProfileSession
}

// ExecuteUpdateProfile saves changed profile fields to ClubFlow, then merges
// ClubFlow's stored values into the session.
// PRE: viewer is signed in
// POST: Session user reflects ClubFlow; id and user type are never changed
func ExecuteUpdateProfile(ctx context.Context, input UpdateProfileInput, deps UpdateProfileDeps) (viewer.Profile, error) {
	snap := deps.Session.Snapshot()
	if !snap.IsAuthenticated || snap.User == nil {
		return viewer.Profile{}, ErrNotSignedIn
	}
	cur := *snap.User

	var update clubflow.ProfileUpdate
	if v := strings.TrimSpace(input.FirstName); v != "" && v != cur.FirstName {
		update.FirstName = &v
	}
	if v := strings.TrimSpace(input.FullName); v != "" && v != cur.FullName {
		update.FullName = &v
	}
	if v := strings.TrimSpace(input.PhotoURL); v != "" && v != cur.ProfilePhotoURL {
		update.ProfilePhotoURL = &v
	} else if input.ClearPhoto && cur.ProfilePhotoURL != "" {
		empty := ""
		update.ProfilePhotoURL = &empty
	}

	patch := viewer.Patch{FirstName: update.FirstName, FullName: update.FullName, ProfilePhotoURL: update.ProfilePhotoURL}
	if patch.IsEmpty() {
		return viewer.Profile{}, viewer.ErrEmptyPatch
	}
	if err := patch.Validate(); err != nil {
		return viewer.Profile{}, err
	}

	saved, err := deps.Client.UpdateProfile(ctx, deps.Session, update)
	if err != nil {
		slog.Warn("profile_event", "event", "update_failed", "user_id", cur.ID, "error", err)
		return viewer.Profile{}, err
	}

	stored := viewer.Patch{
		FirstName:       &saved.FirstName,
		FullName:        &saved.FullName,
		ProfilePhotoURL: &saved.ProfilePhotoURL,
	}
	if err := deps.Session.UpdateUser(ctx, stored); err != nil {
		return viewer.Profile{}, err
	}
	slog.Info("profile_event", "event", "updated", "user_id", cur.ID)
	return cur.Apply(stored), nil
}
