package orchestrators

import (
	"context"
	"errors"
	"testing"

	"fitrit/internal/domain/viewer"
)

func TestExecuteUpdateProfile(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	user := profile(viewer.TypeCustomer)
	if err := s.Login(ctx, user, "acc", "ref"); err != nil {
		t.Fatal(err)
	}

	saved := user
	saved.FullName = "Stored By ClubFlow"
	cf := &fakeClubFlow{updateResult: saved}

	got, err := ExecuteUpdateProfile(ctx, UpdateProfileInput{FirstName: user.FirstName, FullName: "New Name"}, UpdateProfileDeps{Client: cf, Session: s})
	if err != nil {
		t.Fatalf("ExecuteUpdateProfile: %v", err)
	}
	if cf.lastUpdate.FirstName != nil {
		t.Error("unchanged first name was sent")
	}
	if cf.lastUpdate.FullName == nil || *cf.lastUpdate.FullName != "New Name" {
		t.Errorf("full name sent = %v", cf.lastUpdate.FullName)
	}
	if got.FullName != "Stored By ClubFlow" {
		t.Errorf("result = %q, want ClubFlow's stored value", got.FullName)
	}
	snap := s.Snapshot()
	if snap.User.FullName != "Stored By ClubFlow" || snap.User.UserType != viewer.TypeCustomer || !snap.IsAuthenticated {
		t.Errorf("session user = %+v", snap.User)
	}
}

func TestExecuteUpdateProfile_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("signed out", func(t *testing.T) {
		_, err := ExecuteUpdateProfile(ctx, UpdateProfileInput{FullName: "x"}, UpdateProfileDeps{Client: &fakeClubFlow{}, Session: newSession(t)})
		if !errors.Is(err, ErrNotSignedIn) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("nothing changed", func(t *testing.T) {
		s := newSession(t)
		user := profile(viewer.TypeCustomer)
		_ = s.Login(ctx, user, "a", "r")
		_, err := ExecuteUpdateProfile(ctx, UpdateProfileInput{FullName: user.FullName}, UpdateProfileDeps{Client: &fakeClubFlow{}, Session: s})
		if !errors.Is(err, viewer.ErrEmptyPatch) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("bad photo url", func(t *testing.T) {
		s := newSession(t)
		_ = s.Login(ctx, profile(viewer.TypeCustomer), "a", "r")
		_, err := ExecuteUpdateProfile(ctx, UpdateProfileInput{PhotoURL: "javascript:alert(1)"}, UpdateProfileDeps{Client: &fakeClubFlow{}, Session: s})
		if !errors.Is(err, viewer.ErrInvalidPhotoURL) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("clubflow failure leaves session unchanged", func(t *testing.T) {
		s := newSession(t)
		user := profile(viewer.TypeCustomer)
		_ = s.Login(ctx, user, "a", "r")
		cf := &fakeClubFlow{updateErr: errors.New("boom")}
		if _, err := ExecuteUpdateProfile(ctx, UpdateProfileInput{FullName: "Changed"}, UpdateProfileDeps{Client: cf, Session: s}); err == nil {
			t.Fatal("expected error")
		}
		if s.Snapshot().User.FullName != user.FullName {
			t.Error("session changed despite failed save")
		}
	})
}
