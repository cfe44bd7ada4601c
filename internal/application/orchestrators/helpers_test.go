package orchestrators

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"fitrit/internal/adapters/clubflow"
	"fitrit/internal/adapters/storage"
	"fitrit/internal/adapters/storage/clientstorage"
	"fitrit/internal/application/viewerstate"
	"fitrit/internal/domain/viewer"
)

func newSession(t *testing.T) *viewerstate.SessionStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := viewerstate.NewSessionStore("viewer-1", clientstorage.NewSQLiteStore(db))
	s.SetLoading(false)
	return s
}

func profile(userType string) viewer.Profile {
	return viewer.Profile{ID: "u-" + userType, Email: userType + "@fitrit.test", FirstName: "Test", FullName: "Test " + userType, UserType: userType}
}

type fakeClubFlow struct {
	loginResult  clubflow.AuthResult
	loginErr     error
	googleResult clubflow.AuthResult
	googleErr    error
	logoutErr    error
	logoutCalls  int
	updateResult viewer.Profile
	updateErr    error
	lastUpdate   clubflow.ProfileUpdate
	resetErr     error
	resets       []string
}

func (f *fakeClubFlow) Login(_ context.Context, _, _ string) (clubflow.AuthResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeClubFlow) LoginWithGoogle(_ context.Context, _ string) (clubflow.AuthResult, error) {
	return f.googleResult, f.googleErr
}

func (f *fakeClubFlow) Logout(_ context.Context, _, _ string) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeClubFlow) UpdateProfile(_ context.Context, _ clubflow.TokenSource, u clubflow.ProfileUpdate) (viewer.Profile, error) {
	f.lastUpdate = u
	return f.updateResult, f.updateErr
}

func (f *fakeClubFlow) RequestPasswordReset(_ context.Context, email string) error {
	f.resets = append(f.resets, email)
	return f.resetErr
}
