package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	_ "modernc.org/sqlite"

	"fitrit/internal/adapters/storage"
	"fitrit/internal/adapters/storage/clientstorage"
	"fitrit/internal/application/viewerstate"
	"fitrit/internal/domain/guard"
	"fitrit/internal/domain/viewer"
)

func newTestStorage(t *testing.T) clientstorage.Store {
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
	return clientstorage.NewSQLiteStore(db)
}

// newViewer returns a viewer whose session is still loading.
func newViewer(t *testing.T) *viewerstate.Viewer {
	t.Helper()
	return &viewerstate.Viewer{
		ID:      "viewer-1",
		Session: viewerstate.NewSessionStore("viewer-1", newTestStorage(t)),
		UI:      viewerstate.NewUIStore(),
	}
}

func signIn(t *testing.T, v *viewerstate.Viewer, userType string) {
	t.Helper()
	v.Session.SetLoading(false)
	if userType == "" {
		return
	}
	p := viewer.Profile{ID: "u-1", Email: userType + "@fitrit.test", FullName: "Test User", UserType: userType}
	if err := v.Session.Login(context.Background(), p, "access", "refresh"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

type guardCounter map[string]int

func (g guardCounter) ObserveGuard(name, state string) { g[name+":"+state]++ }

func testGuards(obs GuardObserver) Guards {
	return Guards{
		Targets: guard.DefaultTargets(),
		Loading: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("loading"))
		}),
		Observer: obs,
	}
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("screen"))
})

func serveGuarded(v *viewerstate.Viewer, h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", target, nil)
	req = req.WithContext(ContextWithViewer(req.Context(), v))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGuards_Responses(t *testing.T) {
	tests := []struct {
		name     string
		userType string // "" with loaded=true means signed out
		loaded   bool
		wrap     func(Guards) func(http.Handler) http.Handler
		target   string
		status   int
		location string
		body     string
	}{
		{name: "member loading", wrap: func(g Guards) func(http.Handler) http.Handler { return g.Member }, target: "/portal", status: http.StatusOK, body: "loading"},
		{name: "admin loading", wrap: func(g Guards) func(http.Handler) http.Handler { return g.Admin }, target: "/admin", status: http.StatusOK, body: "loading"},
		{name: "member signed out", loaded: true, wrap: func(g Guards) func(http.Handler) http.Handler { return g.Member }, target: "/portal/bookings?tab=past", status: http.StatusSeeOther, location: "/login?next=" + url.QueryEscape("/portal/bookings?tab=past")},
		{name: "member customer", loaded: true, userType: viewer.TypeCustomer, wrap: func(g Guards) func(http.Handler) http.Handler { return g.Member }, target: "/portal", status: http.StatusOK, body: "screen"},
		{name: "member staff allowed", loaded: true, userType: viewer.TypeStaff, wrap: func(g Guards) func(http.Handler) http.Handler { return g.Member }, target: "/portal", status: http.StatusOK, body: "screen"},
		{name: "admin customer", loaded: true, userType: viewer.TypeCustomer, wrap: func(g Guards) func(http.Handler) http.Handler { return g.Admin }, target: "/admin", status: http.StatusSeeOther, location: "/portal"},
		{name: "admin staff", loaded: true, userType: viewer.TypeStaff, wrap: func(g Guards) func(http.Handler) http.Handler { return g.Admin }, target: "/admin", status: http.StatusOK, body: "screen"},
		{name: "owner staff", loaded: true, userType: viewer.TypeStaff, wrap: func(g Guards) func(http.Handler) http.Handler { return g.Owner }, target: "/admin/reports", status: http.StatusSeeOther, location: "/admin"},
		{name: "owner manager", loaded: true, userType: viewer.TypeManager, wrap: func(g Guards) func(http.Handler) http.Handler { return g.Owner }, target: "/admin/reports", status: http.StatusOK, body: "screen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViewer(t)
			if tt.loaded {
				signIn(t, v, tt.userType)
			}
			obs := guardCounter{}
			rr := serveGuarded(v, tt.wrap(testGuards(obs))(okHandler), tt.target)

			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if got := rr.Header().Get("Location"); got != tt.location {
				t.Errorf("Location = %q, want %q", got, tt.location)
			}
			if tt.body != "" && rr.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.body)
			}
			if rr.Header().Get("Cache-Control") != "no-store" {
				t.Error("guarded response must not be cached")
			}
			if len(obs) != 1 {
				t.Errorf("observer saw %v, want one decision", obs)
			}
		})
	}
}

func TestGuards_DeniedUnauthStoresReturnTo(t *testing.T) {
	v := newViewer(t)
	signIn(t, v, "")

	serveGuarded(v, testGuards(nil).Admin(okHandler), "/admin/members?q=ann")

	if got := v.Session.TakeReturnTo(); got != "/admin/members?q=ann" {
		t.Errorf("ReturnTo = %q, want requested location", got)
	}
}

func TestGuards_NoViewerIsServerError(t *testing.T) {
	rr := httptest.NewRecorder()
	testGuards(nil).Member(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/portal", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}
