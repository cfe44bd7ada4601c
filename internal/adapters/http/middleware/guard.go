package middleware

import (
	"log/slog"
	"net/http"

	"fitrit/internal/domain/guard"
)

// GuardObserver counts guard outcomes.
type GuardObserver interface {
	ObserveGuard(guardName, state string)
}

// Guards turns guard decisions into HTTP responses.
type Guards struct {
	Targets guard.Targets
	// Loading renders the shared loading screen.
	Loading  http.Handler
	Observer GuardObserver
}

// Member protects the member portal.
func (g Guards) Member(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := ViewerFromContext(r.Context())
		if !ok {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		d := guard.Member(v.Session.Snapshot(), r.URL.RequestURI(), g.Targets)
		g.apply(w, r, guard.NameMember, d, next)
	})
}

// Admin protects the staff dashboard.
func (g Guards) Admin(next http.Handler) http.Handler {
	return g.admin(false, next)
}

// Owner protects owner-only admin screens.
func (g Guards) Owner(next http.Handler) http.Handler {
	return g.admin(true, next)
}

func (g Guards) admin(ownerOnly bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := ViewerFromContext(r.Context())
		if !ok {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		d := guard.Admin(v.Session.Snapshot(), r.URL.RequestURI(), ownerOnly, g.Targets)
		g.apply(w, r, guard.NameAdmin, d, next)
	})
}

// apply renders, redirects or shows the loading screen for one decision.
// INVARIANT: a LOADING decision never redirects
func (g Guards) apply(w http.ResponseWriter, r *http.Request, name string, d guard.Decision, next http.Handler) {
	if g.Observer != nil {
		g.Observer.ObserveGuard(name, string(d.State))
	}
	w.Header().Set("Cache-Control", "no-store")

	switch d.State {
	case guard.StateAllowed:
		next.ServeHTTP(w, r)
	case guard.StateLoading:
		g.Loading.ServeHTTP(w, r)
	default:
		if d.State == guard.StateDeniedUnauth && d.ReturnTo != "" {
			if v, ok := ViewerFromContext(r.Context()); ok {
				v.Session.SetReturnTo(d.ReturnTo)
			}
		}
		slog.Debug("guard_event", "guard", name, "state", d.State, "path", r.URL.Path, "redirect", d.Redirect)
		http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
	}
}
