// Package guard decides, for every navigation, whether a viewer may reach a
// screen. Decisions are total functions of a session snapshot.
package guard

import (
	"net/url"
	"strings"

	"fitrit/internal/domain/session"
	"fitrit/internal/domain/viewer"
)

// State is the outcome of a guard evaluation.
type State string

// Guard states. Every state other than StateLoading is settled for the
// current request only and is recomputed on the next one.
const (
	StateLoading      State = "LOADING"
	StateDeniedUnauth State = "DENIED_UNAUTH"
	StateDeniedRole   State = "DENIED_ROLE"
	StateDeniedOwner  State = "DENIED_OWNER"
	StateAllowed      State = "ALLOWED"
)

// Guard names used in logs and metrics.
const (
	NameMember = "member"
	NameAdmin  = "admin"
)

// ReturnParam is the query parameter that carries the return location to sign-in.
const ReturnParam = "next"

// Targets are the redirect destinations guards may choose.
type Targets struct {
	SignIn     string
	PortalRoot string
	AdminRoot  string
}

// DefaultTargets returns the studio's route layout.
func DefaultTargets() Targets {
	return Targets{
		SignIn:     "/login",
		PortalRoot: "/portal",
		AdminRoot:  "/admin",
	}
}

// Decision is the result of evaluating a guard.
type Decision struct {
	State    State
	Redirect string // empty for StateLoading and StateAllowed
	ReturnTo string // requested location, set for StateDeniedUnauth
}

// Allowed reports whether the screen may render.
func (d Decision) Allowed() bool {
	return d.State == StateAllowed
}

// Member gates screens that need any signed-in viewer.
// PRE: location is the requested path (with query)
// POST: Never redirects on user type
func Member(s session.Session, location string, t Targets) Decision {
	if d, settled := authenticate(s, location, t); settled {
		return d
	}
	return Decision{State: StateAllowed}
}

// Admin gates staff screens. With ownerOnly, staff without owner privilege
// are sent to the admin root instead of being refused outright.
// Checks run in a fixed order: authentication, role, ownership.
func Admin(s session.Session, location string, ownerOnly bool, t Targets) Decision {
	if d, settled := authenticate(s, location, t); settled {
		return d
	}
	userType := s.UserType()
	if !viewer.HasAdminAccess(userType) {
		return Decision{State: StateDeniedRole, Redirect: t.PortalRoot}
	}
	if ownerOnly && !viewer.IsOwner(userType) {
		return Decision{State: StateDeniedOwner, Redirect: t.AdminRoot}
	}
	return Decision{State: StateAllowed}
}

// authenticate applies the checks shared by both guards.
// It reports settled=true when the decision is final without a role check.
func authenticate(s session.Session, location string, t Targets) (Decision, bool) {
	if s.IsLoading {
		return Decision{State: StateLoading}, true
	}
	if !s.IsAuthenticated {
		returnTo, ok := SafeReturnPath(location)
		if !ok {
			returnTo = ""
		}
		return Decision{
			State:    StateDeniedUnauth,
			Redirect: SignInURL(t.SignIn, returnTo),
			ReturnTo: returnTo,
		}, true
	}
	return Decision{}, false
}

// SignInURL builds the sign-in location carrying the return path.
func SignInURL(signIn, returnTo string) string {
	if returnTo == "" {
		return signIn
	}
	return signIn + "?" + ReturnParam + "=" + url.QueryEscape(returnTo)
}

// SafeReturnPath accepts only same-site absolute paths so a return location
// can never send the viewer to another host.
func SafeReturnPath(p string) (string, bool) {
	if p == "" || !strings.HasPrefix(p, "/") {
		return "", false
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "", false
	}
	if strings.ContainsAny(p, "\r\n") {
		return "", false
	}
	u, err := url.Parse(p)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "", false
	}
	return p, true
}

// Landing returns where a viewer goes after sign-in when no return path is
// stored: staff land on the admin root, everybody else on the portal.
func Landing(user *viewer.Profile, t Targets) string {
	if user != nil && viewer.HasAdminAccess(user.UserType) {
		return t.AdminRoot
	}
	return t.PortalRoot
}

// AfterSignIn picks the post-sign-in destination, honouring a stored return
// path only when the signed-in viewer could actually pass the guard there.
func AfterSignIn(s session.Session, returnTo string, t Targets) string {
	if p, ok := SafeReturnPath(returnTo); ok && p != t.SignIn && !strings.HasPrefix(p, t.SignIn+"?") {
		if isUnder(p, t.AdminRoot) {
			if Admin(s, p, false, t).Allowed() {
				return p
			}
		} else {
			return p
		}
	}
	return Landing(s.User, t)
}

func isUnder(p, root string) bool {
	path := p
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return path == root || strings.HasPrefix(path, root+"/")
}
