package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"fitrit/internal/application/viewerstate"
)

// ViewerCookieName identifies the browser tab's viewer.
const ViewerCookieName = "fitrit_viewer"

// viewerCookieMaxAge keeps the viewer id across browser restarts.
const viewerCookieMaxAge = 180 * 24 * 60 * 60

type contextKey string

const viewerContextKey contextKey = "viewer"

// ViewerResolver returns the live stores for a viewer id.
type ViewerResolver interface {
	Get(id string) *viewerstate.Viewer
}

// Viewer attaches the requesting viewer's stores to the context, issuing a
// viewer cookie on first visit.
// POST: every request downstream has a viewer in context
func Viewer(reg ViewerResolver, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(ViewerCookieName); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				setViewerCookie(w, id, secure)
			}
			v := reg.Get(id)
			next.ServeHTTP(w, r.WithContext(ContextWithViewer(r.Context(), v)))
		})
	}
}

// setViewerCookie is Lax so the viewer survives the top-level redirect back from Google.
func setViewerCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     ViewerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   viewerCookieMaxAge,
	})
}

// ViewerFromContext returns the viewer set by Viewer.
func ViewerFromContext(ctx context.Context) (*viewerstate.Viewer, bool) {
	v, ok := ctx.Value(viewerContextKey).(*viewerstate.Viewer)
	return v, ok && v != nil
}

// ContextWithViewer returns a context carrying v. Used by Viewer and tests.
func ContextWithViewer(ctx context.Context, v *viewerstate.Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey, v)
}
