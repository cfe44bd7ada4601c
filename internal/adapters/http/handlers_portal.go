package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"fitrit/internal/adapters/clubflow"
	"fitrit/internal/adapters/http/middleware"
	"fitrit/internal/application/orchestrators"
	"fitrit/internal/application/projections"
	"fitrit/internal/application/viewerstate"
	"fitrit/internal/domain/viewer"
)

// guardedViewer returns the viewer behind a guarded route. Guards have
// already refused requests without one.
func guardedViewer(w http.ResponseWriter, r *http.Request) (*viewerstate.Viewer, bool) {
	v, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		internalError(w, errors.New("guarded route without viewer"))
	}
	return v, ok
}

// clubflowFailure turns a failed ClubFlow read into a response.
// A rejected refresh means the ClubFlow session is gone: the viewer is signed
// out here and sent back to sign-in, returning to this screen afterwards.
func (s *Server) clubflowFailure(w http.ResponseWriter, r *http.Request, v *viewerstate.Viewer, err error) {
	switch {
	case errors.Is(err, clubflow.ErrUnauthorized):
		slog.Info("auth_event", "event", "session_expired", "viewer_id", v.ID, "path", r.URL.Path)
		if err := v.Session.Logout(r.Context()); err != nil {
			internalError(w, err)
			return
		}
		v.Session.SetReturnTo(r.URL.RequestURI())
		http.Redirect(w, r, s.targets.SignIn+"?error=expired", http.StatusSeeOther)
	case errors.Is(err, clubflow.ErrForbidden):
		d := s.page(r, "Not available")
		d.Error = "Your account no longer has access to this screen. Sign out and back in to refresh your permissions."
		s.render(w, r, "error", http.StatusForbidden, d)
	case errors.Is(err, clubflow.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		slog.Warn("clubflow_unavailable", "path", r.URL.Path, "error", err)
		d := s.page(r, "Temporarily unavailable")
		d.Error = "We could not reach the booking system. Please try again in a minute."
		s.render(w, r, "error", http.StatusServiceUnavailable, d)
	case errors.Is(err, context.Canceled):
	default:
		internalError(w, err)
	}
}

// guardedScreen is the shared shape of read-only portal and admin screens:
// load the template, query ClubFlow, render.
func (s *Server) guardedScreen(name, title string, query func(ctx context.Context, v *viewerstate.Viewer) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := guardedViewer(w, r)
		if !ok {
			return
		}
		sc, ok := s.screen(w, r, name)
		if !ok {
			return
		}
		data, err := query(r.Context(), v)
		if err != nil {
			s.clubflowFailure(w, r, v, err)
			return
		}
		d := s.page(r, title)
		d.Data = data
		s.write(w, sc, http.StatusOK, d)
	}
}

func (s *Server) handlePortalHome(w http.ResponseWriter, r *http.Request) {
	s.guardedScreen("portal_home", "My studio", func(ctx context.Context, v *viewerstate.Viewer) (any, error) {
		return projections.QueryPortalHome(ctx, v.Session, s.deps.ClubFlow, s.deps.Now())
	})(w, r)
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	s.guardedScreen("portal_bookings", "My bookings", func(ctx context.Context, v *viewerstate.Viewer) (any, error) {
		return projections.QueryBookings(ctx, v.Session, s.deps.ClubFlow, s.deps.Now())
	})(w, r)
}

func (s *Server) handleMembership(w http.ResponseWriter, r *http.Request) {
	s.guardedScreen("portal_membership", "My membership", func(ctx context.Context, v *viewerstate.Viewer) (any, error) {
		return projections.QueryMembership(ctx, v.Session, s.deps.ClubFlow)
	})(w, r)
}

func (s *Server) handleInvoices(w http.ResponseWriter, r *http.Request) {
	s.guardedScreen("portal_invoices", "Invoices", func(ctx context.Context, v *viewerstate.Viewer) (any, error) {
		return projections.QueryInvoices(ctx, v.Session, s.deps.ClubFlow)
	})(w, r)
}

func (s *Server) handleProfileForm(w http.ResponseWriter, r *http.Request) {
	d := s.page(r, "My profile")
	if r.URL.Query().Get("saved") == "1" {
		d.Notice = "Profile saved."
	}
	s.render(w, r, "portal_profile", http.StatusOK, d)
}

// handleProfile handles POST /portal/profile
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	v, ok := guardedViewer(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	input := orchestrators.UpdateProfileInput{
		FirstName:  r.FormValue("FirstName"),
		FullName:   r.FormValue("FullName"),
		PhotoURL:   r.FormValue("PhotoURL"),
		ClearPhoto: r.FormValue("ClearPhoto") == "on",
	}
	deps := orchestrators.UpdateProfileDeps{
		Client:  s.deps.ClubFlow,
		Session: v.Session,
	}

	_, err := orchestrators.ExecuteUpdateProfile(r.Context(), input, deps)
	switch {
	case err == nil:
		http.Redirect(w, r, s.targets.PortalRoot+"/profile?saved=1", http.StatusSeeOther)
	case errors.Is(err, viewer.ErrEmptyPatch):
		http.Redirect(w, r, s.targets.PortalRoot+"/profile", http.StatusSeeOther)
	case errors.Is(err, viewer.ErrNameTooLong), errors.Is(err, viewer.ErrInvalidPhotoURL):
		d := s.page(r, "My profile")
		d.Error = err.Error()
		s.render(w, r, "portal_profile", http.StatusUnprocessableEntity, d)
	case errors.Is(err, orchestrators.ErrNotSignedIn):
		http.Redirect(w, r, s.targets.SignIn, http.StatusSeeOther)
	default:
		var apiErr *clubflow.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			d := s.page(r, "My profile")
			d.Error = apiErr.Detail
			s.render(w, r, "portal_profile", http.StatusUnprocessableEntity, d)
			return
		}
		s.clubflowFailure(w, r, v, err)
	}
}
