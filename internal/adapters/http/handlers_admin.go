package web

import (
	"context"
	"net/http"

	"fitrit/internal/application/listutil"
	"fitrit/internal/application/projections"
	"fitrit/internal/application/viewerstate"
	"fitrit/internal/domain/viewer"
)

func (s *Server) handleAdminHome(w http.ResponseWriter, r *http.Request) {
	s.guardedScreen("admin_home", "Dashboard", func(ctx context.Context, v *viewerstate.Viewer) (any, error) {
		owner := viewer.IsOwner(v.Session.Snapshot().UserType())
		return projections.QueryAdminHome(ctx, v.Session, s.deps.ClubFlow, s.deps.Now(), owner)
	})(w, r)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	s.guardedScreen("admin_schedule", "Schedule", func(ctx context.Context, v *viewerstate.Viewer) (any, error) {
		return projections.QuerySchedule(ctx, v.Session, s.deps.ClubFlow)
	})(w, r)
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	s.guardedScreen("admin_members", "Members", func(ctx context.Context, v *viewerstate.Viewer) (any, error) {
		p := listutil.Parse(r.URL.Query(), projections.MemberSortColumns, projections.MemberStatusFilters)
		return projections.QueryMembers(ctx, v.Session, s.deps.ClubFlow, p)
	})(w, r)
}

func (s *Server) handleStaff(w http.ResponseWriter, r *http.Request) {
	s.guardedScreen("admin_staff", "Staff", func(ctx context.Context, v *viewerstate.Viewer) (any, error) {
		return projections.QueryStaff(ctx, v.Session, s.deps.ClubFlow)
	})(w, r)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	s.guardedScreen("admin_reports", "Reports", func(ctx context.Context, v *viewerstate.Viewer) (any, error) {
		return projections.QueryReports(ctx, v.Session, s.deps.ClubFlow, s.deps.Audit)
	})(w, r)
}

// settingsView lists the portal's effective settings. Secrets are reported as set or unset only.
type settingsView struct {
	Env               string
	StorageBackend    string
	ClubFlowURL       string
	HydrationTimeout  string
	SuspenseThreshold string
	IdleTTL           string
	GoogleEnabled     bool
	EmailEnabled      bool
	StudioInbox       string
	TracingEnabled    bool
	ActiveViewers     int
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	c := s.deps.Config
	clubflowURL := c.ClubFlow.BaseURL
	if clubflowURL == "" {
		clubflowURL = "in-process stand-in"
	}
	d := s.page(r, "Settings")
	d.Data = settingsView{
		Env:               c.Env,
		StorageBackend:    c.Storage.Backend,
		ClubFlowURL:       clubflowURL,
		HydrationTimeout:  c.Session.HydrationTimeout.String(),
		SuspenseThreshold: c.Session.SuspenseThreshold.String(),
		IdleTTL:           c.Session.IdleTTL.String(),
		GoogleEnabled:     c.Google.Enabled(),
		EmailEnabled:      c.Email.ResendKey != "",
		StudioInbox:       c.Email.StudioInbox,
		TracingEnabled:    c.OTLP.Endpoint != "",
		ActiveViewers:     s.deps.Viewers.Len(),
	}
	s.render(w, r, "admin_settings", http.StatusOK, d)
}
