package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/sync/singleflight"

	"fitrit/internal/adapters/http/middleware"
	"fitrit/internal/domain/session"
	"fitrit/internal/domain/ui"
	"fitrit/internal/domain/viewer"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed content/*.md
var contentFS embed.FS

//go:embed static
var staticFS embed.FS

// mdRenderer is a goldmark instance configured for safe HTML output.
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Screen load outcomes reported to the metrics observer.
const (
	loadReady     = "ready"
	loadSuspended = "suspended"
	loadFailed    = "failed"
)

// ScreenObserver counts lazy screen loads.
type ScreenObserver interface {
	ObserveScreenLoad(screen, outcome string)
}

// screenSource names the files one screen is built from.
type screenSource struct {
	template string // under templates/, rendered inside layout.html
	markdown string // optional, under content/
}

var screenSources = map[string]screenSource{
	"home":              {template: "page.html", markdown: "home.md"},
	"classes":           {template: "page.html", markdown: "classes.md"},
	"pricing":           {template: "page.html", markdown: "pricing.md"},
	"about":             {template: "page.html", markdown: "about.md"},
	"contact":           {template: "contact.html"},
	"login":             {template: "login.html"},
	"forgot_password":   {template: "forgot_password.html"},
	"not_found":         {template: "not_found.html"},
	"error":             {template: "error.html"},
	"portal_home":       {template: "portal_home.html"},
	"portal_bookings":   {template: "portal_bookings.html"},
	"portal_membership": {template: "portal_membership.html"},
	"portal_invoices":   {template: "portal_invoices.html"},
	"portal_profile":    {template: "portal_profile.html"},
	"admin_home":        {template: "admin_home.html"},
	"admin_schedule":    {template: "admin_schedule.html"},
	"admin_members":     {template: "admin_members.html"},
	"admin_staff":       {template: "admin_staff.html"},
	"admin_reports":     {template: "admin_reports.html"},
	"admin_settings":    {template: "admin_settings.html"},
}

// screen is a parsed template set, plus rendered markdown for content pages.
type screen struct {
	name string
	tpl  *template.Template
	body template.HTML
}

// screenLoader parses screens on first use. Concurrent first requests for the
// same screen share one parse.
// INVARIANT: a parse is never cancelled by the request that started it
type screenLoader struct {
	threshold time.Duration
	observer  ScreenObserver
	group     singleflight.Group
	parse     func(name string) (*screen, error)

	mu     sync.RWMutex
	loaded map[string]*screen
}

func newScreenLoader(threshold time.Duration, observer ScreenObserver) *screenLoader {
	return &screenLoader{
		threshold: threshold,
		observer:  observer,
		parse:     parseScreen,
		loaded:    make(map[string]*screen),
	}
}

// Load returns the named screen. ready is false when the parse did not finish
// within the suspense threshold; the parse carries on and a retry will find it.
func (l *screenLoader) Load(ctx context.Context, name string) (sc *screen, ready bool, err error) {
	l.mu.RLock()
	sc, ok := l.loaded[name]
	l.mu.RUnlock()
	if ok {
		return sc, true, nil
	}

	ch := l.group.DoChan(name, func() (any, error) {
		sc, err := l.parse(name)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.loaded[name] = sc
		l.mu.Unlock()
		return sc, nil
	})

	var timeout <-chan time.Time
	if l.threshold > 0 {
		t := time.NewTimer(l.threshold)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			l.observe(name, loadFailed)
			return nil, false, res.Err
		}
		l.observe(name, loadReady)
		return res.Val.(*screen), true, nil
	case <-timeout:
		l.observe(name, loadSuspended)
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (l *screenLoader) observe(name, outcome string) {
	if l.observer != nil {
		l.observer.ObserveScreenLoad(name, outcome)
	}
}

var templateFuncs = template.FuncMap{
	"date":      func(t time.Time) string { return t.Format("Mon 2 Jan 2006") },
	"datetime":  func(t time.Time) string { return t.Format("Mon 2 Jan, 15:04") },
	"tier":      func(userType string) string { return viewer.TierOf(userType).String() },
	"hasPrefix": strings.HasPrefix,
}

func parseScreen(name string) (*screen, error) {
	src, ok := screenSources[name]
	if !ok {
		return nil, fmt.Errorf("unknown screen %q", name)
	}
	tpl, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS,
		"templates/layout.html", path.Join("templates", src.template))
	if err != nil {
		return nil, fmt.Errorf("parse screen %s: %w", name, err)
	}
	sc := &screen{name: name, tpl: tpl}
	if src.markdown != "" {
		md, err := fs.ReadFile(contentFS, path.Join("content", src.markdown))
		if err != nil {
			return nil, fmt.Errorf("read page %s: %w", name, err)
		}
		var buf bytes.Buffer
		if err := mdRenderer.Convert(md, &buf); err != nil {
			return nil, fmt.Errorf("render page %s: %w", name, err)
		}
		sc.body = template.HTML(buf.String())
	}
	return sc, nil
}

// newLoadingScreen parses the shared loading screen eagerly so it is always
// available to guards and to suspended screen loads.
func newLoadingScreen() (http.Handler, error) {
	tpl, err := template.ParseFS(templateFS, "templates/loading.html")
	if err != nil {
		return nil, fmt.Errorf("parse loading screen: %w", err)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Retry-After", "1")
		if err := tpl.Execute(w, nil); err != nil {
			slog.Error("render_error", "screen", "loading", "error", err)
		}
	}), nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

// pageData is what every screen template receives.
type pageData struct {
	Title         string
	Path          string
	User          *viewer.Profile
	IsStaff       bool
	IsOwner       bool
	UI            ui.State
	CSRFField     template.HTML
	GoogleEnabled bool
	Error         string
	Notice        string
	Body          template.HTML
	Data          any
}

// page builds the common template data for the requesting viewer.
func (s *Server) page(r *http.Request, title string) pageData {
	d := pageData{
		Title:         title,
		Path:          r.URL.Path,
		CSRFField:     csrf.TemplateField(r),
		GoogleEnabled: s.deps.Google != nil,
	}
	if v, ok := middleware.ViewerFromContext(r.Context()); ok {
		snap := v.Session.Snapshot()
		d.UI = v.UI.Snapshot()
		if snap.IsAuthenticated && snap.User != nil {
			d.User = snap.User
			d.IsStaff = viewer.HasAdminAccess(snap.User.UserType)
			d.IsOwner = viewer.IsOwner(snap.User.UserType)
		}
	}
	return d
}

// screen fetches a parsed screen, writing the loading screen or an error
// itself when the screen is not ready.
func (s *Server) screen(w http.ResponseWriter, r *http.Request, name string) (*screen, bool) {
	sc, ready, err := s.screens.Load(r.Context(), name)
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		return nil, false
	case err != nil:
		internalError(w, err)
		return nil, false
	case !ready:
		s.loading.ServeHTTP(w, r)
		return nil, false
	}
	return sc, true
}

// write executes a screen into a buffer first so a template error never
// produces a half-written page.
func (s *Server) write(w http.ResponseWriter, sc *screen, status int, data pageData) {
	if sc.body != "" {
		data.Body = sc.body
	}
	var buf bytes.Buffer
	if err := sc.tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", sc.name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// render loads and writes a screen in one step, for handlers with no remote data.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int, data pageData) {
	sc, ok := s.screen(w, r, name)
	if !ok {
		return
	}
	s.write(w, sc, status, data)
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// snapshotOf returns the requesting viewer's session.
func snapshotOf(r *http.Request) session.Session {
	if v, ok := middleware.ViewerFromContext(r.Context()); ok {
		return v.Session.Snapshot()
	}
	return session.SignedOut()
}
