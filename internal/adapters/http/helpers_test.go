package web

import (
	"context"
	"database/sql"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"fitrit/internal/adapters/clubflow"
	"fitrit/internal/adapters/clubflow/standin"
	"fitrit/internal/adapters/email"
	"fitrit/internal/adapters/http/middleware"
	"fitrit/internal/adapters/storage"
	auditStore "fitrit/internal/adapters/storage/audit"
	"fitrit/internal/adapters/storage/clientstorage"
	"fitrit/internal/adapters/telemetry"
	"fitrit/internal/application/orchestrators"
	"fitrit/internal/application/viewerstate"
	"fitrit/internal/config"
)

// testApp is a portal server wired to an in-process ClubFlow stand-in.
type testApp struct {
	srv      *httptest.Server
	web      *Server
	viewers  *viewerstate.Registry
	clubflow *standin.Server
	mail     *email.NoopSender
	audit    auditStore.Store
	metrics  *telemetry.Metrics
	storage  clientstorage.Store
}

// testOptions adjusts a testApp before the server is built.
type testOptions struct {
	storage  func(clientstorage.Store) clientstorage.Store
	deps     func(*Deps)
	clubflow []clubflow.Option
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, testOptions{})
}

func newTestAppWith(t *testing.T, opts testOptions) *testApp {
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

	cf, err := standin.New(standin.Options{})
	if err != nil {
		t.Fatalf("standin: %v", err)
	}
	cfSrv := httptest.NewServer(cf.Handler())
	t.Cleanup(cfSrv.Close)

	app := &testApp{
		clubflow: cf,
		mail:     email.NewNoopSender(),
		audit:    auditStore.NewSQLiteStore(db),
		storage:  clientstorage.NewSQLiteStore(db),
	}
	viewerStorage := app.storage
	if opts.storage != nil {
		viewerStorage = opts.storage(app.storage)
	}
	var reg *viewerstate.Registry
	app.metrics = telemetry.NewMetrics(func() int { return reg.Len() })
	auditor := orchestrators.SessionAuditor(app.audit, app.metrics)
	reg = viewerstate.NewRegistry(viewerStorage, viewerstate.Options{
		HydrationTimeout: time.Second,
		OnCreate:         func(v *viewerstate.Viewer) { v.Session.Subscribe(auditor) },
	})
	app.viewers = reg

	cfg := config.Default()
	cfg.Session.SuspenseThreshold = 0
	cfg.Security.LoginRateLimit = 100
	deps := Deps{
		Config:   cfg,
		Viewers:  reg,
		ClubFlow: clubflow.New(cfSrv.URL, append([]clubflow.Option{clubflow.WithObserver(app.metrics)}, opts.clubflow...)...),
		Email:    app.mail,
		Audit:    app.audit,
		Metrics:  app.metrics,
		Ready:    func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if opts.deps != nil {
		opts.deps(&deps)
	}

	app.web, err = New(deps)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	app.srv = httptest.NewServer(app.web.Handler())
	t.Cleanup(app.srv.Close)
	return app
}

// browser is one cookie jar: one viewer.
type browser struct {
	t      *testing.T
	app    *testApp
	client *http.Client
}

func (a *testApp) newBrowser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &browser{
		t:   t,
		app: a,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// settle makes a first request so the viewer exists, then waits for hydration.
func (b *browser) settle() *viewerstate.Viewer {
	b.t.Helper()
	b.get("/")
	v := b.viewer()
	select {
	case <-v.Session.Hydrated():
	case <-time.After(2 * time.Second):
		b.t.Fatal("viewer did not hydrate")
	}
	return v
}

func (b *browser) viewer() *viewerstate.Viewer {
	b.t.Helper()
	u, _ := url.Parse(b.app.srv.URL)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == middleware.ViewerCookieName {
			return b.app.viewers.Get(c.Value)
		}
	}
	b.t.Fatal("no viewer cookie")
	return nil
}

type response struct {
	status   int
	location string
	body     string
	header   http.Header
}

func (b *browser) do(req *http.Request) response {
	b.t.Helper()
	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return response{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		body:     string(body),
		header:   resp.Header,
	}
}

func (b *browser) get(path string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.app.srv.URL+path, nil)
	if err != nil {
		b.t.Fatal(err)
	}
	return b.do(req)
}

var csrfFieldPattern = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

// post submits a form the way a browser would: the CSRF token comes from a
// page rendered for this viewer.
func (b *browser) post(path string, form url.Values) response {
	b.t.Helper()
	page := b.get("/contact")
	m := csrfFieldPattern.FindStringSubmatch(page.body)
	if m == nil {
		b.t.Fatalf("no csrf token on page (status %d)", page.status)
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("gorilla.csrf.Token", html.UnescapeString(m[1]))
	req, err := http.NewRequest(http.MethodPost, b.app.srv.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		b.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) signIn(email string) response {
	b.t.Helper()
	return b.post("/login", url.Values{"Email": {email}, "Password": {standin.DevPassword}})
}

// gatedStorage blocks every Load until release is closed, like a stalled
// durable store.
type gatedStorage struct {
	clientstorage.Store
	release chan struct{}
}

func (g *gatedStorage) Load(ctx context.Context, viewerID string, keys ...string) (map[string]string, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.Store.Load(ctx, viewerID, keys...)
}
