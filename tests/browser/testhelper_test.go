package browser_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	_ "modernc.org/sqlite"

	"fitrit/internal/adapters/clubflow"
	"fitrit/internal/adapters/clubflow/standin"
	"fitrit/internal/adapters/email"
	"fitrit/internal/adapters/google"
	web "fitrit/internal/adapters/http"
	"fitrit/internal/adapters/storage"
	auditStore "fitrit/internal/adapters/storage/audit"
	"fitrit/internal/adapters/storage/clientstorage"
	"fitrit/internal/adapters/telemetry"
	"fitrit/internal/application/orchestrators"
	"fitrit/internal/application/viewerstate"
	"fitrit/internal/config"
)

// testApp holds the running portal, its ClubFlow stand-in and Playwright handles.
type testApp struct {
	BaseURL  string
	DB       *sql.DB
	Server   *http.Server
	ClubFlow *standin.Server
	Viewers  *viewerstate.Registry
	Mail     *email.NoopSender
	PW       *playwright.Playwright
	Browser  playwright.Browser
}

// newTestApp creates a fully wired portal with a temp SQLite DB and starts an HTTP server.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	cf, err := standin.New(standin.Options{})
	if err != nil {
		t.Fatalf("failed to start ClubFlow stand-in: %v", err)
	}
	cfSrv := httptest.NewServer(cf.Handler())

	var viewers *viewerstate.Registry
	metrics := telemetry.NewMetrics(func() int { return viewers.Len() })
	audits := auditStore.NewSQLiteStore(db)
	auditor := orchestrators.SessionAuditor(audits, metrics)
	viewers = viewerstate.NewRegistry(clientstorage.NewSQLiteStore(db), viewerstate.Options{
		HydrationTimeout: 2 * time.Second,
		OnCreate:         func(v *viewerstate.Viewer) { v.Session.Subscribe(auditor) },
	})

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	cfg := config.Default()
	cfg.Security.LoginRateLimit = 100
	cfg.Security.TrustedOrigins = []string{fmt.Sprintf("127.0.0.1:%d", port), fmt.Sprintf("localhost:%d", port)}
	mail := email.NewNoopSender()
	srv, err := web.New(web.Deps{
		Config:     cfg,
		Viewers:    viewers,
		ClubFlow:   clubflow.New(cfSrv.URL),
		Challenges: google.NewChallengeStore(),
		Email:      mail,
		Audit:      audits,
		Metrics:    metrics,
	})
	if err != nil {
		t.Fatalf("failed to build portal: %v", err)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: srv.Handler(),
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	app := &testApp{
		BaseURL:  baseURL,
		DB:       db,
		Server:   httpSrv,
		ClubFlow: cf,
		Viewers:  viewers,
		Mail:     mail,
		PW:       pw,
		Browser:  browser,
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		httpSrv.Shutdown(context.Background())
		cfSrv.Close()
		db.Close()
	})

	return app
}

// newPage opens a tab in a fresh browser context, so every page is its own viewer.
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	bctx, err := a.Browser.NewContext()
	if err != nil {
		t.Fatalf("failed to create browser context: %v", err)
	}
	t.Cleanup(func() { bctx.Close() })
	page, err := bctx.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	return page
}

// navigate navigates and waits until the page is no longer the loading screen.
func (a *testApp) navigate(t *testing.T, page playwright.Page, path string) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + path); err != nil {
		t.Fatalf("failed to navigate to %s: %v", path, err)
	}
	waitPastLoading(t, page)
}

func waitPastLoading(t *testing.T, page playwright.Page) {
	t.Helper()
	err := page.Locator("[data-testid=loading]").WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateDetached,
		Timeout: playwright.Float(5000),
	})
	if err != nil {
		t.Fatalf("page stuck on loading screen: %v", err)
	}
}

// signIn fills the sign-in form on the current page as a seeded account.
func (a *testApp) signIn(t *testing.T, page playwright.Page, email string) {
	t.Helper()
	if err := page.Locator("input[name=Email]").Fill(email); err != nil {
		t.Fatalf("failed to fill email: %v", err)
	}
	if err := page.Locator("input[name=Password]").Fill(standin.DevPassword); err != nil {
		t.Fatalf("failed to fill password: %v", err)
	}
	if err := page.Locator("[data-testid=login-form] button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to submit sign-in: %v", err)
	}
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	}); err != nil {
		t.Fatalf("sign-in did not settle: %v", err)
	}
	waitPastLoading(t, page)
}

// pathOf returns the path and query of the page's current URL.
func (a *testApp) pathOf(page playwright.Page) string {
	return page.URL()[len(a.BaseURL):]
}
