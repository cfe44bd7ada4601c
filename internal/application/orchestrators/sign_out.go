package orchestrators

import (
	"context"
	"log/slog"
)

// SignOutClient revokes the refresh token with ClubFlow.
type SignOutClient interface {
	Logout(ctx context.Context, access, refresh string) error
}

// SignOutSession is the Session Store surface needed by sign-out.
type SignOutSession interface {
	Tokens() (access, refresh string)
	Logout(ctx context.Context) error
}

// UIResetter clears ephemeral chrome state.
type UIResetter interface {
	Reset()
}

type SignOutDeps struct {
	Client  SignOutClient // optional: nil skips remote revocation
	Session SignOutSession
	UI      UIResetter // optional
}

// ExecuteSignOut ends the viewer's session. Safe to call when already signed out.
// POST: Session Store is signed out and durable entries are removed
// INVARIANT: a failed remote revocation never keeps the viewer signed in
func ExecuteSignOut(ctx context.Context, viewerID string, deps SignOutDeps) error {
	revoke(ctx, viewerID, deps.Client, deps.Session)
	if err := deps.Session.Logout(ctx); err != nil {
		return err
	}
	if deps.UI != nil {
		deps.UI.Reset()
	}
	slog.Info("auth_event", "event", "logout", "viewer_id", viewerID)
	return nil
}

// ForgetBrowserSession is the Session Store surface needed to forget a browser.
type ForgetBrowserSession interface {
	Tokens() (access, refresh string)
	ClearStorage(ctx context.Context) error
}

type ForgetBrowserDeps struct {
	Client  SignOutClient // optional: nil skips remote revocation
	Session ForgetBrowserSession
	UI      UIResetter // optional
}

// ExecuteForgetBrowser signs the viewer out and wipes everything stored for
// this browser, not only the session keys.
// POST: Session Store is signed out and the viewer has no durable entries
func ExecuteForgetBrowser(ctx context.Context, viewerID string, deps ForgetBrowserDeps) error {
	revoke(ctx, viewerID, deps.Client, deps.Session)
	if err := deps.Session.ClearStorage(ctx); err != nil {
		return err
	}
	if deps.UI != nil {
		deps.UI.Reset()
	}
	slog.Info("auth_event", "event", "storage_cleared", "viewer_id", viewerID)
	return nil
}

// revoke asks ClubFlow to drop the refresh token. Failure is logged only.
func revoke(ctx context.Context, viewerID string, client SignOutClient, s interface{ Tokens() (string, string) }) {
	access, refresh := s.Tokens()
	if client == nil || refresh == "" {
		return
	}
	if err := client.Logout(ctx, access, refresh); err != nil {
		slog.Warn("auth_event", "event", "revoke_failed", "viewer_id", viewerID, "error", err)
	}
}
