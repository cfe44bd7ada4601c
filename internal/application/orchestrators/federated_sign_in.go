package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"fitrit/internal/adapters/clubflow"
	"fitrit/internal/adapters/google"
	"fitrit/internal/domain/guard"
)

var (
	ErrGoogleDisabled = errors.New("google sign-in is not configured")
	ErrGoogleDenied   = errors.New("google sign-in was cancelled")
	ErrGoogleFailed   = errors.New("google sign-in could not be completed")
)

// GoogleProvider runs the OIDC code flow.
type GoogleProvider interface {
	AuthCodeURL(c google.Challenge) string
	Exchange(ctx context.Context, code string, c google.Challenge) (google.Identity, error)
}

// ChallengeKeeper holds in-flight challenges between redirect and callback.
type ChallengeKeeper interface {
	Put(c google.Challenge)
	Take(state, viewerID string) (google.Challenge, error)
}

// GoogleSignInClient exchanges a verified ID token with ClubFlow.
type GoogleSignInClient interface {
	LoginWithGoogle(ctx context.Context, idToken string) (clubflow.AuthResult, error)
}

type BeginGoogleSignInInput struct {
	ViewerID string
	ReturnTo string
}

type GoogleSignInDeps struct {
	Provider   GoogleProvider // nil when Google sign-in is not configured
	Challenges ChallengeKeeper
	Client     GoogleSignInClient
	Session    SignInSession
	Targets    guard.Targets
}

// ExecuteBeginGoogleSignIn starts a sign-in and returns the consent URL.
// POST: a single-use challenge bound to the viewer is pending
func ExecuteBeginGoogleSignIn(input BeginGoogleSignInInput, deps GoogleSignInDeps) (string, error) {
	if deps.Provider == nil {
		return "", ErrGoogleDisabled
	}
	returnTo, ok := guard.SafeReturnPath(input.ReturnTo)
	if !ok {
		returnTo = ""
	}
	c := google.NewChallenge(input.ViewerID, returnTo)
	deps.Challenges.Put(c)
	slog.Info("auth_event", "event", "google_started", "viewer_id", input.ViewerID)
	return deps.Provider.AuthCodeURL(c), nil
}

type CompleteGoogleSignInInput struct {
	ViewerID string
	State    string
	Code     string
	// Error is the error parameter Google returns on denial.
	Error string
}

// ExecuteCompleteGoogleSignIn finishes the flow on the callback.
// PRE: input comes from the callback query
// POST: On success the Session Store is authenticated and persisted
func ExecuteCompleteGoogleSignIn(ctx context.Context, input CompleteGoogleSignInInput, deps GoogleSignInDeps) (SignInResult, error) {
	if deps.Provider == nil {
		return SignInResult{}, ErrGoogleDisabled
	}
	c, err := deps.Challenges.Take(input.State, input.ViewerID)
	if err != nil {
		slog.Info("auth_event", "event", "google_failed", "viewer_id", input.ViewerID, "reason", "unknown_state")
		return SignInResult{}, ErrGoogleFailed
	}
	if input.Error != "" {
		slog.Info("auth_event", "event", "google_denied", "viewer_id", input.ViewerID, "reason", input.Error)
		return SignInResult{}, ErrGoogleDenied
	}
	if input.Code == "" {
		return SignInResult{}, ErrGoogleFailed
	}

	id, err := deps.Provider.Exchange(ctx, input.Code, c)
	if err != nil {
		slog.Warn("auth_event", "event", "google_failed", "viewer_id", input.ViewerID, "error", err)
		return SignInResult{}, ErrGoogleFailed
	}

	res, err := deps.Client.LoginWithGoogle(ctx, id.RawIDToken)
	if err != nil {
		return SignInResult{}, classifyAuthError(id.Email, "google", err)
	}
	return completeSignIn(ctx, id.Email, "google", res, c.ReturnTo, deps.Session, deps.Targets)
}
