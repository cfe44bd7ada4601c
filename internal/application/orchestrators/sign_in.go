package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"fitrit/internal/adapters/clubflow"
	"fitrit/internal/domain/guard"
	"fitrit/internal/domain/session"
	"fitrit/internal/domain/viewer"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrServiceUnavailable = errors.New("sign-in is temporarily unavailable, please try again shortly")
	ErrUnsupportedAccount = errors.New("this account cannot sign in to the portal")
)

// SignInClient is the ClubFlow surface needed by sign-in.
type SignInClient interface {
	Login(ctx context.Context, email, password string) (clubflow.AuthResult, error)
}

// SignInSession is the Session Store surface needed by every sign-in flow.
type SignInSession interface {
	Login(ctx context.Context, user viewer.Profile, accessToken, refreshToken string) error
	TakeReturnTo() string
	Snapshot() session.Session
}

// SignInInput carries the submitted credentials.
type SignInInput struct {
	Email    string
	Password string
	// ReturnTo is the ?next= value the form was rendered with.
	ReturnTo string
}

// SignInResult says where to send the viewer next.
type SignInResult struct {
	Redirect string
	User     viewer.Profile
}

type SignInDeps struct {
	Client  SignInClient
	Session SignInSession
	Targets guard.Targets
}

// ExecuteSignIn authenticates against ClubFlow and signs the viewer in.
// PRE: deps are non-nil
// POST: On success the Session Store is authenticated and persisted;
// Redirect is the remembered return path if the viewer may reach it, else their landing screen
func ExecuteSignIn(ctx context.Context, input SignInInput, deps SignInDeps) (SignInResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return SignInResult{}, ErrInvalidCredentials
	}

	res, err := deps.Client.Login(ctx, email, input.Password)
	if err != nil {
		return SignInResult{}, classifyAuthError(email, "password", err)
	}
	return completeSignIn(ctx, email, "password", res, input.ReturnTo, deps.Session, deps.Targets)
}

// completeSignIn stores a ClubFlow session and resolves the post-sign-in redirect.
func completeSignIn(ctx context.Context, email, method string, res clubflow.AuthResult, returnTo string, s SignInSession, t guard.Targets) (SignInResult, error) {
	if err := res.User.Validate(); err != nil {
		slog.Warn("auth_event", "event", "login_rejected", "email", email, "method", method, "reason", err.Error())
		return SignInResult{}, ErrUnsupportedAccount
	}
	if err := s.Login(ctx, res.User, res.Access, res.Refresh); err != nil {
		slog.Error("auth_event", "event", "login_persist_failed", "email", email, "error", err)
		return SignInResult{}, err
	}

	remembered := s.TakeReturnTo()
	if returnTo == "" {
		returnTo = remembered
	}
	redirect := guard.AfterSignIn(s.Snapshot(), returnTo, t)

	slog.Info("auth_event", "event", "login_success", "email", email, "method", method, "user_type", res.User.UserType, "redirect", redirect)
	return SignInResult{Redirect: redirect, User: res.User}, nil
}

func classifyAuthError(email, method string, err error) error {
	switch {
	case errors.Is(err, clubflow.ErrInvalidCredentials):
		slog.Info("auth_event", "event", "login_failed", "email", email, "method", method, "reason", "invalid_credentials")
		return ErrInvalidCredentials
	case errors.Is(err, clubflow.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		slog.Warn("auth_event", "event", "login_failed", "email", email, "method", method, "reason", "unavailable", "error", err)
		return ErrServiceUnavailable
	default:
		slog.Error("auth_event", "event", "login_failed", "email", email, "method", method, "error", err)
		return err
	}
}
