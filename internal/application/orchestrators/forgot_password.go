package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"fitrit/internal/adapters/clubflow"
)

// PasswordResetClient asks ClubFlow to send a reset email.
type PasswordResetClient interface {
	RequestPasswordReset(ctx context.Context, email string) error
}

// ExecuteForgotPassword requests a reset link. The outcome is the same whether
// or not the address has an account.
// POST: returns ErrServiceUnavailable only when ClubFlow cannot be reached
func ExecuteForgotPassword(ctx context.Context, addr string, client PasswordResetClient) error {
	addr = strings.TrimSpace(addr)
	if !strings.Contains(addr, "@") {
		return ErrEnquiryEmail
	}
	err := client.RequestPasswordReset(ctx, addr)
	switch {
	case err == nil:
		slog.Info("auth_event", "event", "password_reset_requested")
		return nil
	case errors.Is(err, clubflow.ErrUnavailable):
		return ErrServiceUnavailable
	default:
		// Validation or lookup errors are not shown, so the form cannot be used to probe for accounts.
		slog.Warn("auth_event", "event", "password_reset_failed", "error", err)
		return nil
	}
}
