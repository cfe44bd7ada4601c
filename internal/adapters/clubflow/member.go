package clubflow

import (
	"context"
	"net/http"

	"fitrit/internal/domain/viewer"
)

// Bookings lists the signed-in member's bookings.
func (c *Client) Bookings(ctx context.Context, ts TokenSource) ([]Booking, error) {
	var out []Booking
	err := c.doAuthed(ctx, ts, http.MethodGet, "/api/me/bookings/", nil, &out)
	return out, err
}

// Membership returns the signed-in member's plan.
func (c *Client) Membership(ctx context.Context, ts TokenSource) (Membership, error) {
	var out Membership
	err := c.doAuthed(ctx, ts, http.MethodGet, "/api/me/membership/", nil, &out)
	return out, err
}

// Invoices lists the signed-in member's invoices, newest first.
func (c *Client) Invoices(ctx context.Context, ts TokenSource) ([]Invoice, error) {
	var out []Invoice
	err := c.doAuthed(ctx, ts, http.MethodGet, "/api/me/invoices/", nil, &out)
	return out, err
}

// UpdateProfile patches the signed-in user's profile and returns the stored result.
func (c *Client) UpdateProfile(ctx context.Context, ts TokenSource, update ProfileUpdate) (viewer.Profile, error) {
	var out viewer.Profile
	err := c.doAuthed(ctx, ts, http.MethodPatch, "/api/me/", update, &out)
	return out, err
}
