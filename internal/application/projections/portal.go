package projections

import (
	"context"
	"sort"
	"time"

	"fitrit/internal/adapters/clubflow"
)

// PortalClient is the ClubFlow surface the member portal reads.
type PortalClient interface {
	Bookings(ctx context.Context, ts clubflow.TokenSource) ([]clubflow.Booking, error)
	Membership(ctx context.Context, ts clubflow.TokenSource) (clubflow.Membership, error)
	Invoices(ctx context.Context, ts clubflow.TokenSource) ([]clubflow.Invoice, error)
}

// PortalHome is the member dashboard.
type PortalHome struct {
	NextBooking   *clubflow.Booking
	UpcomingCount int
	Waitlisted    int
	Membership    *clubflow.Membership
	AmountDue     string
}

// BookingLists splits bookings into upcoming and past.
type BookingLists struct {
	Upcoming []clubflow.Booking
	Past     []clubflow.Booking
}

// QueryBookings sorts the member's bookings around now.
// POST: Upcoming ascending by start, Past descending; cancelled bookings are dropped
func QueryBookings(ctx context.Context, ts clubflow.TokenSource, client PortalClient, now time.Time) (BookingLists, error) {
	all, err := client.Bookings(ctx, ts)
	if err != nil {
		return BookingLists{}, err
	}
	var out BookingLists
	for _, b := range all {
		if b.Status == clubflow.BookingCancelled {
			continue
		}
		if b.StartsAt.After(now) {
			out.Upcoming = append(out.Upcoming, b)
		} else {
			out.Past = append(out.Past, b)
		}
	}
	sort.Slice(out.Upcoming, func(i, j int) bool { return out.Upcoming[i].StartsAt.Before(out.Upcoming[j].StartsAt) })
	sort.Slice(out.Past, func(i, j int) bool { return out.Past[i].StartsAt.After(out.Past[j].StartsAt) })
	return out, nil
}

// QueryPortalHome assembles the dashboard. A member without a plan gets a nil Membership.
func QueryPortalHome(ctx context.Context, ts clubflow.TokenSource, client PortalClient, now time.Time) (PortalHome, error) {
	lists, err := QueryBookings(ctx, ts, client, now)
	if err != nil {
		return PortalHome{}, err
	}
	var home PortalHome
	for i, b := range lists.Upcoming {
		if b.Status == clubflow.BookingWaitlisted {
			home.Waitlisted++
			continue
		}
		if home.NextBooking == nil {
			home.NextBooking = &lists.Upcoming[i]
		}
		home.UpcomingCount++
	}

	m, err := client.Membership(ctx, ts)
	switch {
	case err == nil:
		home.Membership = &m
	case !isNotFound(err):
		return PortalHome{}, err
	}

	invoices, err := client.Invoices(ctx, ts)
	if err != nil {
		return PortalHome{}, err
	}
	due, currency := 0, ""
	for _, inv := range invoices {
		if inv.Status != clubflow.InvoicePaid {
			due += inv.AmountCents
			currency = inv.Currency
		}
	}
	if due > 0 {
		home.AmountDue = FormatMoney(due, currency)
	}
	return home, nil
}

// InvoiceRow is one line of the invoices table.
type InvoiceRow struct {
	clubflow.Invoice
	Amount string
}

// QueryInvoices returns invoices newest first with formatted amounts.
func QueryInvoices(ctx context.Context, ts clubflow.TokenSource, client PortalClient) ([]InvoiceRow, error) {
	invoices, err := client.Invoices(ctx, ts)
	if err != nil {
		return nil, err
	}
	sort.Slice(invoices, func(i, j int) bool { return invoices[i].IssuedOn.After(invoices[j].IssuedOn) })
	rows := make([]InvoiceRow, len(invoices))
	for i, inv := range invoices {
		rows[i] = InvoiceRow{Invoice: inv, Amount: FormatMoney(inv.AmountCents, inv.Currency)}
	}
	return rows, nil
}

// MembershipView is the membership screen.
type MembershipView struct {
	Membership *clubflow.Membership
	Price      string
	CanFreeze  bool
}

func QueryMembership(ctx context.Context, ts clubflow.TokenSource, client PortalClient) (MembershipView, error) {
	m, err := client.Membership(ctx, ts)
	if err != nil {
		if isNotFound(err) {
			return MembershipView{}, nil
		}
		return MembershipView{}, err
	}
	return MembershipView{
		Membership: &m,
		Price:      FormatMoney(m.PriceCents, m.Currency),
		CanFreeze:  m.Status == clubflow.MembershipActive,
	}, nil
}
