// Package clubflow is a client for the ClubFlow REST API, the backend that
// owns scheduling, billing and authentication for the studio.
package clubflow

import (
	"time"

	"fitrit/internal/domain/viewer"
)

// AuthResult is returned by the login and social sign-in endpoints.
type AuthResult struct {
	User    viewer.Profile `json:"user"`
	Access  string         `json:"access"`
	Refresh string         `json:"refresh"`
}

// TokenPair is returned by the refresh endpoint. Refresh is empty unless rotated.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Booking statuses.
const (
	BookingBooked     = "booked"
	BookingWaitlisted = "waitlisted"
	BookingAttended   = "attended"
	BookingCancelled  = "cancelled"
)

type Booking struct {
	ID               string    `json:"id"`
	ClassName        string    `json:"class_name"`
	StartsAt         time.Time `json:"starts_at"`
	Instructor       string    `json:"instructor"`
	Status           string    `json:"status"`
	WaitlistPosition int       `json:"waitlist_position,omitempty"`
}

// Membership statuses.
const (
	MembershipActive    = "active"
	MembershipFrozen    = "frozen"
	MembershipCancelled = "cancelled"
)

type Membership struct {
	Plan             string    `json:"plan"`
	Status           string    `json:"status"`
	RenewsOn         time.Time `json:"renews_on"`
	ClassesRemaining *int      `json:"classes_remaining"`
	PriceCents       int       `json:"price_cents"`
	Currency         string    `json:"currency"`
}

// Invoice statuses.
const (
	InvoicePaid    = "paid"
	InvoiceDue     = "due"
	InvoiceOverdue = "overdue"
)

type Invoice struct {
	ID          string    `json:"id"`
	Number      string    `json:"number"`
	IssuedOn    time.Time `json:"issued_on"`
	AmountCents int       `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
}

// ClassSession is one scheduled class on the admin timetable.
type ClassSession struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Instructor      string    `json:"instructor"`
	Capacity        int       `json:"capacity"`
	Booked          int       `json:"booked"`
}

// SpotsLeft returns remaining capacity, never negative.
func (c ClassSession) SpotsLeft() int {
	if c.Booked >= c.Capacity {
		return 0
	}
	return c.Capacity - c.Booked
}

type MemberSummary struct {
	ID       string    `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Plan     string    `json:"plan"`
	Status   string    `json:"status"`
	JoinedOn time.Time `json:"joined_on"`
}

type StaffMember struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	UserType  string `json:"user_type"`
	IsTrainer bool   `json:"is_trainer"`
}

// ReportSummary is the owner dashboard headline figures.
type ReportSummary struct {
	ActiveMembers         int     `json:"active_members"`
	NewMembersThisMonth   int     `json:"new_members_this_month"`
	ClassesThisWeek       int     `json:"classes_this_week"`
	AverageAttendance     float64 `json:"average_attendance"`
	RevenueThisMonthCents int     `json:"revenue_this_month_cents"`
	Currency              string  `json:"currency"`
}

// ProfileUpdate is the body of PATCH /api/me/. Nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName       *string `json:"first_name,omitempty"`
	FullName        *string `json:"full_name,omitempty"`
	ProfilePhotoURL *string `json:"profile_photo_url,omitempty"`
}
