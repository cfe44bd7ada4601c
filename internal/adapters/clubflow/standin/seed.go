package standin

import (
	"time"

	"fitrit/internal/adapters/clubflow"
	"fitrit/internal/domain/viewer"
)

func seedProfiles() []viewer.Profile {
	return []viewer.Profile{
		{ID: "usr-member", Email: "member@fitrit.test", FirstName: "Maya", FullName: "Maya Member", UserType: viewer.TypeCustomer},
		{ID: "usr-trainer", Email: "trainer@fitrit.test", FirstName: "Theo", FullName: "Theo Trainer", UserType: viewer.TypeStaff, IsTrainer: true},
		{ID: "usr-frontdesk", Email: "frontdesk@fitrit.test", FirstName: "Fran", FullName: "Fran Desk", UserType: viewer.TypeStaff},
		{ID: "usr-manager", Email: "manager@fitrit.test", FirstName: "Mo", FullName: "Mo Manager", UserType: viewer.TypeManager},
		{ID: "usr-admin", Email: "admin@fitrit.test", FirstName: "Ada", FullName: "Ada Admin", UserType: viewer.TypeAdmin},
	}
}

type fixtures struct {
	bookings   map[string][]clubflow.Booking
	membership map[string]clubflow.Membership
	invoices   map[string][]clubflow.Invoice
	classes    []clubflow.ClassSession
	members    []clubflow.MemberSummary
	report     clubflow.ReportSummary
}

func seedFixtures(now time.Time) fixtures {
	day := now.UTC().Truncate(24 * time.Hour)
	at := func(days, hour int) time.Time {
		return day.AddDate(0, 0, days).Add(time.Duration(hour) * time.Hour)
	}
	ten := 10

	classes := []clubflow.ClassSession{
		{ID: "cls-1", Name: "Reformer Pilates", StartsAt: at(1, 7), DurationMinutes: 50, Instructor: "Theo Trainer", Capacity: 12, Booked: 12},
		{ID: "cls-2", Name: "Strength Foundations", StartsAt: at(1, 18), DurationMinutes: 60, Instructor: "Theo Trainer", Capacity: 16, Booked: 9},
		{ID: "cls-3", Name: "HIIT Express", StartsAt: at(2, 12), DurationMinutes: 30, Instructor: "Fran Desk", Capacity: 20, Booked: 14},
		{ID: "cls-4", Name: "Mobility Flow", StartsAt: at(3, 19), DurationMinutes: 45, Instructor: "Theo Trainer", Capacity: 14, Booked: 5},
	}

	return fixtures{
		bookings: map[string][]clubflow.Booking{
			"usr-member": {
				{ID: "bk-1", ClassName: "Reformer Pilates", StartsAt: at(1, 7), Instructor: "Theo Trainer", Status: clubflow.BookingWaitlisted, WaitlistPosition: 2},
				{ID: "bk-2", ClassName: "Strength Foundations", StartsAt: at(1, 18), Instructor: "Theo Trainer", Status: clubflow.BookingBooked},
				{ID: "bk-3", ClassName: "HIIT Express", StartsAt: at(-2, 12), Instructor: "Fran Desk", Status: clubflow.BookingAttended},
			},
		},
		membership: map[string]clubflow.Membership{
			"usr-member": {Plan: "10-Class Pack", Status: clubflow.MembershipActive, RenewsOn: at(21, 0), ClassesRemaining: &ten, PriceCents: 18000, Currency: "NZD"},
		},
		invoices: map[string][]clubflow.Invoice{
			"usr-member": {
				{ID: "inv-2", Number: "FR-1042", IssuedOn: at(-9, 0), AmountCents: 18000, Currency: "NZD", Status: clubflow.InvoiceDue},
				{ID: "inv-1", Number: "FR-0987", IssuedOn: at(-39, 0), AmountCents: 18000, Currency: "NZD", Status: clubflow.InvoicePaid},
			},
		},
		classes: classes,
		members: []clubflow.MemberSummary{
			{ID: "usr-member", FullName: "Maya Member", Email: "member@fitrit.test", Plan: "10-Class Pack", Status: clubflow.MembershipActive, JoinedOn: at(-120, 0)},
			{ID: "usr-m2", FullName: "Sam Squat", Email: "sam@fitrit.test", Plan: "Unlimited Monthly", Status: clubflow.MembershipFrozen, JoinedOn: at(-300, 0)},
			{ID: "usr-m3", FullName: "Priya Plank", Email: "priya@fitrit.test", Plan: "Unlimited Monthly", Status: clubflow.MembershipActive, JoinedOn: at(-12, 0)},
		},
		report: clubflow.ReportSummary{
			ActiveMembers:         2,
			NewMembersThisMonth:   1,
			ClassesThisWeek:       len(classes),
			AverageAttendance:     0.71,
			RevenueThisMonthCents: 54000,
			Currency:              "NZD",
		},
	}
}
