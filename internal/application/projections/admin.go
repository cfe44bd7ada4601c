package projections

import (
	"context"
	"errors"
	"sort"
	"time"

	"fitrit/internal/adapters/clubflow"
	storageAudit "fitrit/internal/adapters/storage/audit"
	"fitrit/internal/application/listutil"
	"fitrit/internal/domain/audit"
)

// AdminClient is the ClubFlow surface the admin dashboard reads.
type AdminClient interface {
	Classes(ctx context.Context, ts clubflow.TokenSource) ([]clubflow.ClassSession, error)
	Members(ctx context.Context, ts clubflow.TokenSource) ([]clubflow.MemberSummary, error)
	Staff(ctx context.Context, ts clubflow.TokenSource) ([]clubflow.StaffMember, error)
	ReportSummary(ctx context.Context, ts clubflow.TokenSource) (clubflow.ReportSummary, error)
}

// AuditLister reads recent session events.
type AuditLister interface {
	List(ctx context.Context, filter storageAudit.Filter, limit int) ([]audit.Event, error)
}

// AdminHome is the staff dashboard.
type AdminHome struct {
	Today        []clubflow.ClassSession
	FullClasses  int
	MemberCount  int
	FrozenCount  int
	ShowsReports bool
}

// QueryAdminHome summarises today's timetable and the member list.
func QueryAdminHome(ctx context.Context, ts clubflow.TokenSource, client AdminClient, now time.Time, owner bool) (AdminHome, error) {
	classes, err := QuerySchedule(ctx, ts, client)
	if err != nil {
		return AdminHome{}, err
	}
	members, err := client.Members(ctx, ts)
	if err != nil {
		return AdminHome{}, err
	}

	home := AdminHome{MemberCount: len(members), ShowsReports: owner}
	y, m, d := now.Date()
	for _, c := range classes {
		if cy, cm, cd := c.StartsAt.In(now.Location()).Date(); cy == y && cm == m && cd == d {
			home.Today = append(home.Today, c)
		}
		if c.SpotsLeft() == 0 {
			home.FullClasses++
		}
	}
	for _, mem := range members {
		if mem.Status == clubflow.MembershipFrozen {
			home.FrozenCount++
		}
	}
	return home, nil
}

// QuerySchedule returns classes in start order.
func QuerySchedule(ctx context.Context, ts clubflow.TokenSource, client AdminClient) ([]clubflow.ClassSession, error) {
	classes, err := client.Classes(ctx, ts)
	if err != nil {
		return nil, err
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].StartsAt.Before(classes[j].StartsAt) })
	return classes, nil
}

// MemberSortColumns and MemberStatusFilters are the directory's accepted list controls.
var (
	MemberSortColumns   = []string{"name", "plan", "joined"}
	MemberStatusFilters = []string{clubflow.MembershipActive, clubflow.MembershipFrozen, clubflow.MembershipCancelled}
)

// MemberDirectory is one page of the searchable member list.
type MemberDirectory struct {
	Rows    []clubflow.MemberSummary
	Page    listutil.PageInfo
	Params  listutil.Params
	Filters []string
}

// PageURL links to page n of the directory with the current controls.
func (d MemberDirectory) PageURL(n int) string {
	return d.Params.PageURL("/admin/members", n)
}

func (d MemberDirectory) PrevPage() int { return d.Page.Page - 1 }
func (d MemberDirectory) NextPage() int { return d.Page.Page + 1 }

// QueryMembers searches, filters, sorts and pages the ClubFlow member list.
// PRE: p came from listutil.Parse with MemberSortColumns and MemberStatusFilters
// POST: rows are ordered by p.Sort (name by default) with ties broken by name
func QueryMembers(ctx context.Context, ts clubflow.TokenSource, client AdminClient, p listutil.Params) (MemberDirectory, error) {
	members, err := client.Members(ctx, ts)
	if err != nil {
		return MemberDirectory{}, err
	}

	matched := members[:0:0]
	for _, m := range members {
		if p.Filter != "" && m.Status != p.Filter {
			continue
		}
		if !p.Matches(m.FullName, m.Email, m.Plan) {
			continue
		}
		matched = append(matched, m)
	}

	less := func(a, b clubflow.MemberSummary) bool { return a.FullName < b.FullName }
	switch p.Sort {
	case "plan":
		less = func(a, b clubflow.MemberSummary) bool {
			if a.Plan != b.Plan {
				return a.Plan < b.Plan
			}
			return a.FullName < b.FullName
		}
	case "joined":
		less = func(a, b clubflow.MemberSummary) bool {
			if !a.JoinedOn.Equal(b.JoinedOn) {
				return a.JoinedOn.Before(b.JoinedOn)
			}
			return a.FullName < b.FullName
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if p.Desc {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	rows, info := listutil.Paginate(matched, p)
	return MemberDirectory{Rows: rows, Page: info, Params: p, Filters: MemberStatusFilters}, nil
}

// QueryStaff returns staff sorted by name.
func QueryStaff(ctx context.Context, ts clubflow.TokenSource, client AdminClient) ([]clubflow.StaffMember, error) {
	staff, err := client.Staff(ctx, ts)
	if err != nil {
		return nil, err
	}
	sort.Slice(staff, func(i, j int) bool { return staff[i].FullName < staff[j].FullName })
	return staff, nil
}

// Reports is the owner reports screen.
type Reports struct {
	Summary    clubflow.ReportSummary
	Revenue    string
	Attendance int // percent
	Activity   []audit.Event
}

const reportActivityLimit = 50

// QueryReports combines ClubFlow figures with recent portal sign-in activity.
// A nil audit lister yields no activity.
func QueryReports(ctx context.Context, ts clubflow.TokenSource, client AdminClient, events AuditLister) (Reports, error) {
	summary, err := client.ReportSummary(ctx, ts)
	if err != nil {
		return Reports{}, err
	}
	r := Reports{
		Summary:    summary,
		Revenue:    FormatMoney(summary.RevenueThisMonthCents, summary.Currency),
		Attendance: int(summary.AverageAttendance*100 + 0.5),
	}
	if events != nil {
		r.Activity, err = events.List(ctx, storageAudit.Filter{}, reportActivityLimit)
		if err != nil {
			return Reports{}, err
		}
	}
	return r, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, clubflow.ErrNotFound)
}
