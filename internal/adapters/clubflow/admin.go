package clubflow

import (
	"context"
	"net/http"
)

func (c *Client) Classes(ctx context.Context, ts TokenSource) ([]ClassSession, error) {
	var out []ClassSession
	err := c.doAuthed(ctx, ts, http.MethodGet, "/api/admin/classes/", nil, &out)
	return out, err
}

func (c *Client) Members(ctx context.Context, ts TokenSource) ([]MemberSummary, error) {
	var out []MemberSummary
	err := c.doAuthed(ctx, ts, http.MethodGet, "/api/admin/members/", nil, &out)
	return out, err
}

// Staff is owner-only on the ClubFlow side as well.
func (c *Client) Staff(ctx context.Context, ts TokenSource) ([]StaffMember, error) {
	var out []StaffMember
	err := c.doAuthed(ctx, ts, http.MethodGet, "/api/admin/staff/", nil, &out)
	return out, err
}

func (c *Client) ReportSummary(ctx context.Context, ts TokenSource) (ReportSummary, error) {
	var out ReportSummary
	err := c.doAuthed(ctx, ts, http.MethodGet, "/api/admin/reports/summary/", nil, &out)
	return out, err
}
