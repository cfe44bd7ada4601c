package orchestrators

import (
	"context"
	"testing"

	"fitrit/internal/domain/audit"
	"fitrit/internal/domain/viewer"
)

type memAudit struct{ events []audit.Event }

func (m *memAudit) Save(_ context.Context, e audit.Event) error {
	m.events = append(m.events, e)
	return nil
}

type kindCounter map[string]int

func (k kindCounter) ObserveSessionEvent(kind string) { k[kind]++ }

func TestSessionAuditor(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	store := &memAudit{}
	counts := kindCounter{}
	s.Subscribe(SessionAuditor(store, counts))

	_ = s.Logout(ctx) // signed out already: counted, not audited
	_ = s.Login(ctx, profile(viewer.TypeStaff), "a", "r")
	name := "Renamed"
	_ = s.UpdateUser(ctx, viewer.Patch{FirstName: &name})
	_ = s.RefreshAccess(ctx, "a2", "")
	_ = s.Logout(ctx)

	want := []audit.Action{audit.ActionSignIn, audit.ActionProfileUpdate, audit.ActionSignOut}
	if len(store.events) != len(want) {
		t.Fatalf("audited %d events, want %d", len(store.events), len(want))
	}
	for i, a := range want {
		if store.events[i].Action != a {
			t.Errorf("event %d = %s, want %s", i, store.events[i].Action, a)
		}
	}
	if store.events[2].UserEmail != "staff@fitrit.test" {
		t.Errorf("sign-out subject = %q", store.events[2].UserEmail)
	}
	if counts["logout"] != 2 || counts["token_refreshed"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
