package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"fitrit/internal/application/viewerstate"
	"fitrit/internal/domain/audit"
)

// AuditSaver persists audit events.
type AuditSaver interface {
	Save(ctx context.Context, event audit.Event) error
}

// SessionEventCounter counts session events by kind.
type SessionEventCounter interface {
	ObserveSessionEvent(kind string)
}

// SessionAuditor returns an observer that records sign-in, sign-out and
// profile changes. Hydration and token refreshes are counted, not audited.
func SessionAuditor(store AuditSaver, counter SessionEventCounter) viewerstate.Observer {
	return func(ev viewerstate.Event) {
		if counter != nil {
			counter.ObserveSessionEvent(string(ev.Kind))
		}
		e, ok := auditEventFor(ev)
		if !ok || store == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := store.Save(ctx, e); err != nil {
			slog.Error("audit_event", "event", "save_failed", "action", e.Action, "error", err)
		}
	}
}

func auditEventFor(ev viewerstate.Event) (audit.Event, bool) {
	var action audit.Action
	var desc string
	subject := ev.Current.User

	switch ev.Kind {
	case viewerstate.EventLogin:
		action, desc = audit.ActionSignIn, "signed in"
	case viewerstate.EventLogout:
		if !ev.Previous.IsAuthenticated {
			return audit.Event{}, false
		}
		action, desc, subject = audit.ActionSignOut, "signed out", ev.Previous.User
	case viewerstate.EventUserUpdated:
		action, desc = audit.ActionProfileUpdate, "updated profile"
	case viewerstate.EventCleared:
		action, desc, subject = audit.ActionStorageClear, "cleared stored session", ev.Previous.User
	default:
		return audit.Event{}, false
	}

	e := audit.NewEvent(ev.ViewerID, action).WithDescription(desc)
	if subject != nil {
		e = e.WithUser(subject.ID, subject.Email, subject.UserType)
	}
	return e, true
}
