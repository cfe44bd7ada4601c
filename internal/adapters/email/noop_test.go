package email

import (
	"context"
	"errors"
	"testing"
)

func TestNoopSenderRecords(t *testing.T) {
	s := NewNoopSender()
	r, err := s.Send(context.Background(), Message{To: []string{"studio@fitrit.test"}, Subject: "Hello"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if r.MessageID != "noop-1" {
		t.Errorf("MessageID = %q", r.MessageID)
	}
	if got := s.Sent(); len(got) != 1 || got[0].Subject != "Hello" {
		t.Errorf("Sent = %+v", got)
	}
}

func TestSendersRejectEmptyRecipients(t *testing.T) {
	senders := map[string]Sender{
		"noop":   NewNoopSender(),
		"resend": NewResendSender("re_test", "FitRit <hello@fitrit.test>"),
	}
	for name, s := range senders {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Send(context.Background(), Message{Subject: "x"}); !errors.Is(err, ErrNoRecipients) {
				t.Errorf("err = %v, want ErrNoRecipients", err)
			}
		})
	}
}
