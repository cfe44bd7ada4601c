package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"fitrit/internal/adapters/email"
)

const maxEnquiryLength = 4000

// Enquiry topics offered on the contact form.
var EnquiryTopics = []string{"general", "memberships", "personal-training", "corporate"}

var (
	ErrEnquiryName    = errors.New("please tell us your name")
	ErrEnquiryEmail   = errors.New("please enter a valid email address")
	ErrEnquiryMessage = errors.New("please enter a message")
	ErrEnquiryTooLong = errors.New("message is too long")
	ErrEnquiryTopic   = errors.New("please choose a topic")
)

type ContactInput struct {
	Name    string
	Email   string
	Topic   string
	Message string
}

type ContactDeps struct {
	Sender      email.Sender
	StudioInbox string
}

// ExecuteContactEnquiry validates a contact-form submission and emails it to the studio.
// PRE: deps.StudioInbox is a valid address
// POST: studio receives the enquiry with reply-to set to the sender
func ExecuteContactEnquiry(ctx context.Context, input ContactInput, deps ContactDeps) error {
	name := strings.TrimSpace(input.Name)
	from := strings.TrimSpace(input.Email)
	body := strings.TrimSpace(input.Message)
	switch {
	case name == "":
		return ErrEnquiryName
	case !strings.Contains(from, "@") || strings.ContainsAny(from, "\r\n <>"):
		return ErrEnquiryEmail
	case body == "":
		return ErrEnquiryMessage
	case len(body) > maxEnquiryLength:
		return ErrEnquiryTooLong
	}
	if !validTopic(input.Topic) {
		return ErrEnquiryTopic
	}

	_, err := deps.Sender.Send(ctx, email.Message{
		To:      []string{deps.StudioInbox},
		Subject: fmt.Sprintf("[%s] Enquiry from %s", input.Topic, name),
		HTML: fmt.Sprintf("<p><strong>%s</strong> &lt;%s&gt; wrote:</p><p>%s</p>",
			html.EscapeString(name), html.EscapeString(from),
			strings.ReplaceAll(html.EscapeString(body), "\n", "<br>")),
		Text:    fmt.Sprintf("%s <%s> wrote:\n\n%s\n", name, from, body),
		ReplyTo: from,
		Tags:    map[string]string{"category": "enquiry", "topic": input.Topic},
	})
	if err != nil {
		slog.Error("contact_event", "event", "send_failed", "topic", input.Topic, "error", err)
		return err
	}
	slog.Info("contact_event", "event", "enquiry_sent", "topic", input.Topic)
	return nil
}

func validTopic(t string) bool {
	for _, v := range EnquiryTopics {
		if v == t {
			return true
		}
	}
	return false
}
