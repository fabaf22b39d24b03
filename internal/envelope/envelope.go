// Package envelope turns a validated contact message into the outbound email
// addressed to the site owner.
package envelope

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/microcosm-cc/bluemonday"

	"contactrelay/internal/contact"
)

// SenderPolicy selects what goes into the From header.
type SenderPolicy string

const (
	// FromOwner sends as the owner and puts the visitor in Reply-To.
	FromOwner SenderPolicy = "owner"
	// FromSender sends with the visitor's raw address as From.
	FromSender SenderPolicy = "sender"
)

// DefaultSubject is used when the visitor left the subject empty. %s is the visitor's name.
const DefaultSubject = "New contact message from %s"

var ErrNoOwner = errors.New("envelope: owner address is required")

// Policy holds the relay-wide settings applied to every envelope.
type Policy struct {
	Owner     string // owner mailbox, always the recipient
	OwnerName string // optional display name for the From header under FromOwner
	Sender    SenderPolicy
}

// Envelope is the fully formed outbound email.
type Envelope struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

var strict = bluemonday.StrictPolicy()

// Build derives the envelope for msg. msg must already be validated.
func Build(msg contact.Message, p Policy) (*Envelope, error) {
	if p.Owner == "" {
		return nil, ErrNoOwner
	}

	env := &Envelope{
		To:      p.Owner,
		Subject: msg.Subject,
		Text:    textBody(msg),
		HTML:    htmlBody(msg),
	}
	if env.Subject == "" {
		env.Subject = fmt.Sprintf(DefaultSubject, msg.Name)
	}

	switch p.Sender {
	case FromSender:
		env.From = msg.Email
	case FromOwner, "":
		env.From = p.Owner
		if p.OwnerName != "" {
			env.From = (&mail.Address{Name: p.OwnerName, Address: p.Owner}).String()
		}
		env.ReplyTo = msg.Email
	default:
		return nil, fmt.Errorf("envelope: unknown sender policy %q", p.Sender)
	}

	return env, nil
}

func textBody(msg contact.Message) string {
	var b strings.Builder
	b.WriteString("New contact form submission:\n\n")
	b.WriteString("Name: " + msg.Name + "\n")
	b.WriteString("Email: " + msg.Email + "\n")
	if msg.Subject != "" {
		b.WriteString("Subject: " + msg.Subject + "\n")
	}
	b.WriteString("\nMessage:\n" + msg.Message + "\n")
	return b.String()
}

func htmlBody(msg contact.Message) string {
	field := func(label, value string) string {
		return "<p><strong>" + label + ":</strong> " + strict.Sanitize(value) + "</p>\n"
	}

	var b strings.Builder
	b.WriteString("<h2>New contact form submission</h2>\n")
	b.WriteString(field("Name", msg.Name))
	b.WriteString(field("Email", msg.Email))
	if msg.Subject != "" {
		b.WriteString(field("Subject", msg.Subject))
	}
	body := strings.ReplaceAll(strict.Sanitize(msg.Message), "\n", "<br>\n")
	b.WriteString("<p><strong>Message:</strong></p>\n<p>" + body + "</p>\n")
	return b.String()
}

// Email renders the envelope as a MIME message. Each call returns a new value,
// so pooled connections never share headers between requests.
func (e *Envelope) Email() *email.Email {
	m := email.NewEmail()
	m.From = e.From
	m.To = []string{e.To}
	if e.ReplyTo != "" {
		m.ReplyTo = []string{e.ReplyTo}
	}
	m.Subject = e.Subject
	m.Text = []byte(e.Text)
	if e.HTML != "" {
		m.HTML = []byte(e.HTML)
	}
	return m
}
