// Package submit implements the client side of the contact form: it owns one
// form's validate, send and report lifecycle and allows at most one request
// in flight.
package submit

import (
	"context"
	"errors"
	"sync"

	"contactrelay/internal/contact"
	"contactrelay/internal/logging"
)

// Outcome summarises what a call to Submit did.
type Outcome int

const (
	// Ignored means a request was already in flight; nothing happened.
	Ignored Outcome = iota
	// Invalid means required fields were empty; no request was made.
	Invalid
	// Sent means the relay accepted the message.
	Sent
	// NotSent means the request failed or the relay reported failure.
	NotSent
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Invalid:
		return "invalid"
	case Sent:
		return "sent"
	case NotSent:
		return "not sent"
	}
	return "unknown"
}

// NoticeKind distinguishes success from failure notifications.
type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota + 1
	NoticeFailure
)

// Notice is a notification to show the user.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Notification texts.
const (
	TextSent        = "Message sent successfully"
	TextFailed      = "Message failed, please try again"
	TextServerError = "Server error, please try again later"
)

// Snapshot is a consistent copy of a controller's state, suitable for Render.
type Snapshot struct {
	Status  Status
	Form    contact.Message
	Invalid []contact.Field
	Notice  *Notice
}

// Controller owns a single form. Each rendered form gets its own Controller.
type Controller struct {
	mu      sync.Mutex
	status  Status
	form    contact.Message
	invalid []contact.Field
	notice  *Notice

	sender Sender
	log    logging.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for debug output.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New returns a controller in the Idle state delivering through sender.
func New(sender Sender, opts ...Option) *Controller {
	c := &Controller{sender: sender, log: logging.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Status:  c.status,
		Form:    c.form,
		Invalid: append([]contact.Field(nil), c.invalid...),
		Notice:  c.notice,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.State
}

// SetField records user input in field f. Like any interaction it dismisses
// a finished submission's notification.
func (c *Controller) SetField(f contact.Field, v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rearm()
	c.form = c.form.Set(f, v)
	c.invalid = without(c.invalid, f)
}

// Touch records a user interaction that does not change any field.
func (c *Controller) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rearm()
}

// Submit validates raw and, if every required field is present, sends it.
// It blocks until the request completes. While a request is in flight every
// other call returns Ignored without side effects.
func (c *Controller) Submit(ctx context.Context, raw contact.Message) (Outcome, error) {
	c.mu.Lock()
	if c.status.State == Sending {
		c.mu.Unlock()
		c.log.Debug(ctx, "Submission ignored, request in flight")
		return Ignored, nil
	}

	c.rearm()
	c.form = raw

	msg, err := contact.Validate(raw)
	if err != nil {
		var verr *contact.ValidationError
		if errors.As(err, &verr) {
			c.invalid = verr.Invalid()
		}
		c.mu.Unlock()
		c.log.Debug(ctx, "Submission blocked by validation", "error", err.Error())
		return Invalid, err
	}

	c.invalid = nil
	c.moveTo(Status{State: Sending})
	c.mu.Unlock()

	c.log.Debug(ctx, "Sending contact message", "email", msg.Email, "message_length", len(msg.Message))
	sendErr := c.sender.Send(ctx, msg)

	c.mu.Lock()
	defer c.mu.Unlock()

	if sendErr != nil {
		text := TextFailed
		if errors.Is(sendErr, ErrNetwork) {
			text = TextServerError
		}
		c.moveTo(Status{State: Failed, Reason: sendErr.Error()})
		c.notice = &Notice{Kind: NoticeFailure, Text: text}
		c.log.Debug(ctx, "Submission failed", "error", sendErr.Error())
		return NotSent, sendErr
	}

	c.moveTo(Status{State: Succeeded})
	c.notice = &Notice{Kind: NoticeSuccess, Text: TextSent}
	c.form = contact.Message{}
	return Sent, nil
}

// rearm returns a finished submission to Idle. Caller holds mu.
func (c *Controller) rearm() {
	switch c.status.State {
	case Succeeded, Failed:
		c.moveTo(Status{State: Idle})
		c.notice = nil
	}
}

// moveTo applies a transition. Caller holds mu.
func (c *Controller) moveTo(next Status) {
	if !c.status.State.CanTransition(next.State) {
		panic("submit: illegal transition " + c.status.State.String() + " -> " + next.State.String())
	}
	c.status = next
}

func without(fields []contact.Field, f contact.Field) []contact.Field {
	out := fields[:0:0]
	for _, x := range fields {
		if x != f {
			out = append(out, x)
		}
	}
	return out
}
