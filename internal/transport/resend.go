package transport

import (
	"context"
	"time"

	"github.com/resend/resend-go/v3"

	"contactrelay/internal/envelope"
)

// Resend delivers through the Resend HTTP API.
type Resend struct {
	client  *resend.Client
	timeout time.Duration
}

// NewResend returns a transport authenticated with apiKey.
func NewResend(apiKey string, timeout time.Duration) *Resend {
	return &Resend{client: resend.NewClient(apiKey), timeout: timeout}
}

func (r *Resend) Send(ctx context.Context, env *envelope.Envelope) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if _, err := r.client.Emails.SendWithContext(ctx, resendRequest(env)); err != nil {
		return &Error{Mode: "resend", Err: err}
	}
	return nil
}

func resendRequest(env *envelope.Envelope) *resend.SendEmailRequest {
	return &resend.SendEmailRequest{
		From:    env.From,
		To:      []string{env.To},
		Subject: env.Subject,
		Text:    env.Text,
		Html:    env.HTML,
		ReplyTo: env.ReplyTo,
	}
}
