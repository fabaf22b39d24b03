package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/mrz1836/postmark"

	"contactrelay/internal/envelope"
)

const postmarkTag = "contact-form"

// Postmark delivers through the Postmark transactional API.
type Postmark struct {
	client  *postmark.Client
	timeout time.Duration
}

// NewPostmark returns a transport authenticated with the server token.
func NewPostmark(serverToken string, timeout time.Duration) *Postmark {
	return &Postmark{client: postmark.NewClient(serverToken, ""), timeout: timeout}
}

func (p *Postmark) Send(ctx context.Context, env *envelope.Envelope) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.client.SendEmail(ctx, postmarkEmail(env))
	if err != nil {
		return &Error{Mode: "postmark", Err: err}
	}
	if resp.ErrorCode > 0 {
		return &Error{Mode: "postmark", Err: fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message)}
	}
	return nil
}

func postmarkEmail(env *envelope.Envelope) postmark.Email {
	return postmark.Email{
		From:     env.From,
		To:       env.To,
		ReplyTo:  env.ReplyTo,
		Subject:  env.Subject,
		TextBody: env.Text,
		HTMLBody: env.HTML,
		Tag:      postmarkTag,
	}
}
