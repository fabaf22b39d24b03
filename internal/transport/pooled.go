package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jordan-wright/email"

	"contactrelay/internal/envelope"
	"contactrelay/internal/logging"
)

const defaultPoolTimeout = 30 * time.Second

// Pooled reuses up to size SMTP connections across requests. Each Send renders
// a new message, so nothing from one visitor survives on a shared connection.
type Pooled struct {
	opts SMTPOptions
	pool *email.Pool
	log  logging.Logger
}

// NewPooled opens a connection pool to opts. Implicit TLS is not supported by the pool.
func NewPooled(opts SMTPOptions, size int, log logging.Logger) (*Pooled, error) {
	if log == nil {
		log = logging.Nop()
	}
	if size <= 0 {
		return nil, errors.New("pool size must be positive")
	}

	var (
		pool *email.Pool
		err  error
	)
	switch opts.TLS {
	case TLSStartTLS, "":
		pool, err = email.NewPool(opts.addr(), size, opts.auth(), opts.tlsConfig())
	case TLSNone:
		pool, err = email.NewPool(opts.addr(), size, opts.auth())
	default:
		return nil, fmt.Errorf("pooled transport does not support tls mode %q", opts.TLS)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp pool: %w", err)
	}

	return &Pooled{opts: opts, pool: pool, log: log}, nil
}

func (p *Pooled) Send(ctx context.Context, env *envelope.Envelope) error {
	timeout := p.opts.Timeout
	if timeout <= 0 {
		timeout = defaultPoolTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	p.log.Debug(ctx, "Sending through pooled SMTP connection", "host", p.opts.Host, "port", p.opts.Port)

	if err := p.pool.Send(env.Email(), timeout); err != nil {
		return &Error{Mode: "smtp-pool", Addr: p.opts.addr(), Err: err}
	}
	return nil
}

// Close shuts down every pooled connection.
func (p *Pooled) Close() error {
	p.pool.Close()
	return nil
}
