package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"os"
	"time"

	"github.com/jordan-wright/email"

	"contactrelay/internal/envelope"
	"contactrelay/internal/logging"
)

// TLSMode selects how the SMTP connection is secured.
type TLSMode string

const (
	TLSStartTLS TLSMode = "starttls"
	TLSImplicit TLSMode = "tls"
	TLSNone     TLSMode = "none"
)

// SMTPOptions describes an authenticated SMTP endpoint.
type SMTPOptions struct {
	Host     string
	Port     string
	TLS      TLSMode
	Username string
	Password string // empty disables AUTH
	Timeout  time.Duration
}

func (o SMTPOptions) addr() string { return net.JoinHostPort(o.Host, o.Port) }

func (o SMTPOptions) auth() smtp.Auth {
	if o.Password == "" {
		return nil
	}
	return smtp.PlainAuth("", o.Username, o.Password, o.Host)
}

func (o SMTPOptions) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName: o.Host,
		MinVersion: tls.VersionTLS12,
	}
}

// SMTP dials a fresh connection for every envelope.
type SMTP struct {
	opts SMTPOptions
	log  logging.Logger
}

// NewSMTP returns a transport delivering through opts.
func NewSMTP(opts SMTPOptions, log logging.Logger) *SMTP {
	if log == nil {
		log = logging.Nop()
	}
	return &SMTP{opts: opts, log: log}
}

func (s *SMTP) Send(ctx context.Context, env *envelope.Envelope) error {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	s.log.Debug(ctx, "Initiating SMTP connection",
		"host", s.opts.Host,
		"port", s.opts.Port,
		"tls", string(s.opts.TLS))

	if err := s.deliver(ctx, env.Email()); err != nil {
		return &Error{Mode: "smtp", Addr: s.opts.addr(), Err: err}
	}
	return nil
}

// deliver runs one SMTP session for e. The connection carries ctx's deadline
// and is cut when ctx ends, so an expired attempt cannot complete later.
func (s *SMTP) deliver(ctx context.Context, e *email.Email) error {
	switch s.opts.TLS {
	case TLSStartTLS, TLSImplicit, TLSNone, "":
	default:
		return fmt.Errorf("unsupported tls mode %q", s.opts.TLS)
	}

	from, to, err := addresses(e)
	if err != nil {
		return err
	}
	raw, err := e.Bytes()
	if err != nil {
		return err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.opts.addr())
	if err != nil {
		return withCause(ctx, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	return withCause(ctx, s.session(conn, from, to, raw))
}

// withCause marks err with the context error when the attempt was cut short.
func withCause(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func (s *SMTP) session(conn net.Conn, from string, to []string, raw []byte) error {
	if s.opts.TLS == TLSImplicit {
		conn = tls.Client(conn, s.opts.tlsConfig())
	}

	c, err := smtp.NewClient(conn, s.opts.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if err := c.Hello("localhost"); err != nil {
		return err
	}
	if s.opts.TLS == TLSStartTLS || s.opts.TLS == "" {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(s.opts.tlsConfig()); err != nil {
				return err
			}
		}
	}
	if auth := s.opts.auth(); auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// addresses returns the bare envelope sender and recipients of e.
func addresses(e *email.Email) (string, []string, error) {
	sender := e.Sender
	if sender == "" {
		sender = e.From
	}
	from, err := mail.ParseAddress(sender)
	if err != nil {
		return "", nil, fmt.Errorf("invalid sender: %w", err)
	}

	var to []string
	for _, list := range [][]string{e.To, e.Cc, e.Bcc} {
		for _, full := range list {
			addr, err := mail.ParseAddress(full)
			if err != nil {
				return "", nil, fmt.Errorf("invalid recipient: %w", err)
			}
			to = append(to, addr.Address)
		}
	}
	if len(to) == 0 {
		return "", nil, errors.New("no recipients")
	}
	return from.Address, to, nil
}
