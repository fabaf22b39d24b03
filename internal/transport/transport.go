// Package transport delivers a built envelope to the owner's mailbox through
// an SMTP server or a mail provider API. Every Send is a single attempt.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contactrelay/internal/config"
	"contactrelay/internal/envelope"
	"contactrelay/internal/logging"
)

// Transport performs one delivery attempt for env.
type Transport interface {
	Send(ctx context.Context, env *envelope.Envelope) error
}

// Closer is implemented by transports that hold long-lived connections.
type Closer interface {
	Close() error
}

var (
	// ErrDelivery is matched by every *Error.
	ErrDelivery       = errors.New("delivery failed")
	ErrUnknownMode    = errors.New("unknown transport mode")
	ErrUnknownService = errors.New("unknown smtp service")
)

// Error is returned when a delivery attempt fails. It carries the full cause;
// callers log it and must not forward it to the visitor.
type Error struct {
	Mode string
	Addr string
	Err  error
}

func (e *Error) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("transport %s (%s): %v", e.Mode, e.Addr, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Mode, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrDelivery }

// New builds the transport selected by cfg.Transport.Mode.
func New(cfg *config.Config, log logging.Logger) (Transport, error) {
	if log == nil {
		log = logging.Nop()
	}
	tc := cfg.Transport

	switch tc.Mode {
	case config.ModeService, config.ModeHostPort:
		opts, err := smtpOptions(cfg)
		if err != nil {
			return nil, err
		}
		if tc.PoolSize > 0 {
			return NewPooled(opts, tc.PoolSize, log)
		}
		return NewSMTP(opts, log), nil
	case config.ModeResend:
		return NewResend(tc.APIKey, tc.Timeout), nil
	case config.ModePostmark:
		return NewPostmark(tc.APIKey, tc.Timeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, tc.Mode)
	}
}

func smtpOptions(cfg *config.Config) (SMTPOptions, error) {
	tc := cfg.Transport
	opts := SMTPOptions{
		Host:     tc.Host,
		Port:     tc.Port,
		TLS:      TLSMode(tc.TLS),
		Username: tc.AuthUser,
		Password: cfg.Owner.Password,
		Timeout:  tc.Timeout,
	}
	if opts.Username == "" {
		opts.Username = cfg.Owner.Address
	}

	if tc.Mode == config.ModeService {
		svc, ok := LookupService(tc.Service)
		if !ok {
			return opts, fmt.Errorf("%w: %q", ErrUnknownService, tc.Service)
		}
		opts.Host, opts.Port, opts.TLS = svc.Host, svc.Port, svc.TLS
	}
	if opts.TLS == "" {
		opts.TLS = TLSStartTLS
	}
	return opts, nil
}

// Service is a well-known provider reachable by a shorthand name.
type Service struct {
	Host string
	Port string
	TLS  TLSMode
}

var services = map[string]Service{
	"gmail":     {Host: "smtp.gmail.com", Port: "587", TLS: TLSStartTLS},
	"outlook":   {Host: "smtp-mail.outlook.com", Port: "587", TLS: TLSStartTLS},
	"hotmail":   {Host: "smtp-mail.outlook.com", Port: "587", TLS: TLSStartTLS},
	"office365": {Host: "smtp.office365.com", Port: "587", TLS: TLSStartTLS},
	"yahoo":     {Host: "smtp.mail.yahoo.com", Port: "465", TLS: TLSImplicit},
	"icloud":    {Host: "smtp.mail.me.com", Port: "587", TLS: TLSStartTLS},
	"zoho":      {Host: "smtp.zoho.com", Port: "465", TLS: TLSImplicit},
	"sendgrid":  {Host: "smtp.sendgrid.net", Port: "587", TLS: TLSStartTLS},
	"mailgun":   {Host: "smtp.mailgun.org", Port: "587", TLS: TLSStartTLS},
	"brevo":     {Host: "smtp-relay.brevo.com", Port: "587", TLS: TLSStartTLS},
}

// LookupService resolves a provider shorthand such as "gmail". Case-insensitive.
func LookupService(name string) (Service, bool) {
	svc, ok := services[strings.ToLower(strings.TrimSpace(name))]
	return svc, ok
}
