// Package relay accepts contact messages over HTTP and relays each one to the
// site owner as a single delivery attempt.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"contactrelay/internal/config"
	"contactrelay/internal/contact"
	"contactrelay/internal/envelope"
	"contactrelay/internal/logging"
	"contactrelay/internal/transport"
)

const defaultMaxBodyBytes = 64 << 10

type ctxKey struct{}

// WithRequestID returns a context carrying id for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Service validates a message, builds its envelope and hands it to the transport.
// It keeps no per-request state and is safe for concurrent use when its
// transport is.
type Service struct {
	policy        envelope.Policy
	transport     transport.Transport
	log           logging.Logger
	failureStatus int
	maxBodyBytes  int64
}

// New wires a Service from cfg. t performs the delivery.
func New(cfg *config.Config, t transport.Transport, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	s := &Service{
		policy: envelope.Policy{
			Owner:     cfg.Owner.Address,
			OwnerName: cfg.Owner.Name,
			Sender:    envelope.SenderPolicy(cfg.Transport.SenderPolicy),
		},
		transport:     t,
		log:           log,
		failureStatus: cfg.Server.FailureStatus,
		maxBodyBytes:  int64(cfg.Server.MaxBodyBytes),
	}
	if s.failureStatus == 0 {
		s.failureStatus = http.StatusInternalServerError
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = defaultMaxBodyBytes
	}
	return s
}

// Transport returns the transport the service delivers through.
func (s *Service) Transport() transport.Transport { return s.transport }

// Relay performs exactly one delivery attempt for msg. It returns a
// *contact.ValidationError when required fields are missing, and an error
// matching transport.ErrDelivery when the attempt fails.
func (s *Service) Relay(ctx context.Context, msg contact.Message) error {
	reqID := RequestID(ctx)

	valid, err := contact.Validate(msg)
	if err != nil {
		s.log.Warn(ctx, "Rejected contact message", "request_id", reqID, "error", err.Error())
		return err
	}

	env, err := envelope.Build(valid, s.policy)
	if err != nil {
		s.log.Error(ctx, "Failed to build envelope", "request_id", reqID, "error", err.Error())
		return fmt.Errorf("failed to build envelope: %w", err)
	}

	s.log.Debug(ctx, "Prepared envelope",
		"request_id", reqID,
		"to", env.To,
		"from", env.From,
		"reply_to", env.ReplyTo,
		"subject", env.Subject,
		"message_length", len(valid.Message))

	if err := s.transport.Send(ctx, env); err != nil {
		s.log.Error(ctx, "Failed to send email",
			"request_id", reqID,
			"to", env.To,
			"error", err.Error())
		if !errors.Is(err, transport.ErrDelivery) {
			err = &transport.Error{Mode: "unknown", Err: err}
		}
		return err
	}

	s.log.Info(ctx, "Email sent successfully",
		"request_id", reqID,
		"to", env.To,
		"subject", env.Subject)
	return nil
}
