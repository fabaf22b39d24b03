package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"contactrelay/internal/contact"
)

// Sender delivers a validated message to the relay. A nil error means the
// relay reported success.
type Sender interface {
	Send(ctx context.Context, msg contact.Message) error
}

// reply mirrors the relay's JSON answer.
type reply struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// HTTPSender posts messages as JSON to a relay endpoint such as
// http://localhost:5000/send.
type HTTPSender struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSender returns a sender for endpoint. A nil client means http.DefaultClient,
// which has no timeout.
func NewHTTPSender(endpoint string, client *http.Client) *HTTPSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSender{endpoint: endpoint, client: client}
}

func (s *HTTPSender) Send(ctx context.Context, msg contact.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	var r reply
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil || r.Success == nil {
		if err == nil {
			err = fmt.Errorf("response has no success flag")
		}
		return &NetworkError{Err: fmt.Errorf("malformed response (status %d): %w", resp.StatusCode, err)}
	}

	if !*r.Success || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RejectedError{Status: resp.StatusCode, Message: r.Message}
	}
	return nil
}
