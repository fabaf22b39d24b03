package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"contactrelay/internal/contact"
	"contactrelay/internal/logging"
)

// Messages returned to the visitor. Transport detail never appears here.
const (
	MsgSent         = "Message sent successfully"
	MsgSendFailed   = "Message could not be sent, please try again later"
	MsgInvalidBody  = "Invalid request body"
	MsgTooLarge     = "Request body too large"
	MsgInvalidInput = "Missing or invalid fields"
	MsgNotAllowed   = "Method not allowed"
	MsgNotFound     = "Not found"
)

// Response is the JSON body of every /send reply.
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Fields  []contact.Field `json:"fields,omitempty"`
}

// Handler serves the relay endpoints. The active Service can be replaced at
// runtime with Swap, e.g. after a configuration reload.
type Handler struct {
	svc atomic.Pointer[Service]
	log logging.Logger
}

// NewHandler returns a handler serving svc.
func NewHandler(svc *Service, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	h := &Handler{log: log}
	h.svc.Store(svc)
	return h
}

// Swap installs svc and returns the previously active service.
func (h *Handler) Swap(svc *Service) *Service {
	return h.svc.Swap(svc)
}

// Service returns the active service.
func (h *Handler) Service() *Service {
	return h.svc.Load()
}

// Router returns the HTTP routes: GET / and POST /send, open to any origin.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, Response{Message: MsgNotFound})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Message: MsgNotAllowed})
	})

	r.Get("/", h.handleRoot)
	r.Post("/send", h.handleSend)
	return r
}

// cors permits every origin and answers preflight requests directly.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Backend working"))
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	ctx := WithRequestID(r.Context(), reqID)
	w.Header().Set("X-Request-ID", reqID)

	svc := h.svc.Load()

	h.log.Debug(ctx, "Handling new submission request", "request_id", reqID, "remote_addr", r.RemoteAddr)

	msg, err := decodeMessage(http.MaxBytesReader(w, r.Body, svc.maxBodyBytes))
	if err != nil {
		h.log.Warn(ctx, "Failed to decode request body", "request_id", reqID, "error", err.Error())
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, Response{Message: MsgTooLarge})
			return
		}
		writeJSON(w, http.StatusBadRequest, Response{Message: MsgInvalidBody})
		return
	}

	err = svc.Relay(ctx, msg)

	var verr *contact.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, Response{Success: true, Message: MsgSent})
	case errors.As(err, &verr):
		fields := verr.Invalid()
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = string(f)
		}
		writeJSON(w, http.StatusBadRequest, Response{
			Message: MsgInvalidInput + ": " + strings.Join(names, ", "),
			Fields:  fields,
		})
	default:
		writeJSON(w, svc.failureStatus, Response{Message: MsgSendFailed})
	}
}

// decodeMessage reads exactly one JSON object with no unknown keys.
func decodeMessage(r io.Reader) (contact.Message, error) {
	var msg contact.Message
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&msg); err != nil {
		return contact.Message{}, err
	}
	if dec.More() {
		return contact.Message{}, errors.New("unexpected data after JSON object")
	}
	return msg, nil
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
