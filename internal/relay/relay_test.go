package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"contactrelay/internal/config"
	"contactrelay/internal/contact"
	"contactrelay/internal/envelope"
	"contactrelay/internal/logging"
	"contactrelay/internal/transport"
)

const owner = "owner@example.org"

// MockTransport is a mock implementation of transport.Transport.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, env *envelope.Envelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

// recordingTransport captures every envelope it is handed.
type recordingTransport struct {
	mu   sync.Mutex
	envs []*envelope.Envelope
}

func (r *recordingTransport) Send(_ context.Context, env *envelope.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default("relayd")
	cfg.Owner.Address = owner
	cfg.Owner.Password = "secret"
	return &cfg
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestService_Relay_Success(t *testing.T) {
	t.Parallel()

	mt := &MockTransport{}
	mt.On("Send", mock.Anything, mock.MatchedBy(func(env *envelope.Envelope) bool {
		return env.To == owner &&
			env.ReplyTo == "ada@example.com" &&
			strings.Contains(env.Text, "Ada") &&
			strings.Contains(env.Text, "ada@example.com") &&
			strings.Contains(env.Text, "Hello")
	})).Return(nil).Once()

	svc := New(testConfig(), mt, nil)
	err := svc.Relay(context.Background(), contact.Message{Name: "Ada", Email: "ada@example.com", Message: "Hello"})

	require.NoError(t, err)
	mt.AssertExpectations(t)
	mt.AssertNumberOfCalls(t, "Send", 1)
}

func TestService_Relay_TransportFailure(t *testing.T) {
	t.Parallel()

	mt := &MockTransport{}
	cause := &transport.Error{Mode: "smtp", Addr: "smtp.gmail.com:587", Err: errors.New("535 5.7.8 auth rejected")}
	mt.On("Send", mock.Anything, mock.Anything).Return(cause)

	rec := &logging.Recorder{}
	svc := New(testConfig(), mt, rec)
	err := svc.Relay(context.Background(), contact.Message{Name: "Ada", Email: "ada@example.com", Message: "Hello"})

	require.ErrorIs(t, err, transport.ErrDelivery)
	mt.AssertNumberOfCalls(t, "Send", 1)

	errs := rec.Level("error")
	require.Len(t, errs, 1)
	detail, _ := errs[0].Value("error")
	assert.Contains(t, detail, "auth rejected")
}

func TestService_Relay_WrapsForeignErrors(t *testing.T) {
	t.Parallel()

	mt := &MockTransport{}
	mt.On("Send", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	err := New(testConfig(), mt, nil).Relay(context.Background(),
		contact.Message{Name: "Ada", Email: "ada@example.com", Message: "Hello"})
	require.ErrorIs(t, err, transport.ErrDelivery)
}

func TestService_Relay_RejectsInvalid(t *testing.T) {
	t.Parallel()

	mt := &MockTransport{}
	svc := New(testConfig(), mt, nil)

	err := svc.Relay(context.Background(), contact.Message{Name: "  ", Email: "ada@example.com", Message: "Hi"})
	require.ErrorIs(t, err, contact.ErrInvalid)
	mt.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestService_SenderPolicy(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Transport.SenderPolicy = string(envelope.FromSender)
	rt := &recordingTransport{}

	require.NoError(t, New(cfg, rt, nil).Relay(context.Background(),
		contact.Message{Name: "Ada", Email: "ada@example.com", Message: "Hello"}))

	require.Len(t, rt.envs, 1)
	assert.Equal(t, "ada@example.com", rt.envs[0].From)
	assert.Equal(t, owner, rt.envs[0].To)
}

func TestHandler_Send_Success(t *testing.T) {
	t.Parallel()

	rt := &recordingTransport{}
	h := NewHandler(New(testConfig(), rt, nil), nil).Router()

	rec, resp := post(t, h, `{"name":"Ada","email":"ada@example.com","message":"Hello"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, MsgSent, resp.Message)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	require.Len(t, rt.envs, 1)
	env := rt.envs[0]
	assert.Equal(t, owner, env.To)
	for _, s := range []string{"Ada", "ada@example.com", "Hello"} {
		assert.Contains(t, env.Text, s)
	}
}

func TestHandler_Send_TransportFailureIsOpaque(t *testing.T) {
	t.Parallel()

	mt := &MockTransport{}
	mt.On("Send", mock.Anything, mock.Anything).
		Return(&transport.Error{Mode: "smtp", Addr: "smtp.gmail.com:587", Err: errors.New("535 auth rejected for owner@example.org")})

	h := NewHandler(New(testConfig(), mt, nil), nil).Router()
	rec, resp := post(t, h, `{"name":"Ada","email":"ada@example.com","message":"Hello"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, MsgSendFailed, resp.Message)
	assert.NotContains(t, rec.Body.String(), "535")
	assert.NotContains(t, rec.Body.String(), "smtp.gmail.com")
	mt.AssertNumberOfCalls(t, "Send", 1)
}

func TestHandler_Send_LegacyFailureStatus(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Server.FailureStatus = http.StatusOK
	mt := &MockTransport{}
	mt.On("Send", mock.Anything, mock.Anything).Return(errors.New("timeout"))

	rec, resp := post(t, NewHandler(New(cfg, mt, nil), nil).Router(),
		`{"name":"Ada","email":"ada@example.com","message":"Hello"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Success)
}

func TestHandler_Send_ValidationError(t *testing.T) {
	t.Parallel()

	mt := &MockTransport{}
	h := NewHandler(New(testConfig(), mt, nil), nil).Router()

	rec, resp := post(t, h, `{"name":"","email":"ada@example.com","message":"Hi"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, []contact.Field{contact.FieldName}, resp.Fields)
	assert.Equal(t, MsgInvalidInput+": name", resp.Message)
	mt.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandler_Send_MissingFields(t *testing.T) {
	t.Parallel()

	mt := &MockTransport{}
	h := NewHandler(New(testConfig(), mt, nil), nil).Router()

	rec, resp := post(t, h, `{"subject":"only a subject"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []contact.Field{contact.FieldName, contact.FieldEmail, contact.FieldMessage}, resp.Fields)
	mt.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandler_Send_MalformedBody(t *testing.T) {
	t.Parallel()

	mt := &MockTransport{}
	h := NewHandler(New(testConfig(), mt, nil), nil).Router()

	rec, resp := post(t, h, `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgInvalidBody, resp.Message)

	mt.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandler_Send_StrictDecoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"unknown field", `{"name":"Ada","email":"ada@example.com","message":"Hi","bogus":1}`},
		{"trailing object", `{"name":"Ada","email":"ada@example.com","message":"Hi"}{"trailing":true}`},
		{"trailing garbage", `{"name":"Ada","email":"ada@example.com","message":"Hi"} x`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rt := &recordingTransport{}
			h := NewHandler(New(testConfig(), rt, nil), nil).Router()

			rec, resp := post(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, MsgInvalidBody, resp.Message)
			assert.Empty(t, rt.envs)
		})
	}

	t.Run("trailing newline is accepted", func(t *testing.T) {
		t.Parallel()
		rt := &recordingTransport{}
		h := NewHandler(New(testConfig(), rt, nil), nil).Router()

		rec, _ := post(t, h, "{\"name\":\"Ada\",\"email\":\"ada@example.com\",\"message\":\"Hi\"}\n")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, rt.envs, 1)
	})
}

func TestHandler_Send_BodyTooLarge(t *testing.T) {
	t.Parallel()

	mt := &MockTransport{}
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 16
	h := NewHandler(New(cfg, mt, nil), nil).Router()

	rec, resp := post(t, h, `{"name":"Ada","email":"ada@example.com","message":"`+strings.Repeat("x", 64)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, MsgTooLarge, resp.Message)
	mt.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandler_Routes(t *testing.T) {
	t.Parallel()

	h := NewHandler(New(testConfig(), &recordingTransport{}, nil), nil).Router()

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/send", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("root", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Backend working", rec.Body.String())
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/send", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("unknown path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/contact", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_Swap(t *testing.T) {
	t.Parallel()

	first, second := &recordingTransport{}, &recordingTransport{}
	handler := NewHandler(New(testConfig(), first, nil), nil)
	h := handler.Router()

	post(t, h, `{"name":"Ada","email":"ada@example.com","message":"one"}`)
	old := handler.Swap(New(testConfig(), second, nil))
	post(t, h, `{"name":"Ada","email":"ada@example.com","message":"two"}`)

	assert.Same(t, first, old.Transport())
	assert.Len(t, first.envs, 1)
	assert.Len(t, second.envs, 1)
}

func TestHandler_ConcurrentRequestsAreIndependent(t *testing.T) {
	t.Parallel()

	rt := &recordingTransport{}
	h := NewHandler(New(testConfig(), rt, nil), nil).Router()

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := fmt.Sprintf(`{"name":"visitor%d","email":"v%d@example.com","message":"hello %d"}`, i, i, i)
			req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()

	require.Len(t, rt.envs, n)
	for _, env := range rt.envs {
		var i int
		_, err := fmt.Sscanf(env.ReplyTo, "v%d@example.com", &i)
		require.NoError(t, err)
		assert.Contains(t, env.Text, fmt.Sprintf("visitor%d", i))
		assert.Contains(t, env.Text, fmt.Sprintf("hello %d", i))
	}
}
