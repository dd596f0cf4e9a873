package generate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/parley/internal/session"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	calls atomic.Int32
	reply func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeBackend) Reply(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	return f.reply(ctx, prompt)
}

func TestGenerateSuccessTrimsReply(t *testing.T) {
	backend := &fakeBackend{reply: func(_ context.Context, prompt string) (string, error) {
		require.Equal(t, "hi", prompt)
		return "  Hello there!\n", nil
	}}

	outcome := NewClient(backend, time.Second, nil).Generate(context.Background(), "hi")
	require.True(t, outcome.OK())
	require.Equal(t, "Hello there!", outcome.Reply)
	require.Equal(t, int32(1), backend.calls.Load())
}

func TestGenerateFailureIsNotRetried(t *testing.T) {
	boom := errors.New("quota exceeded")
	backend := &fakeBackend{reply: func(context.Context, string) (string, error) { return "", boom }}

	outcome := NewClient(backend, time.Second, nil).Generate(context.Background(), "hi")
	require.False(t, outcome.OK())
	require.Equal(t, "quota exceeded", outcome.Failure.Reason)
	require.ErrorIs(t, outcome.Failure, boom)
	require.Equal(t, int32(1), backend.calls.Load())
}

func TestGenerateEmptyReplyFails(t *testing.T) {
	backend := &fakeBackend{reply: func(context.Context, string) (string, error) { return " \n", nil }}

	outcome := NewClient(backend, time.Second, nil).Generate(context.Background(), "hi")
	require.False(t, outcome.OK())
	require.ErrorIs(t, outcome.Failure, ErrEmptyReply)
}

func TestGenerateTimeout(t *testing.T) {
	backend := &fakeBackend{reply: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	outcome := NewClient(backend, 20*time.Millisecond, nil).Generate(context.Background(), "hi")
	require.False(t, outcome.OK())
	require.Contains(t, outcome.Failure.Reason, "timed out")
	require.ErrorIs(t, outcome.Failure, context.DeadlineExceeded)
}

func TestGenerateWithoutBackend(t *testing.T) {
	outcome := NewClient(nil, 0, nil).Generate(context.Background(), "hi")
	require.False(t, outcome.OK())
	require.ErrorIs(t, outcome.Failure, session.ErrGeneratorUnavailable)
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

type fakeGeminiServer struct {
	mu     sync.Mutex
	path   string
	apiKey string
	body   string
}

func (f *fakeGeminiServer) handler(status int, response string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.path = r.URL.Path
		f.apiKey = r.Header.Get("x-goog-api-key")
		f.body = string(body)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}
}

func TestGeminiReply(t *testing.T) {
	fake := &fakeGeminiServer{}
	server := httptest.NewServer(fake.handler(http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello from Gemini"}]},"finishReason":"STOP"}]}`))
	defer server.Close()

	backend, err := NewGemini(context.Background(), GeminiConfig{
		APIKey:     "test-key",
		Model:      "gemini-test",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	require.Equal(t, "gemini-test", backend.Model())

	outcome := NewClient(backend, 5*time.Second, nil).Generate(context.Background(), "How are you?")
	require.True(t, outcome.OK(), "%+v", outcome.Failure)
	require.Equal(t, "Hello from Gemini", outcome.Reply)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.True(t, strings.HasSuffix(fake.path, "models/gemini-test:generateContent"), fake.path)
	require.Equal(t, "test-key", fake.apiKey)

	var request struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal([]byte(fake.body), &request))
	require.Len(t, request.Contents, 1)
	require.Equal(t, "How are you?", request.Contents[0].Parts[0].Text)
}

func TestGeminiServerErrorBecomesFailure(t *testing.T) {
	fake := &fakeGeminiServer{}
	server := httptest.NewServer(fake.handler(http.StatusInternalServerError,
		`{"error":{"code":500,"message":"backend exploded","status":"INTERNAL"}}`))
	defer server.Close()

	backend, err := NewGemini(context.Background(), GeminiConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	require.Equal(t, DefaultModel, backend.Model())

	outcome := NewClient(backend, 5*time.Second, nil).Generate(context.Background(), "hi")
	require.False(t, outcome.OK())
	require.NotEmpty(t, outcome.Failure.Reason)
}
