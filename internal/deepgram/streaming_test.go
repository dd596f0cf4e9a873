package deepgram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestDialRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := Dial(context.Background(), Config{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestBuildListenURLDefaults(t *testing.T) {
	t.Parallel()

	u, err := buildListenURL(Config{})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u, "wss://api.deepgram.com/v1/listen?"), u)
	require.Contains(t, u, "model=nova-2")
	require.Contains(t, u, "encoding=linear16")
	require.Contains(t, u, "sample_rate=16000")
	require.Contains(t, u, "channels=1")
	require.Contains(t, u, "interim_results=false")
	require.NotContains(t, u, "language=")
}

func TestBuildListenURLWithLanguageAndSmartFormat(t *testing.T) {
	t.Parallel()

	u, err := buildListenURL(Config{
		BaseURL:        "http://localhost:8080/v1/",
		Model:          "nova-3",
		Language:       "en-US",
		SmartFormat:    true,
		InterimResults: true,
		SampleRate:     8000,
		Channels:       2,
		Keywords:       []Keyword{{Phrase: "Parley", Boost: 2.5}, {Phrase: "Gemini"}},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u, "ws://localhost:8080/v1/listen?"), u)
	require.Contains(t, u, "language=en-US")
	require.Contains(t, u, "smart_format=true")
	require.Contains(t, u, "interim_results=true")
	require.Contains(t, u, "sample_rate=8000")
	require.Contains(t, u, "channels=2")
	require.Contains(t, u, "keywords=Parley%3A2.5")
	require.Contains(t, u, "keywords=Gemini")
}

func TestBuildListenURLInvalidBase(t *testing.T) {
	t.Parallel()

	_, err := buildListenURL(Config{BaseURL: ":// bad"})
	require.Error(t, err)
}

func TestSetErrIgnoresNormalClosureAndKeepsFirst(t *testing.T) {
	t.Parallel()

	s := &Session{}
	s.setErr(&websocket.CloseError{Code: websocket.CloseNormalClosure, Text: "closed"})
	require.NoError(t, s.Err())

	s.setErr(errors.New("first"))
	s.setErr(errors.New("second"))
	require.EqualError(t, s.Err(), "first")
}

func TestSendAudioAfterCloseSend(t *testing.T) {
	t.Parallel()

	s := &Session{audio: make(chan []byte, 1)}
	require.NoError(t, s.CloseSend())
	require.NoError(t, s.CloseSend())
	require.Error(t, s.SendAudio([]byte("x")))
	require.NoError(t, s.SendAudio(nil))
}

type fakeListenServer struct {
	mu       sync.Mutex
	auth     string
	query    string
	audio    [][]byte
	closeMsg string
}

func (f *fakeListenServer) handler(t *testing.T, replies []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.auth = r.Header.Get("Authorization")
		f.query = r.URL.RawQuery
		f.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			kind, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.BinaryMessage {
				f.mu.Lock()
				f.audio = append(f.audio, payload)
				f.mu.Unlock()
				continue
			}

			f.mu.Lock()
			f.closeMsg = string(payload)
			f.mu.Unlock()
			for _, reply := range replies {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
					return
				}
			}
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
			return
		}
	}
}

func TestSessionStreamsAudioAndDecodesResults(t *testing.T) {
	fake := &fakeListenServer{}
	server := httptest.NewServer(fake.handler(t, []string{
		`{"type":"Metadata"}`,
		`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hello"}]}}`,
		`{"type":"Results","is_final":true,"speech_final":true,"channel":{"alternatives":[{"transcript":"hello world"}]}}`,
		`not json`,
		`{"type":"UtteranceEnd"}`,
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := Dial(ctx, Config{APIKey: "secret", BaseURL: server.URL + "/v1", Language: "en-US", InterimResults: true})
	require.NoError(t, err)

	require.NoError(t, s.SendAudio([]byte{1, 2, 3, 4}))
	require.NoError(t, s.SendAudio([]byte{5, 6}))
	require.NoError(t, s.CloseSend())

	var events []Event
	for event := range s.Events() {
		events = append(events, event)
	}
	require.NoError(t, s.Err())

	require.Equal(t, []Event{
		{Text: "hello"},
		{Text: "hello world", Final: true, SpeechFinal: true},
		{Final: true, SpeechFinal: true},
	}, events)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Equal(t, "Token secret", fake.auth)
	require.Contains(t, fake.query, "language=en-US")
	require.Equal(t, [][]byte{{1, 2, 3, 4}, {5, 6}}, fake.audio)
	require.JSONEq(t, `{"type":"CloseStream"}`, fake.closeMsg)
}

func TestSessionSurfacesProviderError(t *testing.T) {
	fake := &fakeListenServer{}
	server := httptest.NewServer(fake.handler(t, []string{
		`{"type":"Error","description":"model unavailable"}`,
	}))
	defer server.Close()

	s, err := Dial(context.Background(), Config{APIKey: "secret", BaseURL: server.URL})
	require.NoError(t, err)
	require.NoError(t, s.CloseSend())

	for range s.Events() {
	}
	require.EqualError(t, s.Err(), "model unavailable")
}

func TestDialHandshakeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := Dial(context.Background(), Config{APIKey: "bad", BaseURL: server.URL})
	var handshakeErr *HandshakeError
	require.ErrorAs(t, err, &handshakeErr)
	require.Equal(t, http.StatusUnauthorized, handshakeErr.StatusCode)
	require.Contains(t, handshakeErr.Body, "invalid credentials")
}

func TestContextCancelAbortsSession(t *testing.T) {
	fake := &fakeListenServer{}
	server := httptest.NewServer(fake.handler(t, nil))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s, err := Dial(ctx, Config{APIKey: "secret", BaseURL: server.URL})
	require.NoError(t, err)

	cancel()
	drained := make(chan struct{})
	go func() {
		for range s.Events() {
		}
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not stop after context cancellation")
	}
	require.ErrorIs(t, s.Err(), context.Canceled)
}
