// Package deepgram streams PCM audio to the Deepgram live transcription websocket.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	defaultBaseURL = "https://api.deepgram.com/v1"
	defaultModel   = "nova-2"
)

// ErrMissingAPIKey is returned by Dial when no key is configured.
var ErrMissingAPIKey = errors.New("deepgram api key is not configured")

// Config controls one live transcription connection.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Language       string
	SmartFormat    bool
	InterimResults bool
	Encoding       string
	SampleRate     int
	Channels       int
	Keywords       []Keyword
}

// Keyword boosts recognition of one phrase.
type Keyword struct {
	Phrase string
	Boost  float64
}

// Event is one decoded transcript message.
type Event struct {
	Text string
	// Final marks text Deepgram will not revise.
	Final bool
	// SpeechFinal marks the end of an utterance by endpointing.
	SpeechFinal bool
}

// HandshakeError reports a rejected websocket upgrade.
type HandshakeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *HandshakeError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("deepgram handshake rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("deepgram handshake rejected with status %d: %s", e.StatusCode, e.Body)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// Session is an open live transcription stream.
type Session struct {
	conn *websocket.Conn

	events chan Event
	audio  chan []byte
	abort  chan struct{}
	done   chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	abortOnce     sync.Once
	sendMu        sync.RWMutex
	sendClosed    bool
}

// Dial opens a live transcription websocket.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	wsURL, err := buildListenURL(cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+cfg.APIKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, &HandshakeError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body)), Err: err}
		}
		return nil, fmt.Errorf("connect to deepgram websocket: %w", err)
	}

	s := &Session{
		conn:   conn,
		events: make(chan Event, 64),
		audio:  make(chan []byte, 32),
		abort:  make(chan struct{}),
		done:   make(chan struct{}),
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()
	go func() {
		s.wg.Wait()
		close(s.events)
		close(s.done)
		_ = conn.Close()
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.setErr(ctx.Err())
			s.Abort()
		case <-s.done:
		}
	}()

	return s, nil
}

// SendAudio queues one PCM chunk.
func (s *Session) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.sendClosed {
		return errors.New("audio stream is already closed")
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.abort:
		if err := s.Err(); err != nil {
			return err
		}
		return errors.New("session closed")
	}
}

// CloseSend finishes the audio stream; Deepgram flushes remaining results and closes.
func (s *Session) CloseSend() error {
	s.closeSendOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.audio)
		s.sendMu.Unlock()
	})
	return nil
}

// Events is closed once the session terminates.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Err returns the first terminal error, ignoring normal closure.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Abort tears the connection down without waiting for pending results.
func (s *Session) Abort() {
	s.abortOnce.Do(func() {
		close(s.abort)
		_ = s.conn.Close()
	})
}

func (s *Session) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) aborted() bool {
	select {
	case <-s.abort:
		return true
	default:
		return false
	}
}

func (s *Session) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.abort:
			return
		case chunk, ok := <-s.audio:
			if !ok {
				if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
					s.setErr(fmt.Errorf("close stream: %w", err))
				}
				return
			}
			if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				s.setErr(fmt.Errorf("send audio: %w", err))
				return
			}
		}
	}
}

func (s *Session) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !s.aborted() {
				s.setErr(fmt.Errorf("read transcript event: %w", err))
			}
			s.Abort()
			return
		}

		var response listenResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = strings.TrimSpace(response.Description)
			}
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			s.setErr(errors.New(message))
			s.Abort()
			return
		}

		if strings.EqualFold(response.Type, "UtteranceEnd") {
			s.emit(Event{SpeechFinal: true, Final: true})
			continue
		}

		text := extractTranscript(response)
		if text == "" && !response.SpeechFinal {
			continue
		}
		s.emit(Event{Text: text, Final: response.IsFinal || response.SpeechFinal, SpeechFinal: response.SpeechFinal})
	}
}

func (s *Session) emit(event Event) {
	select {
	case s.events <- event:
	case <-s.abort:
	}
}

type listenResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func extractTranscript(response listenResponse) string {
	if len(response.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
}

func buildListenURL(cfg Config) (string, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}

	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid deepgram base url: %w", err)
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "linear16"
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	query := listenURL.Query()
	query.Set("model", model)
	query.Set("encoding", encoding)
	query.Set("sample_rate", strconv.Itoa(sampleRate))
	query.Set("channels", strconv.Itoa(channels))
	query.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	query.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))
	if cfg.Language != "" {
		query.Set("language", cfg.Language)
	}
	for _, keyword := range cfg.Keywords {
		if keyword.Boost == 0 {
			query.Add("keywords", keyword.Phrase)
			continue
		}
		query.Add("keywords", keyword.Phrase+":"+strconv.FormatFloat(keyword.Boost, 'f', -1, 64))
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
