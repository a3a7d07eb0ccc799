package azure

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rbright/yatra/internal/audio"
)

const recognitionPath = "/speech/recognition/conversation/cognitiveservices/v1"

// RecognitionHandlers receive results from one recognition stream.
type RecognitionHandlers struct {
	Hypothesis func(text string)
	Phrase     func(text string)
	Error      func(err error)
}

// Recognizer opens streaming recognition connections.
type Recognizer struct {
	Tokens TokenSource
	Dialer *websocket.Dialer
	// BaseURL overrides the regional websocket host.
	BaseURL string
	// SampleRate of the PCM audio that will be streamed.
	SampleRate int
	// DebugSink receives one JSON line per server message when set.
	DebugSink io.Writer
	// Phrases biases recognition toward place names and other vocabulary.
	Phrases []string
}

// RecognitionStream is one open recognition connection.
type RecognitionStream struct {
	conn      *websocket.Conn
	requestID string
	handlers  RecognitionHandlers
	debug     io.Writer
	rate      int

	writeMu    sync.Mutex
	sentHeader bool

	closeOnce sync.Once
	closing   chan struct{}
	turnEnd   chan struct{}
	readDone  chan struct{}
}

// Dial opens a recognition stream for locale.
func (r *Recognizer) Dial(ctx context.Context, locale string, handlers RecognitionHandlers) (*RecognitionStream, error) {
	if r.Tokens == nil {
		return nil, errors.New("dial recognition: no token source")
	}
	token, err := r.Tokens.SpeechToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial recognition: %w", err)
	}

	base := r.BaseURL
	if base == "" {
		base = STTBase(token.Region)
	}
	endpoint, err := url.Parse(strings.TrimRight(base, "/") + recognitionPath)
	if err != nil {
		return nil, fmt.Errorf("dial recognition: parse endpoint: %w", err)
	}
	query := endpoint.Query()
	query.Set("language", locale)
	query.Set("format", "detailed")
	endpoint.RawQuery = query.Encode()

	connectionID := compactUUID()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token.Value)
	header.Set("X-ConnectionId", connectionID)

	dialer := r.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment}
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial recognition: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial recognition: %w", err)
	}

	rate := r.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	stream := &RecognitionStream{
		conn:      conn,
		requestID: compactUUID(),
		handlers:  handlers,
		debug:     r.DebugSink,
		rate:      rate,
		closing:   make(chan struct{}),
		turnEnd:   make(chan struct{}),
		readDone:  make(chan struct{}),
	}
	if err := stream.sendConfig(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("dial recognition: send config: %w", err)
	}
	if len(r.Phrases) > 0 {
		if err := stream.sendPhrases(r.Phrases); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("dial recognition: send phrase list: %w", err)
		}
	}

	go stream.readLoop()
	return stream, nil
}

// SendAudio streams one chunk of 16-bit mono PCM.
func (s *RecognitionStream) SendAudio(chunk []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	payload := chunk
	if !s.sentHeader {
		payload = append(audio.WAVHeader(s.rate, 1, -1), chunk...)
		s.sentHeader = true
	}
	return s.writeAudioLocked(payload)
}

// Close ends the audio stream and waits for the service to finish the turn,
// delivering the remaining phrases. ctx bounds the wait.
func (s *RecognitionStream) Close(ctx context.Context) error {
	s.writeMu.Lock()
	err := s.writeAudioLocked(nil)
	s.writeMu.Unlock()

	if err == nil {
		select {
		case <-s.turnEnd:
		case <-s.readDone:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	s.shutdown()
	return err
}

// Cancel drops the connection without waiting for results.
func (s *RecognitionStream) Cancel() error {
	s.shutdown()
	return nil
}

func (s *RecognitionStream) shutdown() {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
		_ = s.conn.Close()
		<-s.readDone
	})
}

func (s *RecognitionStream) sendConfig() error {
	body, err := json.Marshal(map[string]any{
		"context": map[string]any{
			"system": map[string]string{"version": "1.0.0"},
			"os":     map[string]string{"platform": "Linux", "name": "yatra"},
		},
	})
	if err != nil {
		return err
	}
	return s.writeText("speech.config", body)
}

// sendPhrases attaches a phrase list to the turn through speech.context.
func (s *RecognitionStream) sendPhrases(phrases []string) error {
	type item struct {
		Text string `json:"Text"`
	}
	items := make([]item, 0, len(phrases))
	for _, phrase := range phrases {
		items = append(items, item{Text: phrase})
	}
	body, err := json.Marshal(map[string]any{
		"dgi": map[string]any{
			"Groups": []map[string]any{{"Type": "Generic", "Items": items}},
		},
	})
	if err != nil {
		return err
	}
	return s.writeText("speech.context", body)
}

func (s *RecognitionStream) writeText(path string, body []byte) error {
	message := messageHeaders(path, s.requestID, "application/json") + "\r\n" + string(body)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(message))
}

// writeAudioLocked frames payload as a binary audio message. An empty
// payload marks the end of audio.
func (s *RecognitionStream) writeAudioLocked(payload []byte) error {
	headers := messageHeaders("audio", s.requestID, "audio/x-wav")
	frame := make([]byte, 2, 2+len(headers)+len(payload))
	binary.BigEndian.PutUint16(frame, uint16(len(headers)))
	frame = append(frame, headers...)
	frame = append(frame, payload...)
	return s.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (s *RecognitionStream) readLoop() {
	defer close(s.readDone)

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closing:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			s.emitError(fmt.Errorf("recognition stream: %w", err))
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		msg := ParseMessage(data)
		s.writeDebug(msg)
		switch msg.Path {
		case "speech.hypothesis", "speech.fragment":
			if text := msg.HypothesisText(); text != "" && s.handlers.Hypothesis != nil {
				s.handlers.Hypothesis(text)
			}
		case "speech.phrase":
			text, err := msg.PhraseText()
			if err != nil {
				s.emitError(err)
				continue
			}
			if text != "" && s.handlers.Phrase != nil {
				s.handlers.Phrase(text)
			}
		case "turn.end":
			s.closeTurn()
		}
	}
}

func (s *RecognitionStream) closeTurn() {
	select {
	case <-s.turnEnd:
	default:
		close(s.turnEnd)
	}
}

func (s *RecognitionStream) emitError(err error) {
	if s.handlers.Error != nil {
		s.handlers.Error(err)
	}
}

func (s *RecognitionStream) writeDebug(msg Message) {
	if s.debug == nil {
		return
	}
	line, err := json.Marshal(map[string]any{
		"received_at": time.Now().UTC().Format(time.RFC3339Nano),
		"path":        msg.Path,
		"body":        json.RawMessage(validJSON(msg.Body)),
	})
	if err != nil {
		return
	}
	_, _ = s.debug.Write(append(line, '\n'))
}

func validJSON(body []byte) []byte {
	if json.Valid(body) {
		return body
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}

// Message is one parsed text frame from the recognition service.
type Message struct {
	Path    string
	Headers map[string]string
	Body    []byte
}

// ParseMessage splits a text frame into headers and body.
func ParseMessage(data []byte) Message {
	msg := Message{Headers: map[string]string{}}
	head, body, found := bytes.Cut(data, []byte("\r\n\r\n"))
	if !found {
		head = data
		body = nil
	}
	for _, line := range strings.Split(string(head), "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		msg.Headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	msg.Path = strings.ToLower(msg.Headers["path"])
	msg.Body = body
	return msg
}

// HypothesisText returns the interim text of a hypothesis message.
func (m Message) HypothesisText() string {
	var payload struct {
		Text string `json:"Text"`
	}
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Text)
}

// PhraseText returns the final text of a phrase message. Silence and
// no-match results yield empty text.
func (m Message) PhraseText() (string, error) {
	var payload struct {
		RecognitionStatus string `json:"RecognitionStatus"`
		DisplayText       string `json:"DisplayText"`
		NBest             []struct {
			Display string `json:"Display"`
		} `json:"NBest"`
	}
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		return "", fmt.Errorf("decode phrase: %w", err)
	}

	switch payload.RecognitionStatus {
	case "Success", "":
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout", "EndOfDictation":
		return "", nil
	default:
		return "", fmt.Errorf("recognition status %s", payload.RecognitionStatus)
	}

	if text := strings.TrimSpace(payload.DisplayText); text != "" {
		return text, nil
	}
	if len(payload.NBest) > 0 {
		return strings.TrimSpace(payload.NBest[0].Display), nil
	}
	return "", nil
}

func messageHeaders(path string, requestID string, contentType string) string {
	return "Path: " + path + "\r\n" +
		"X-RequestId: " + requestID + "\r\n" +
		"X-Timestamp: " + time.Now().UTC().Format("2006-01-02T15:04:05.000Z") + "\r\n" +
		"Content-Type: " + contentType + "\r\n"
}

func compactUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
