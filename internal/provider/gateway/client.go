// Package gateway provides a websocket client for the speech translation
// gateway: a backend that streams transcripts, translations, segmented
// translations and corrections over a single JSON protocol.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"live-speech-translator/internal/observability/logging"
	"live-speech-translator/internal/provider"
)

// Server message types.
const (
	msgTypeBegin       = "begin"
	msgTypeTranscript  = "transcript"
	msgTypeTranslation = "translation"
	msgTypeSegments    = "segments"
	msgTypeCorrection  = "correction"
	msgTypeError       = "error"
)

// Client message types.
const (
	msgTypeEndOfUtterance = "end_of_utterance"
	msgTypeTerminate      = "terminate"
)

type serverMessage struct {
	Type string `json:"type"`

	// begin
	SessionID string `json:"session_id,omitempty"`

	// transcript
	Text       string  `json:"text,omitempty"`
	IsFinal    bool    `json:"is_final,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Language   string  `json:"language,omitempty"`

	// translation / segments
	SourceText  string           `json:"source_text,omitempty"`
	Translation string           `json:"translation,omitempty"`
	Segments    []segmentPayload `json:"segments,omitempty"`

	// correction
	OldText string `json:"old_text,omitempty"`
	NewText string `json:"new_text,omitempty"`

	// error
	Error string `json:"error,omitempty"`
}

type segmentPayload struct {
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

type clientMessage struct {
	Type string `json:"type"`
}

// Client is a streaming recognition client for the translation gateway.
type Client struct {
	apiKey    string
	audioData chan []byte
	log       zerolog.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	cb        provider.Events
	connected bool
	errMsg    string
	stopCh    chan struct{}
}

// New creates a gateway client. The client is reusable across sessions; each
// Connect starts a fresh websocket and goroutine pair.
func New(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		log:    logging.WithComponent("gateway"),
	}
}

// Name implements provider.Recognizer.
func (c *Client) Name() string { return "gateway" }

// Capabilities implements provider.Recognizer. The gateway finalizes lazily
// and attaches translations to interim results, so interim translations are
// authoritative and pseudo-final promotion applies.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		ReliableFinals:                   false,
		InterimTranslationsAuthoritative: true,
		Translates:                       true,
	}
}

// Connect dials the gateway and starts the read and audio-send loops.
func (c *Client) Connect(ctx context.Context, serverAddr, sourceLang, targetLang string, cb provider.Events) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.errMsg = ""
	c.mu.Unlock()

	u, err := url.Parse(serverAddr)
	if err != nil {
		return fmt.Errorf("gateway: bad server address %q: %w", serverAddr, err)
	}
	q := u.Query()
	q.Set("source_language", sourceLang)
	q.Set("target_language", targetLang)
	q.Set("sample_rate", "16000")
	q.Set("encoding", "pcm_s16le")
	u.RawQuery = q.Encode()

	headers := map[string][]string{}
	if c.apiKey != "" {
		headers["Authorization"] = []string{c.apiKey}
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			c.log.Error().Int("status", resp.StatusCode).Msg("gateway connection refused")
		}
		c.setError(err.Error())
		return fmt.Errorf("gateway: connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.cb = cb
	c.connected = true
	c.stopCh = make(chan struct{})
	c.audioData = make(chan []byte, 1000)
	stop := c.stopCh
	audio := c.audioData
	c.mu.Unlock()

	go c.readLoop(conn, stop)
	go c.sendLoop(conn, audio, stop)

	c.log.Info().Str("addr", u.Host).Str("source", sourceLang).Str("target", targetLang).Msg("connected to gateway")
	return nil
}

// SendAudio queues one audio frame for delivery. Frames are dropped when the
// buffer is full rather than blocking the capture path.
func (c *Client) SendAudio(pcm []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return fmt.Errorf("gateway: not connected")
	}
	select {
	case c.audioData <- pcm:
	default:
		c.log.Warn().Msg("audio buffer full, dropping frame")
	}
	return nil
}

// SendEndOfUtterance hints that the current utterance is complete.
func (c *Client) SendEndOfUtterance() error {
	c.mu.RLock()
	conn := c.conn
	connected := c.connected
	c.mu.RUnlock()
	if !connected || conn == nil {
		return fmt.Errorf("gateway: not connected")
	}
	return conn.WriteJSON(clientMessage{Type: msgTypeEndOfUtterance})
}

// Status implements provider.Recognizer.
func (c *Client) Status() provider.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.connected:
		return provider.Status{State: provider.StateConnected}
	case c.errMsg != "":
		return provider.Status{State: provider.StateError, Err: c.errMsg}
	default:
		return provider.Status{State: provider.StateDisconnected}
	}
}

// Disconnect sends a terminate message and closes the websocket. Idempotent.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	close(c.stopCh)
	if c.conn != nil {
		_ = c.conn.WriteJSON(clientMessage{Type: msgTypeTerminate})
		_ = c.conn.Close()
	}
	c.connected = false
	c.conn = nil
	c.log.Info().Msg("gateway connection closed")
	return nil
}

func (c *Client) setError(msg string) {
	c.mu.Lock()
	c.errMsg = msg
	c.connected = false
	c.mu.Unlock()
}

func (c *Client) readLoop(conn *websocket.Conn, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stop:
				// normal shutdown
			default:
				c.log.Error().Err(err).Msg("gateway read failed")
				c.setError(err.Error())
				if cb := c.events(); cb != nil {
					cb.OnError(err.Error())
				}
			}
			return
		}
		c.processMessage(message)
	}
}

func (c *Client) sendLoop(conn *websocket.Conn, audio <-chan []byte, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case frame := <-audio:
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				c.log.Error().Err(err).Msg("gateway audio send failed")
				return
			}
		}
	}
}

func (c *Client) events() provider.Events {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cb
}

func (c *Client) processMessage(message []byte) {
	var msg serverMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.log.Warn().Err(err).Msg("unparseable gateway message")
		return
	}
	cb := c.events()
	if cb == nil {
		return
	}
	switch msg.Type {
	case msgTypeBegin:
		c.log.Info().Str("gatewaySession", msg.SessionID).Msg("gateway session began")
	case msgTypeTranscript:
		if msg.Text != "" {
			cb.OnTranscript(msg.Text, msg.IsFinal, msg.Confidence, msg.Language)
		}
	case msgTypeTranslation:
		cb.OnTranslation(msg.SourceText, msg.Translation)
	case msgTypeSegments:
		segs := make([]provider.Segment, 0, len(msg.Segments))
		for _, s := range msg.Segments {
			segs = append(segs, provider.Segment{Text: s.Text, Translation: s.Translation})
		}
		cb.OnSegments(msg.SourceText, segs)
	case msgTypeCorrection:
		cb.OnCorrection(msg.OldText, msg.NewText)
	case msgTypeError:
		c.log.Error().Str("error", msg.Error).Msg("gateway reported error")
		cb.OnError(msg.Error)
	default:
		c.log.Debug().Str("type", msg.Type).Msg("unknown gateway message type")
	}
}
