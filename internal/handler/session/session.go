package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mstepanek/gallery-voice/backend/internal/service/lookup"
	"github.com/mstepanek/gallery-voice/backend/internal/service/realtime"
)

// clientMessage is a text frame from the browser.
type clientMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

type controlMessage struct {
	Type     string `json:"type"`
	Action   string `json:"action"`
	Greeting string `json:"greeting,omitempty"`
	ID       string `json:"id,omitempty"`
}

type textDeltaMessage struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Delta string `json:"delta"`
}

type transcriptionMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// Session owns one client socket and one upstream conversation. The socket
// read loop and the upstream event loop run concurrently; outbound socket
// writes are serialized through the session.
type Session struct {
	id       string
	conn     *websocket.Conn
	upstream realtime.Conversation
	enricher *lookup.Enricher
	prompts  PromptSet
	writeMu  sync.Mutex
}

func newSession(id string, conn *websocket.Conn, upstream realtime.Conversation, enricher *lookup.Enricher, prompts PromptSet) *Session {
	return &Session{
		id:       id,
		conn:     conn,
		upstream: upstream,
		enricher: enricher,
		prompts:  prompts,
	}
}

func (s *Session) logf(format string, args ...any) {
	log.Printf("[websocket] session=%s "+format, append([]any{s.id}, args...)...)
}

// start configures the upstream, greets the client and seeds the fixed
// instructions, in that order.
func (s *Session) start(ctx context.Context, options realtime.SessionOptions) error {
	if err := s.upstream.Configure(ctx, options); err != nil {
		return fmt.Errorf("configure upstream: %w", err)
	}

	if err := s.sendJSON(controlMessage{Type: "control", Action: "connected", Greeting: s.prompts.Greeting}); err != nil {
		return fmt.Errorf("send greeting: %w", err)
	}

	for _, instruction := range []string{s.prompts.Persona, s.prompts.DescriptionTemplate, s.prompts.ResponseStyle} {
		if instruction == "" {
			continue
		}
		if err := s.upstream.SendItem(ctx, realtime.Item{Role: "system", Text: instruction}); err != nil {
			return fmt.Errorf("seed instructions: %w", err)
		}
	}

	return nil
}

// readSocket consumes client frames until the socket closes. Per-frame
// failures are logged and absorbed; the session keeps running.
func (s *Session) readSocket(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	for {
		messageType, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				s.logf("read error: %v", err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch messageType {
		case websocket.BinaryMessage:
			if err := s.upstream.SendAudio(ctx, payload); err != nil {
				s.logf("forward audio failed: %v", err)
			}
		case websocket.TextMessage:
			if err := s.handleTextFrame(ctx, payload); err != nil {
				s.logf("handle message failed: %v", err)
			}
		}
	}
}

func (s *Session) handleTextFrame(ctx context.Context, payload []byte) error {
	var msg clientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("invalid message payload: %w", err)
	}

	if msg.Type != "user_message" {
		return nil
	}
	return s.handleUserMessage(ctx, msg)
}

// handleUserMessage injects dataset context ahead of the user's own text,
// then asks the upstream for a response.
func (s *Session) handleUserMessage(ctx context.Context, msg clientMessage) error {
	if s.enricher != nil {
		if extra, ok := s.enricher.Enrich(msg.Text); ok {
			if err := s.upstream.SendItem(ctx, realtime.Item{Role: "system", Text: extra}); err != nil {
				return fmt.Errorf("send enrichment: %w", err)
			}
		}
	}

	if err := s.upstream.SendItem(ctx, realtime.Item{Role: "user", Text: msg.Text}); err != nil {
		return fmt.Errorf("send user message: %w", err)
	}
	if err := s.upstream.GenerateResponse(ctx); err != nil {
		return fmt.Errorf("request response: %w", err)
	}
	return nil
}

// startEventLoop drains upstream events until the stream ends. A handler
// error here is fatal for event consumption: it is logged and the loop stops.
func (s *Session) startEventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.upstream.Events():
			if !ok {
				s.logf("upstream event stream ended")
				return
			}
			if err := s.handleEvent(ctx, event); err != nil {
				s.logf("event loop failed: %v", err)
				return
			}
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, event realtime.Event) error {
	switch typed := event.(type) {
	case *realtime.ResponseEvent:
		return s.handleResponse(typed)
	case *realtime.InputAudioEvent:
		// The transcript completes out of band, often after a full
		// response has already streamed. Waiting here would stall event
		// consumption and with it the read loop that feeds the wait.
		go func() {
			if err := s.handleInputAudio(ctx, typed); err != nil {
				s.logf("input transcription failed: %v", err)
			}
		}()
		return nil
	default:
		return nil
	}
}

func (s *Session) handleResponse(response *realtime.ResponseEvent) error {
	for item := range response.Items() {
		if item.Type != "message" {
			continue
		}
		for part := range item.Contents() {
			var err error
			switch part.Type {
			case realtime.ContentText:
				err = s.handleTextContent(part)
			case realtime.ContentAudio:
				err = s.handleAudioContent(part)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func contentID(part *realtime.ContentPart) string {
	return part.ItemID + "-" + strconv.Itoa(part.Index)
}

func (s *Session) handleTextContent(part *realtime.ContentPart) error {
	id := contentID(part)
	for delta := range part.TextChunks() {
		if err := s.sendJSON(textDeltaMessage{ID: id, Type: "text_delta", Delta: delta}); err != nil {
			return err
		}
	}
	return s.sendJSON(controlMessage{Type: "control", Action: "text_done", ID: id})
}

// handleAudioContent forwards audio chunks as binary frames and transcript
// chunks as text deltas, concurrently, and waits for both streams to finish.
func (s *Session) handleAudioContent(part *realtime.ContentPart) error {
	id := contentID(part)

	var wg sync.WaitGroup
	var audioErr, transcriptErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		for chunk := range part.AudioChunks() {
			if err := s.sendBinary(chunk); err != nil {
				audioErr = err
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for delta := range part.TranscriptChunks() {
			if err := s.sendJSON(textDeltaMessage{ID: id, Type: "text_delta", Delta: delta}); err != nil {
				transcriptErr = err
				return
			}
		}
	}()
	wg.Wait()

	if audioErr != nil {
		return audioErr
	}
	if transcriptErr != nil {
		return transcriptErr
	}
	return s.sendJSON(controlMessage{Type: "control", Action: "text_done", ID: id})
}

// handleInputAudio tells the client speech was detected, then delivers the
// final transcript once the upstream produced it.
func (s *Session) handleInputAudio(ctx context.Context, input *realtime.InputAudioEvent) error {
	if err := s.sendJSON(controlMessage{Type: "control", Action: "speech_started"}); err != nil {
		return err
	}

	transcript, err := input.WaitForTranscript(ctx)
	if err != nil {
		return err
	}
	return s.sendJSON(transcriptionMessage{ID: input.ItemID, Type: "transcription", Text: transcript})
}

func (s *Session) sendJSON(payload any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(payload)
}

func (s *Session) sendBinary(chunk []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

func (s *Session) ping() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

// close releases the upstream handle; a failure is logged, not retried.
func (s *Session) close() {
	if err := s.upstream.Close(); err != nil {
		s.logf("upstream close failed: %v", err)
	}
}
