package realtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultOpenAIURL   = "wss://api.openai.com/v1/realtime"
	defaultOpenAIModel = "gpt-4o-realtime-preview"

	handshakeTimeout = 30 * time.Second
)

// DialOptions carry the resolved endpoint and credentials for one upstream
// connection. Build them with OpenAIDialOptions or AzureDialOptions.
type DialOptions struct {
	URL    string
	Header http.Header
}

// OpenAIDialOptions targets the OpenAI realtime endpoint.
func OpenAIDialOptions(apiKey, model, baseURL string) DialOptions {
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	return DialOptions{
		URL:    fmt.Sprintf("%s?model=%s", baseURL, url.QueryEscape(model)),
		Header: header,
	}
}

// AzureDialOptions targets an Azure OpenAI realtime deployment. The resource
// endpoint may be given with an https scheme; it is rewritten for websocket.
func AzureDialOptions(endpoint, deployment, apiKey, apiVersion string) DialOptions {
	wsEndpoint := strings.TrimSuffix(endpoint, "/")
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	header := http.Header{}
	header.Set("api-key", apiKey)

	return DialOptions{
		URL: fmt.Sprintf("%s/openai/realtime?api-version=%s&deployment=%s",
			wsEndpoint, url.QueryEscape(apiVersion), url.QueryEscape(deployment)),
		Header: header,
	}
}

// Client is the gorilla/websocket implementation of Conversation. A
// background read loop demultiplexes wire events into the typed event model;
// the zero concurrency promise is one consumer draining Events.
type Client struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	events    chan Event
	closeCh   chan struct{}
	closeOnce sync.Once

	// demux state, owned by the read loop
	responses map[string]*ResponseEvent
	items     map[string]*ResponseItem
	parts     map[partKey]*ContentPart
	inputs    map[string]*InputAudioEvent
}

type partKey struct {
	itemID string
	index  int
}

// Dial connects to the upstream realtime endpoint and starts the read loop.
func Dial(ctx context.Context, opts DialOptions) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, resp, err := dialer.DialContext(ctx, opts.URL, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("realtime dial failed: %w", err)
	}

	client := &Client{
		conn:      conn,
		events:    make(chan Event, 16),
		closeCh:   make(chan struct{}),
		responses: make(map[string]*ResponseEvent),
		items:     make(map[string]*ResponseItem),
		parts:     make(map[partKey]*ContentPart),
		inputs:    make(map[string]*InputAudioEvent),
	}

	go client.readLoop()

	return client, nil
}

// Configure implements Conversation.
func (c *Client) Configure(ctx context.Context, opts SessionOptions) error {
	session := sessionPayload{
		Modalities:       opts.Modalities,
		InputAudioFormat: opts.InputAudioFormat,
		Voice:            opts.Voice,
	}
	if opts.TranscriptionModel != "" {
		session.InputAudioTranscription = &transcriptionConfig{Model: opts.TranscriptionModel}
	}
	if opts.ServerVAD {
		session.TurnDetection = &turnDetection{Type: "server_vad"}
	}

	return c.sendEvent(ctx, wireSessionUpdate, map[string]any{"session": session})
}

// SendItem implements Conversation.
func (c *Client) SendItem(ctx context.Context, item Item) error {
	return c.sendEvent(ctx, wireConversationItemCreate, map[string]any{
		"item": itemPayload{
			Type:    "message",
			Role:    item.Role,
			Content: []itemContent{{Type: "input_text", Text: item.Text}},
		},
	})
}

// SendAudio implements Conversation.
func (c *Client) SendAudio(ctx context.Context, pcm []byte) error {
	return c.sendEvent(ctx, wireInputAudioBufferAppend, map[string]any{
		"audio": base64.StdEncoding.EncodeToString(pcm),
	})
}

// GenerateResponse implements Conversation.
func (c *Client) GenerateResponse(ctx context.Context) error {
	return c.sendEvent(ctx, wireResponseCreate, nil)
}

// Events implements Conversation.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Close implements Conversation.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) sendEvent(ctx context.Context, eventType string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.closeCh:
		return fmt.Errorf("realtime connection closed")
	default:
	}

	event := map[string]any{
		"event_id": "evt_" + uuid.NewString()[:12],
		"type":     eventType,
	}
	for key, value := range fields {
		event[key] = value
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(event); err != nil {
		return fmt.Errorf("send %s: %w", eventType, err)
	}
	return nil
}

// readLoop reads wire events until the connection ends, routing them into
// the typed event structures handed to the consumer.
func (c *Client) readLoop() {
	defer c.finalize()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closeCh:
			default:
				log.Printf("[realtime] read loop ended: %v", err)
			}
			return
		}

		event, err := decodeServerEvent(raw)
		if err != nil {
			log.Printf("[realtime] undecodable server event: %v", err)
			continue
		}

		if !c.dispatch(event) {
			return
		}
	}
}

// dispatch routes one wire event. It returns false when the client closed
// mid-delivery and the loop should stop.
func (c *Client) dispatch(event *serverEvent) bool {
	switch event.Type {
	case wireError:
		if event.Error != nil {
			log.Printf("[realtime] upstream error %s: %s", event.Error.Code, event.Error.Message)
		}

	case wireInputAudioSpeechStarted:
		input := &InputAudioEvent{ItemID: event.ItemID, done: make(chan struct{})}
		c.inputs[event.ItemID] = input
		return deliver(c, c.events, Event(input))

	case wireInputTranscriptionDone:
		if input, ok := c.inputs[event.ItemID]; ok {
			input.transcript = event.Transcript
			close(input.done)
			delete(c.inputs, event.ItemID)
		}

	case wireInputTranscriptionFailed:
		if input, ok := c.inputs[event.ItemID]; ok {
			close(input.done)
			delete(c.inputs, event.ItemID)
		}

	case wireResponseCreated:
		if event.Response == nil {
			return true
		}
		response := &ResponseEvent{ID: event.Response.ID, items: make(chan *ResponseItem, 8)}
		c.responses[response.ID] = response
		return deliver(c, c.events, Event(response))

	case wireResponseOutputItemAdded:
		response, ok := c.responses[event.ResponseID]
		if !ok || event.Item == nil {
			return true
		}
		item := &ResponseItem{ID: event.Item.ID, Type: event.Item.Type, contents: make(chan *ContentPart, 4)}
		c.items[item.ID] = item
		return deliver(c, response.items, item)

	case wireResponseOutputItemDone:
		if item, ok := c.items[event.ItemID]; ok {
			close(item.contents)
			delete(c.items, event.ItemID)
		}

	case wireResponseContentAdded:
		item, ok := c.items[event.ItemID]
		if !ok || event.Part == nil {
			return true
		}
		part := newContentPart(event.ItemID, event.ContentIndex, event.Part.Type)
		c.parts[partKey{event.ItemID, event.ContentIndex}] = part
		return deliver(c, item.contents, part)

	case wireResponseContentDone:
		key := partKey{event.ItemID, event.ContentIndex}
		if part, ok := c.parts[key]; ok {
			part.closeAll()
			delete(c.parts, key)
		}

	case wireResponseDone:
		responseID := event.ResponseID
		if event.Response != nil {
			responseID = event.Response.ID
		}
		if response, ok := c.responses[responseID]; ok {
			close(response.items)
			delete(c.responses, responseID)
		}

	case wireResponseTextDelta:
		if part, ok := c.parts[partKey{event.ItemID, event.ContentIndex}]; ok && part.textOpen {
			return deliver(c, part.text, event.Delta)
		}

	case wireResponseTextDone:
		if part, ok := c.parts[partKey{event.ItemID, event.ContentIndex}]; ok {
			part.closeText()
		}

	case wireResponseAudioDelta:
		part, ok := c.parts[partKey{event.ItemID, event.ContentIndex}]
		if !ok || !part.audioOpen {
			return true
		}
		chunk, err := base64.StdEncoding.DecodeString(event.Delta)
		if err != nil {
			log.Printf("[realtime] bad audio delta for item %s: %v", event.ItemID, err)
			return true
		}
		return deliver(c, part.audio, chunk)

	case wireResponseAudioDone:
		if part, ok := c.parts[partKey{event.ItemID, event.ContentIndex}]; ok {
			part.closeAudio()
		}

	case wireResponseTranscriptDelta:
		if part, ok := c.parts[partKey{event.ItemID, event.ContentIndex}]; ok && part.transcriptOpen {
			return deliver(c, part.transcript, event.Delta)
		}

	case wireResponseTranscriptDone:
		if part, ok := c.parts[partKey{event.ItemID, event.ContentIndex}]; ok {
			part.closeTranscript()
		}

	default:
		// session.created, rate limits and other events carry nothing the
		// session layer consumes.
	}

	return true
}

// finalize unblocks every consumer after the read loop stops: pending
// streams are closed so joined waits terminate, then the event channel ends.
func (c *Client) finalize() {
	for _, input := range c.inputs {
		close(input.done)
	}
	for _, part := range c.parts {
		part.closeAll()
	}
	for _, item := range c.items {
		close(item.contents)
	}
	for _, response := range c.responses {
		close(response.items)
	}
	close(c.events)
}

func deliver[T any](c *Client, ch chan T, value T) bool {
	select {
	case <-c.closeCh:
		return false
	case ch <- value:
		return true
	}
}
