package realtime

import "context"

// Conversation is the capability the session layer programs against. The
// concrete implementation speaks the vendor wire protocol; tests substitute
// a fake.
type Conversation interface {
	// Configure pushes the session options upstream. Call once, before any
	// item or audio is sent.
	Configure(ctx context.Context, opts SessionOptions) error
	// SendItem appends a conversation message (system or user role).
	SendItem(ctx context.Context, item Item) error
	// SendAudio appends raw PCM bytes to the upstream input audio buffer.
	SendAudio(ctx context.Context, pcm []byte) error
	// GenerateResponse asks the upstream model to answer the conversation
	// as it stands.
	GenerateResponse(ctx context.Context) error
	// Events yields upstream events for a single consumer. The channel is
	// closed when the connection ends or Close is called.
	Events() <-chan Event
	// Close tears the upstream connection down. Safe to call twice.
	Close() error
}

// SessionOptions mirrors the upstream session configuration surface.
type SessionOptions struct {
	Modalities         []string
	InputAudioFormat   string
	TranscriptionModel string
	Voice              string
	ServerVAD          bool
}

// Item is one conversation message to send upstream.
type Item struct {
	Role string // "system" or "user"
	Text string
}

// Event is one upstream occurrence: either a *ResponseEvent or an
// *InputAudioEvent.
type Event interface {
	isEvent()
}

// ResponseEvent announces a model response whose items arrive lazily while
// the response is being generated.
type ResponseEvent struct {
	ID    string
	items chan *ResponseItem
}

func (*ResponseEvent) isEvent() {}

// Items yields the response items in arrival order. Closed when the response
// is done.
func (r *ResponseEvent) Items() <-chan *ResponseItem {
	return r.items
}

// ResponseItem is one output item of a response. Message items carry content
// parts; other item types carry none.
type ResponseItem struct {
	ID       string
	Type     string // "message" for conversational output
	contents chan *ContentPart
}

// Contents yields the item's content parts in arrival order. Closed when the
// item is done.
func (i *ResponseItem) Contents() <-chan *ContentPart {
	return i.contents
}

const (
	// ContentText is a part streaming text deltas.
	ContentText = "text"
	// ContentAudio is a part streaming audio chunks and their transcript.
	ContentAudio = "audio"
)

// ContentPart is a single content entry of a message item. Text parts stream
// over TextChunks; audio parts stream over AudioChunks and TranscriptChunks
// concurrently. Each channel is closed when its stream ends.
type ContentPart struct {
	ItemID string
	Index  int
	Type   string

	text       chan string
	audio      chan []byte
	transcript chan string

	// stream liveness, touched only by the client read loop
	textOpen       bool
	audioOpen      bool
	transcriptOpen bool
}

// newContentPart builds a part with live channels for its type; the channels
// of the other modality are closed up front so a mismatched consumer never
// blocks.
func newContentPart(itemID string, index int, partType string) *ContentPart {
	part := &ContentPart{
		ItemID:     itemID,
		Index:      index,
		Type:       partType,
		text:       make(chan string, 32),
		audio:      make(chan []byte, 64),
		transcript: make(chan string, 32),
	}
	switch partType {
	case ContentText:
		part.textOpen = true
		close(part.audio)
		close(part.transcript)
	case ContentAudio:
		part.audioOpen = true
		part.transcriptOpen = true
		close(part.text)
	default:
		close(part.text)
		close(part.audio)
		close(part.transcript)
	}
	return part
}

func (p *ContentPart) closeText() {
	if p.textOpen {
		p.textOpen = false
		close(p.text)
	}
}

func (p *ContentPart) closeAudio() {
	if p.audioOpen {
		p.audioOpen = false
		close(p.audio)
	}
}

func (p *ContentPart) closeTranscript() {
	if p.transcriptOpen {
		p.transcriptOpen = false
		close(p.transcript)
	}
}

func (p *ContentPart) closeAll() {
	p.closeText()
	p.closeAudio()
	p.closeTranscript()
}

// TextChunks streams the incremental text of a text part.
func (p *ContentPart) TextChunks() <-chan string {
	return p.text
}

// AudioChunks streams decoded audio bytes of an audio part.
func (p *ContentPart) AudioChunks() <-chan []byte {
	return p.audio
}

// TranscriptChunks streams the spoken transcript of an audio part.
func (p *ContentPart) TranscriptChunks() <-chan string {
	return p.transcript
}

// InputAudioEvent signals that the upstream detected speech in the input
// audio buffer. The final transcript becomes available once the upstream
// finishes transcribing the committed audio.
type InputAudioEvent struct {
	ItemID string

	done       chan struct{}
	transcript string
}

func (*InputAudioEvent) isEvent() {}

// WaitForTranscript blocks until the upstream finished transcribing this
// audio item, the context is cancelled, or the connection closed. A
// transcription that produced nothing yields the empty string.
func (e *InputAudioEvent) WaitForTranscript(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-e.done:
		return e.transcript, nil
	}
}
