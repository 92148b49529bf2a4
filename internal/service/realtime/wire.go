package realtime

import "encoding/json"

// Client event types on the upstream wire.
const (
	wireSessionUpdate          = "session.update"
	wireInputAudioBufferAppend = "input_audio_buffer.append"
	wireConversationItemCreate = "conversation.item.create"
	wireResponseCreate         = "response.create"
)

// Server event types on the upstream wire.
const (
	wireError = "error"

	wireInputAudioSpeechStarted  = "input_audio_buffer.speech_started"
	wireInputTranscriptionDone   = "conversation.item.input_audio_transcription.completed"
	wireInputTranscriptionFailed = "conversation.item.input_audio_transcription.failed"

	wireResponseCreated         = "response.created"
	wireResponseDone            = "response.done"
	wireResponseOutputItemAdded = "response.output_item.added"
	wireResponseOutputItemDone  = "response.output_item.done"
	wireResponseContentAdded    = "response.content_part.added"
	wireResponseContentDone     = "response.content_part.done"

	wireResponseTextDelta = "response.text.delta"
	wireResponseTextDone  = "response.text.done"

	wireResponseAudioDelta = "response.audio.delta"
	wireResponseAudioDone  = "response.audio.done"

	wireResponseTranscriptDelta = "response.audio_transcript.delta"
	wireResponseTranscriptDone  = "response.audio_transcript.done"
)

// serverEvent is the flat decoding target for every upstream event; only the
// fields relevant to the received type are populated.
type serverEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`

	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
	Transcript   string `json:"transcript"`

	Response *struct {
		ID string `json:"id"`
	} `json:"response"`

	Item *struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Role string `json:"role"`
	} `json:"item"`

	Part *struct {
		Type string `json:"type"`
	} `json:"part"`

	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeServerEvent(raw []byte) (*serverEvent, error) {
	var event serverEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// wire payload builders for client events

type sessionPayload struct {
	Modalities              []string             `json:"modalities,omitempty"`
	InputAudioFormat        string               `json:"input_audio_format,omitempty"`
	InputAudioTranscription *transcriptionConfig `json:"input_audio_transcription,omitempty"`
	Voice                   string               `json:"voice,omitempty"`
	TurnDetection           *turnDetection       `json:"turn_detection,omitempty"`
}

type transcriptionConfig struct {
	Model string `json:"model"`
}

type turnDetection struct {
	Type string `json:"type"`
}

type itemPayload struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []itemContent `json:"content"`
}

type itemContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
