package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mstepanek/gallery-voice/backend/internal/service/realtime"
)

// scriptedUpstream plays a fixed realtime event script to whoever connects
// and then keeps draining client events until the socket closes.
func scriptedUpstream(t *testing.T, serverEvents []map[string]any) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}

		for _, event := range serverEvents {
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialThroughRelay(t *testing.T, upstream *httptest.Server) *websocket.Conn {
	t.Helper()

	connect := func(ctx context.Context) (realtime.Conversation, error) {
		url := "ws" + strings.TrimPrefix(upstream.URL, "http")
		return realtime.Dial(ctx, realtime.DialOptions{URL: url, Header: http.Header{}})
	}
	return dialSession(t, connect, nil)
}

func decodeFrame(t *testing.T, payload []byte) frame {
	t.Helper()
	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return f
}

func TestRelayStreamsTextResponse(t *testing.T) {
	upstream := scriptedUpstream(t, []map[string]any{
		{"type": "response.created", "response": map[string]any{"id": "resp_1"}},
		{"type": "response.output_item.added", "response_id": "resp_1", "item": map[string]any{"id": "item_1", "type": "message"}},
		{"type": "response.content_part.added", "item_id": "item_1", "content_index": 0, "part": map[string]any{"type": "text"}},
		{"type": "response.text.delta", "item_id": "item_1", "content_index": 0, "delta": "Hel"},
		{"type": "response.text.delta", "item_id": "item_1", "content_index": 0, "delta": "lo"},
		{"type": "response.text.done", "item_id": "item_1", "content_index": 0},
		{"type": "response.content_part.done", "item_id": "item_1", "content_index": 0},
		{"type": "response.output_item.done", "item_id": "item_1"},
		{"type": "response.done", "response": map[string]any{"id": "resp_1"}},
	})
	conn := dialThroughRelay(t, upstream)

	greeting := readTextFrame(t, conn)
	if greeting.Action != "connected" {
		t.Fatalf("expected connected control, got %+v", greeting)
	}

	var text strings.Builder
	for {
		f := readTextFrame(t, conn)
		if f.Type == "control" && f.Action == "text_done" {
			if f.ID != "item_1-0" {
				t.Fatalf("unexpected done id %q", f.ID)
			}
			break
		}
		if f.Type != "text_delta" || f.ID != "item_1-0" {
			t.Fatalf("unexpected frame %+v", f)
		}
		text.WriteString(f.Delta)
	}
	if text.String() != "Hello" {
		t.Fatalf("expected streamed text Hello, got %q", text.String())
	}
}

func TestRelayStreamsAudioResponse(t *testing.T) {
	pcm := []byte{0x10, 0x20, 0x30, 0x40}
	upstream := scriptedUpstream(t, []map[string]any{
		{"type": "response.created", "response": map[string]any{"id": "resp_1"}},
		{"type": "response.output_item.added", "response_id": "resp_1", "item": map[string]any{"id": "item_1", "type": "message"}},
		{"type": "response.content_part.added", "item_id": "item_1", "content_index": 0, "part": map[string]any{"type": "audio"}},
		{"type": "response.audio.delta", "item_id": "item_1", "content_index": 0, "delta": base64.StdEncoding.EncodeToString(pcm)},
		{"type": "response.audio_transcript.delta", "item_id": "item_1", "content_index": 0, "delta": "hi"},
		{"type": "response.audio.done", "item_id": "item_1", "content_index": 0},
		{"type": "response.audio_transcript.done", "item_id": "item_1", "content_index": 0},
		{"type": "response.content_part.done", "item_id": "item_1", "content_index": 0},
		{"type": "response.output_item.done", "item_id": "item_1"},
		{"type": "response.done", "response": map[string]any{"id": "resp_1"}},
	})
	conn := dialThroughRelay(t, upstream)
	readTextFrame(t, conn) // greeting

	var gotAudio []byte
	var transcript strings.Builder
	for {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if messageType == websocket.BinaryMessage {
			gotAudio = append(gotAudio, payload...)
			continue
		}
		f := decodeFrame(t, payload)
		if f.Type == "control" && f.Action == "text_done" {
			break
		}
		if f.Type != "text_delta" {
			t.Fatalf("unexpected frame %+v", f)
		}
		transcript.WriteString(f.Delta)
	}
	if string(gotAudio) != string(pcm) {
		t.Fatalf("expected audio %v, got %v", pcm, gotAudio)
	}
	if transcript.String() != "hi" {
		t.Fatalf("expected transcript hi, got %q", transcript.String())
	}
}

// A transcription completing only after a long response has streamed must
// still reach the client: the relay may not stall event consumption while
// waiting for it.
func TestRelayDeliversTranscriptionAfterStreamingResponse(t *testing.T) {
	pcm := []byte{0x01, 0x02}
	chunk := base64.StdEncoding.EncodeToString(pcm)

	events := []map[string]any{
		{"type": "input_audio_buffer.speech_started", "item_id": "item_9"},
		{"type": "response.created", "response": map[string]any{"id": "resp_1"}},
		{"type": "response.output_item.added", "response_id": "resp_1", "item": map[string]any{"id": "item_1", "type": "message"}},
		{"type": "response.content_part.added", "item_id": "item_1", "content_index": 0, "part": map[string]any{"type": "audio"}},
	}
	// Enough deltas to overrun every demux buffer between the wire and the
	// session.
	const deltaCount = 200
	for i := 0; i < deltaCount; i++ {
		events = append(events, map[string]any{"type": "response.audio.delta", "item_id": "item_1", "content_index": 0, "delta": chunk})
	}
	events = append(events,
		map[string]any{"type": "response.audio.done", "item_id": "item_1", "content_index": 0},
		map[string]any{"type": "response.content_part.done", "item_id": "item_1", "content_index": 0},
		map[string]any{"type": "response.output_item.done", "item_id": "item_1"},
		map[string]any{"type": "response.done", "response": map[string]any{"id": "resp_1"}},
		map[string]any{"type": "conversation.item.input_audio_transcription.completed", "item_id": "item_9", "transcript": "open the gallery"},
	)

	upstream := scriptedUpstream(t, events)
	conn := dialThroughRelay(t, upstream)
	readTextFrame(t, conn) // greeting

	audioFrames := 0
	sawTranscription := false
	sawDone := false
	deadline := time.Now().Add(5 * time.Second)
	for !sawTranscription || !sawDone {
		conn.SetReadDeadline(deadline)
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read frame (audio=%d transcription=%v done=%v): %v", audioFrames, sawTranscription, sawDone, err)
		}
		if messageType == websocket.BinaryMessage {
			audioFrames++
			continue
		}
		f := decodeFrame(t, payload)
		switch {
		case f.Type == "transcription":
			if f.ID != "item_9" || f.Text != "open the gallery" {
				t.Fatalf("unexpected transcription frame: %+v", f)
			}
			sawTranscription = true
		case f.Type == "control" && f.Action == "speech_started":
		case f.Type == "control" && f.Action == "text_done":
			sawDone = true
		case f.Type == "text_delta":
		default:
			t.Fatalf("unexpected frame %+v", f)
		}
	}
	if audioFrames != deltaCount {
		t.Fatalf("expected %d audio frames, got %d", deltaCount, audioFrames)
	}
}

func TestRelayReportsInputTranscription(t *testing.T) {
	upstream := scriptedUpstream(t, []map[string]any{
		{"type": "input_audio_buffer.speech_started", "item_id": "item_9"},
		{"type": "conversation.item.input_audio_transcription.completed", "item_id": "item_9", "transcript": "show me the gallery"},
	})
	conn := dialThroughRelay(t, upstream)
	readTextFrame(t, conn) // greeting

	started := readTextFrame(t, conn)
	if started.Type != "control" || started.Action != "speech_started" {
		t.Fatalf("expected speech_started control, got %+v", started)
	}

	transcription := readTextFrame(t, conn)
	if transcription.Type != "transcription" || transcription.ID != "item_9" {
		t.Fatalf("unexpected transcription frame: %+v", transcription)
	}
	if transcription.Text != "show me the gallery" {
		t.Fatalf("unexpected transcript %q", transcription.Text)
	}
}
