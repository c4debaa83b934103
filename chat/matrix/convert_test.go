package matrix

import (
	"bytes"
	"slices"
	"testing"

	"maunium.net/go/mautrix/crypto/attachment"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"threadbot/model"
)

func messageEvent(eventID string, content *event.MessageEventContent) *event.Event {
	return &event.Event{
		ID:        id.EventID(eventID),
		Type:      event.EventMessage,
		Sender:    "@alice:example.org",
		RoomID:    "!room:example.org",
		Timestamp: 1700000000000,
		Content:   event.Content{Parsed: content},
	}
}

func TestConvertText(t *testing.T) {
	t.Parallel()

	raw, ok := convertEvent(messageEvent("$1", &event.MessageEventContent{
		MsgType:  event.MsgText,
		Body:     "hello @bot:example.org",
		Mentions: &event.Mentions{UserIDs: []id.UserID{"@bot:example.org"}},
	}))
	if !ok {
		t.Fatalf("text event skipped")
	}
	if raw.ID != "$1" || raw.Sender != "@alice:example.org" || raw.Kind != event.MsgText || raw.Body != "hello @bot:example.org" {
		t.Errorf("raw = %+v", raw)
	}
	if raw.Position != 1700000000000 || raw.Timestamp != 1700000000000 {
		t.Errorf("position = %d, timestamp = %d", raw.Position, raw.Timestamp)
	}
	if !slices.Equal(raw.Mentions, []string{"@bot:example.org"}) {
		t.Errorf("mentions = %v", raw.Mentions)
	}
}

func TestConvertEdit(t *testing.T) {
	t.Parallel()

	raw, ok := convertEvent(messageEvent("$2", &event.MessageEventContent{
		MsgType:    event.MsgText,
		Body:       "* fixed",
		NewContent: &event.MessageEventContent{MsgType: event.MsgText, Body: "fixed"},
		RelatesTo:  &event.RelatesTo{Type: event.RelReplace, EventID: "$1"},
	}))
	if !ok || raw.Replaces != "$1" || raw.Body != "fixed" {
		t.Errorf("edit = %+v, ok %v", raw, ok)
	}
}

func TestConvertImage(t *testing.T) {
	t.Parallel()

	raw, _ := convertEvent(messageEvent("$3", &event.MessageEventContent{
		MsgType: event.MsgImage,
		Body:    "cat.png",
		URL:     "mxc://example.org/cat",
		Info:    &event.FileInfo{MimeType: "image/png"},
	}))
	if raw.Kind != event.MsgImage || raw.MediaURL != "mxc://example.org/cat" || raw.FileName != "cat.png" || raw.MimeType != "image/png" {
		t.Errorf("image = %+v", raw)
	}
}

func TestConvertRedacted(t *testing.T) {
	t.Parallel()

	evt := messageEvent("$4", &event.MessageEventContent{})
	evt.Unsigned.RedactedBecause = &event.Event{ID: "$r", Type: event.EventRedaction}
	raw, ok := convertEvent(evt)
	if !ok || !raw.Redacted || raw.Body != "" {
		t.Errorf("redacted = %+v, ok %v", raw, ok)
	}

	redaction := &event.Event{
		ID:      "$r",
		Type:    event.EventRedaction,
		Sender:  "@alice:example.org",
		Content: event.Content{Parsed: &event.RedactionEventContent{Redacts: "$4"}},
	}
	raw, ok = convertEvent(redaction)
	if !ok || raw.Redacts != "$4" {
		t.Errorf("redaction = %+v, ok %v", raw, ok)
	}
}

func TestConvertSkipsReactions(t *testing.T) {
	t.Parallel()

	evt := &event.Event{
		ID:   "$5",
		Type: event.EventReaction,
		Content: event.Content{Parsed: &event.ReactionEventContent{
			RelatesTo: event.RelatesTo{Type: event.RelAnnotation, EventID: "$1", Key: "👍"},
		}},
	}
	if _, ok := convertEvent(evt); ok {
		t.Errorf("reaction converted")
	}
}

func TestTriggerOf(t *testing.T) {
	t.Parallel()

	reply := messageEvent("$6", &event.MessageEventContent{
		MsgType:   event.MsgText,
		Body:      "in thread",
		RelatesTo: &event.RelatesTo{Type: event.RelThread, EventID: "$root"},
	})
	trig, ok := triggerOf(reply)
	want := model.Trigger{Source: model.MatrixType, RoomID: "!room:example.org", ThreadID: "$root", EventID: "$6"}
	if !ok || trig != want {
		t.Errorf("thread reply trigger = %+v, ok %v", trig, ok)
	}

	top, ok := triggerOf(messageEvent("$7", &event.MessageEventContent{MsgType: event.MsgText, Body: "hi"}))
	if !ok || top.ThreadID != "$7" {
		t.Errorf("top-level trigger = %+v", top)
	}

	edit := messageEvent("$8", &event.MessageEventContent{
		MsgType:   event.MsgText,
		RelatesTo: &event.RelatesTo{Type: event.RelReplace, EventID: "$7"},
	})
	if _, ok := triggerOf(edit); ok {
		t.Errorf("edit produced a trigger")
	}
}

func TestEncryptedMedia(t *testing.T) {
	t.Parallel()

	plain := []byte("\x89PNG image bytes")
	ef := attachment.NewEncryptedFile()
	cipher := bytes.Clone(plain)
	ef.EncryptInPlace(cipher)

	evt := messageEvent("$enc", &event.MessageEventContent{
		MsgType: event.MsgImage,
		Body:    "cat.png",
		File:    &event.EncryptedFileInfo{EncryptedFile: *ef, URL: "mxc://example.org/enc"},
	})
	raw, ok := convertEvent(evt)
	if !ok || raw.MediaURL != "mxc://example.org/enc" {
		t.Fatalf("raw = %+v, ok = %v", raw, ok)
	}
	file := encryptedFile(evt)
	if file == nil {
		t.Fatal("encrypted file info not found")
	}
	got, err := decryptMedia(bytes.Clone(cipher), file)
	if err != nil {
		t.Fatalf("decryptMedia: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("decrypted = %q, want %q", got, plain)
	}

	tampered := bytes.Clone(cipher)
	tampered[0] ^= 0xff
	if _, err := decryptMedia(tampered, file); err == nil {
		t.Error("tampered ciphertext decrypted without error")
	}
}

func TestPlainMediaPassesThrough(t *testing.T) {
	t.Parallel()

	evt := messageEvent("$img", &event.MessageEventContent{
		MsgType: event.MsgImage,
		Body:    "cat.png",
		URL:     "mxc://example.org/plain",
	})
	if file := encryptedFile(evt); file != nil {
		t.Fatalf("plain media reported encrypted: %+v", file)
	}
	data := []byte("bytes")
	got, err := decryptMedia(data, nil)
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("decryptMedia = %q, %v", got, err)
	}
}
