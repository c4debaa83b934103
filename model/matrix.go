package model

import (
	"slices"

	"maunium.net/go/mautrix/event"

	"threadbot/codec"
)

type MessageType int

const (
	MessageTypeText MessageType = iota
	MessageTypeNotice
	MessageTypeImage
	MessageTypeFile
	MessageTypeRedacted
	MessageTypeUnknown
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeText:
		return "Text"
	case MessageTypeNotice:
		return "Notice"
	case MessageTypeImage:
		return "Image"
	case MessageTypeFile:
		return "File"
	case MessageTypeRedacted:
		return "Redacted"
	}
	return "Unknown"
}

// ClassifyKind maps a declared content kind onto the closed MessageType set.
func ClassifyKind(kind event.MessageType) MessageType {
	switch kind {
	case event.MsgText, event.MsgEmote:
		return MessageTypeText
	case event.MsgNotice:
		return MessageTypeNotice
	case event.MsgImage:
		return MessageTypeImage
	case event.MsgFile, event.MsgVideo, event.MsgAudio:
		return MessageTypeFile
	}
	return MessageTypeUnknown
}

// MatrixMessage is the normalized form of one thread event after edits and
// redactions have been applied. It is never mutated once built.
type MatrixMessage struct {
	ID          string
	Sender      string
	DisplayName string
	Type        MessageType
	Body        string
	Attachment  *Attachment
	Mentions    []string
	Timestamp   int64
	Position    int64
	Edited      bool
}

// NewMatrixMessage builds the entity for raw, which must already carry its
// latest edit. A malformed attachment degrades the message to Unknown.
func NewMatrixMessage(raw RawEvent, displayName string) MatrixMessage {
	msg, _ := DecodeMatrixMessage(raw, displayName)
	return msg
}

// DecodeMatrixMessage is NewMatrixMessage that also reports false when the
// attachment could not be decoded and the message was degraded.
func DecodeMatrixMessage(raw RawEvent, displayName string) (MatrixMessage, bool) {
	msg := MatrixMessage{
		ID:          raw.ID,
		Sender:      raw.Sender,
		DisplayName: displayName,
		Timestamp:   raw.Timestamp,
		Position:    raw.Position,
		Edited:      raw.Edited,
	}
	if raw.Redacted {
		msg.Type = MessageTypeRedacted
		return msg, true
	}
	msg.Type = ClassifyKind(raw.Kind)
	msg.Body = raw.Body
	msg.Mentions = slices.Clone(raw.Mentions)

	if len(raw.Attachment) == 0 && len(raw.MediaURL) == 0 {
		return msg, true
	}
	att := &Attachment{
		Name: raw.FileName,
		Type: raw.MimeType,
		URL:  raw.MediaURL,
	}
	if len(raw.Attachment) != 0 {
		data, err := codec.Decode(raw.Attachment)
		if err != nil {
			return MatrixMessage{
				ID:          raw.ID,
				Sender:      raw.Sender,
				DisplayName: displayName,
				Type:        MessageTypeUnknown,
				Timestamp:   raw.Timestamp,
				Position:    raw.Position,
				Edited:      raw.Edited,
			}, false
		}
		att.Data = data
	}
	msg.Attachment = att
	return msg, true
}

func (m MatrixMessage) HasAttachment() bool {
	return m.Attachment != nil
}
