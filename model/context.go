package model

// AttachmentRef points at one attachment of a payload together with where it
// came from. Data is nil when the transport carried only a reference.
type AttachmentRef struct {
	RoomID   string
	Sender   string
	Type     MessageType
	Name     string
	MimeType string
	URL      string
	Data     []byte
}

// MessagePayload is the application-level form of a MatrixMessage handed to
// the decision layer.
type MessagePayload struct {
	Message     MatrixMessage
	RawBody     string
	Body        string // RawBody with the bot mention stripped
	Attachments []AttachmentRef
}

type InteractionTrigger struct {
	IsMentioningBot bool
	Payload         MessagePayload
}

// InteractionContext is what the decision layer receives for one trigger.
// Messages holds the whole thread in ThreadInfo order.
type InteractionContext struct {
	Thread   ThreadInfo
	Messages []MatrixMessage
	Trigger  InteractionTrigger
}

func NewMessagePayload(roomID string, msg MatrixMessage, body string) MessagePayload {
	p := MessagePayload{
		Message: msg,
		RawBody: msg.Body,
		Body:    body,
	}
	if msg.Attachment != nil {
		p.Attachments = append(p.Attachments, AttachmentRef{
			RoomID:   roomID,
			Sender:   msg.Sender,
			Type:     msg.Type,
			Name:     msg.Attachment.Name,
			MimeType: msg.Attachment.Type,
			URL:      msg.Attachment.URL,
			Data:     msg.Attachment.Data,
		})
	}
	return p
}
