package model

import "maunium.net/go/mautrix/event"

// RawEvent is the protocol-level view of one thread event as handed over by a
// transport. Kind uses Matrix msgtype names; other platforms map onto them.
type RawEvent struct {
	ID        string
	Sender    string
	Timestamp int64
	// Position orders events inside the thread, lower is older.
	Position int64

	Kind       event.MessageType
	Body       string
	Attachment string // base64, empty when the transport carried no bytes
	MediaURL   string
	FileName   string
	MimeType   string
	Mentions   []string

	Replaces string // set on edit events
	Redacts  string // set on redaction events
	Redacted bool
	Edited   bool
}

func (e RawEvent) IsEdit() bool {
	return len(e.Replaces) != 0
}

func (e RawEvent) IsRedaction() bool {
	return len(e.Redacts) != 0
}

// Page is one bounded slice of a thread. An empty NextCursor marks the end of
// the thread.
type Page struct {
	Events     []RawEvent
	NextCursor string
}
