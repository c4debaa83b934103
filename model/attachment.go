package model

// Attachment is decoded media carried by a MatrixMessage. Data is empty when
// only the reference (URL) is known.
type Attachment struct {
	Name string
	Type string
	URL  string
	Data []byte
}
