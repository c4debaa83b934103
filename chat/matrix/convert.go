package matrix

import (
	"errors"

	"maunium.net/go/mautrix/event"

	"threadbot/model"
)

// convertEvent maps one room event onto a RawEvent. Events that cannot be
// part of a thread's visible history (reactions, state) are skipped.
func convertEvent(evt *event.Event) (model.RawEvent, bool) {
	if evt.Content.Parsed == nil {
		if err := evt.Content.ParseRaw(evt.Type); err != nil && !errors.Is(err, event.ErrContentAlreadyParsed) {
			if evt.Type != event.EventEncrypted {
				return model.RawEvent{}, false
			}
		}
	}
	raw := model.RawEvent{
		ID:        evt.ID.String(),
		Sender:    evt.Sender.String(),
		Timestamp: evt.Timestamp,
		Position:  evt.Timestamp,
		Redacted:  evt.Unsigned.RedactedBecause != nil,
	}
	switch evt.Type {
	case event.EventRedaction:
		target := evt.Content.AsRedaction().Redacts
		if len(target) == 0 {
			target = evt.Redacts
		}
		if len(target) == 0 {
			return model.RawEvent{}, false
		}
		raw.Redacts = target.String()
		return raw, true
	case event.EventEncrypted:
		raw.Kind = "m.encrypted"
		return raw, true
	case event.EventMessage, event.EventSticker:
	default:
		return model.RawEvent{}, false
	}
	if raw.Redacted {
		return raw, true
	}

	em := evt.Content.AsMessage()
	if em.RelatesTo != nil && em.RelatesTo.Type == event.RelReplace {
		raw.Replaces = em.RelatesTo.GetReplaceID().String()
		if em.NewContent != nil {
			em = em.NewContent
		}
	}
	raw.Kind = em.MsgType
	if evt.Type == event.EventSticker {
		raw.Kind = event.MsgImage
	}
	raw.Body = em.Body
	if em.Mentions != nil {
		for _, uid := range em.Mentions.UserIDs {
			raw.Mentions = append(raw.Mentions, uid.String())
		}
	}
	switch {
	case len(em.URL) != 0:
		raw.MediaURL = string(em.URL)
	case em.File != nil:
		raw.MediaURL = string(em.File.URL)
	}
	if len(raw.MediaURL) != 0 {
		raw.FileName = em.FileName
		if len(raw.FileName) == 0 {
			raw.FileName = em.Body
		}
		if em.Info != nil {
			raw.MimeType = em.Info.MimeType
		}
	}
	return raw, true
}

// encryptedFile returns the key material of evt's media in an encrypted
// room, nil for plain media.
func encryptedFile(evt *event.Event) *event.EncryptedFileInfo {
	em, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok {
		return nil
	}
	if em.RelatesTo != nil && em.RelatesTo.Type == event.RelReplace && em.NewContent != nil {
		em = em.NewContent
	}
	if len(em.URL) != 0 {
		return nil
	}
	return em.File
}

// decryptMedia turns downloaded bytes into plaintext. file may be nil.
func decryptMedia(data []byte, file *event.EncryptedFileInfo) ([]byte, error) {
	if file == nil {
		return data, nil
	}
	if err := file.DecryptInPlace(data); err != nil {
		return nil, err
	}
	return data, nil
}
