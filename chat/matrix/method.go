package matrix

import (
	"context"
	"errors"
	"fmt"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"threadbot/codec"
	"threadbot/model"
)

const defaultPageSize = 50

func (a *App) joinRoom(ctx context.Context, roomID ...id.RoomID) {
	for _, rid := range roomID {
		if v, err := a.cli.JoinRoomByID(ctx, rid); err != nil {
			a.log.Warn().Err(err).Str("room", rid.String()).Msg("join room failed")
		} else {
			a.log.Info().Str("room", v.RoomID.String()).Msg("joined room")
		}
	}
}

// FetchThreadPage serves the root on the first page followed by the thread's
// relations in server order. Relations are fetched recursively so edits of
// replies come along.
func (a *App) FetchThreadPage(ctx context.Context, roomID, threadID, cursor string) (model.Page, error) {
	var page model.Page
	if len(cursor) == 0 {
		root, err := a.cli.GetEvent(ctx, id.RoomID(roomID), id.EventID(threadID))
		if err != nil {
			return page, mapError("get thread root", err)
		}
		if raw, ok := a.convert(ctx, root); ok {
			page.Events = append(page.Events, raw)
		}
	}
	size := a.conf.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	resp, err := a.cli.GetRelations(ctx, id.RoomID(roomID), id.EventID(threadID), &mautrix.ReqGetRelations{
		Dir:     mautrix.DirectionForward,
		From:    cursor,
		Limit:   size,
		Recurse: true,
	})
	if err != nil {
		return model.Page{}, mapError("get thread relations", err)
	}
	for _, evt := range resp.Chunk {
		if evt.RoomID == "" {
			evt.RoomID = id.RoomID(roomID)
		}
		if raw, ok := a.convert(ctx, evt); ok {
			page.Events = append(page.Events, raw)
		}
	}
	page.NextCursor = resp.NextBatch
	return page, nil
}

func (a *App) convert(ctx context.Context, evt *event.Event) (model.RawEvent, bool) {
	if evt.Type == event.EventEncrypted && a.cli.Crypto != nil {
		if err := evt.Content.ParseRaw(evt.Type); err != nil && !errors.Is(err, event.ErrContentAlreadyParsed) {
			a.log.Debug().Err(err).Str("event", evt.ID.String()).Msg("unparseable encrypted event")
		} else if decrypted, err := a.cli.Crypto.Decrypt(ctx, evt); err != nil {
			a.log.Debug().Err(err).Str("event", evt.ID.String()).Msg("decrypt failed")
		} else {
			evt = decrypted
		}
	}
	raw, ok := convertEvent(evt)
	if !ok || !a.conf.DownloadMedia || len(raw.MediaURL) == 0 || raw.Redacted {
		return raw, ok
	}
	mxc, err := id.ContentURIString(raw.MediaURL).Parse()
	if err != nil {
		return raw, ok
	}
	data, err := a.cli.DownloadBytes(ctx, mxc)
	if err != nil {
		a.log.Debug().Err(err).Str("event", raw.ID).Msg("media download failed")
		return raw, ok
	}
	if a.conf.MaxMediaBytes > 0 && int64(len(data)) > a.conf.MaxMediaBytes {
		a.log.Debug().Str("event", raw.ID).Int("size", len(data)).Msg("media over size limit, keeping reference only")
		return raw, ok
	}
	if data, err = decryptMedia(data, encryptedFile(evt)); err != nil {
		a.log.Debug().Err(err).Str("event", raw.ID).Msg("media decrypt failed, keeping reference only")
		return raw, ok
	}
	raw.Attachment = codec.Encode(data)
	return raw, ok
}

func (a *App) QueryRoomNickname(ctx context.Context, roomID, sender string) (string, error) {
	var member event.MemberEventContent
	err := a.cli.StateEvent(ctx, id.RoomID(roomID), event.StateMember, sender, &member)
	if err != nil {
		if errors.Is(err, mautrix.MNotFound) {
			return "", nil
		}
		return "", mapError("get member state", err)
	}
	return member.Displayname, nil
}

func (a *App) QueryProfileName(ctx context.Context, sender string) (string, error) {
	resp, err := a.cli.GetDisplayName(ctx, id.UserID(sender))
	if err != nil {
		if errors.Is(err, mautrix.MNotFound) {
			return "", nil
		}
		return "", mapError("get display name", err)
	}
	return resp.DisplayName, nil
}

func mapError(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, mautrix.MNotFound), errors.Is(err, mautrix.MForbidden):
		return fmt.Errorf("%s: %w: %v", op, model.ErrNotFound, err)
	}
	return model.NewTransportError(op, err)
}
