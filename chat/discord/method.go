package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"maunium.net/go/mautrix/event"

	"threadbot/model"
	"threadbot/utils"
)

const (
	defaultPageSize = 100
	maxPageSize     = 100
	kindSystem      = event.MessageType("com.discord.system")
)

// FetchThreadPage serves the starter message from the parent channel on the
// first page, then the thread channel's messages after the cursor snowflake.
// A message that never grew a thread yields just itself.
func (a *App) FetchThreadPage(ctx context.Context, channelID, threadID, cursor string) (model.Page, error) {
	var page model.Page
	opt := discordgo.WithContext(ctx)
	if len(cursor) == 0 {
		root, err := a.cli.ChannelMessage(channelID, threadID, opt)
		if err != nil && !isStatus(err, http.StatusNotFound) {
			return page, mapError("get starter message", err)
		}
		if root != nil {
			page.Events = append(page.Events, convertMessage(root))
		}
		cursor = threadID
	}
	size := utils.IfElse(a.pageSize > 0 && a.pageSize <= maxPageSize, a.pageSize, defaultPageSize)
	msgs, err := a.cli.ChannelMessages(threadID, size, "", cursor, "", opt)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return page, nil
		}
		return model.Page{}, mapError("get thread messages", err)
	}
	last := cursor
	for _, m := range msgs {
		page.Events = append(page.Events, convertMessage(m))
		if snowflake(m.ID) > snowflake(last) {
			last = m.ID
		}
	}
	if len(msgs) == size {
		page.NextCursor = last
	}
	return page, nil
}

func (a *App) QueryRoomNickname(ctx context.Context, channelID, sender string) (string, error) {
	ch, err := a.cli.State.Channel(channelID)
	if err != nil {
		if ch, err = a.cli.Channel(channelID, discordgo.WithContext(ctx)); err != nil {
			return "", mapError("get channel", err)
		}
	}
	if len(ch.GuildID) == 0 {
		return "", nil
	}
	member, err := a.cli.GuildMember(ch.GuildID, sender, discordgo.WithContext(ctx))
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return "", nil
		}
		return "", mapError("get guild member", err)
	}
	return member.Nick, nil
}

func (a *App) QueryProfileName(ctx context.Context, sender string) (string, error) {
	user, err := a.cli.User(sender, discordgo.WithContext(ctx))
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return "", nil
		}
		return "", mapError("get user", err)
	}
	return user.Username, nil
}

func convertMessage(m *discordgo.Message) model.RawEvent {
	raw := model.RawEvent{
		ID:        m.ID,
		Timestamp: m.Timestamp.UnixMilli(),
		Position:  snowflake(m.ID),
		Edited:    m.EditedTimestamp != nil,
		Body:      m.Content,
	}
	if m.Author != nil {
		raw.Sender = m.Author.ID
	}
	switch {
	case m.Type != discordgo.MessageTypeDefault && m.Type != discordgo.MessageTypeReply:
		raw.Kind = kindSystem
	case m.Author != nil && m.Author.Bot:
		raw.Kind = event.MsgNotice
	default:
		raw.Kind = event.MsgText
	}
	if len(m.Mentions) != 0 {
		raw.Mentions = utils.Map(m.Mentions, func(u *discordgo.User) string { return u.ID })
	}
	if len(m.Attachments) != 0 && raw.Kind != kindSystem {
		att := m.Attachments[0]
		raw.Kind = utils.IfElse(strings.HasPrefix(att.ContentType, "image/"), event.MsgImage, event.MsgFile)
		raw.FileName = att.Filename
		raw.MimeType = att.ContentType
		raw.MediaURL = att.URL
	}
	return raw
}

func snowflake(id string) int64 {
	v, _ := strconv.ParseInt(id, 10, 64)
	return v
}

func isStatus(err error, code int) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == code
}

func mapError(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case isStatus(err, http.StatusNotFound), isStatus(err, http.StatusForbidden):
		return fmt.Errorf("%s: %w: %v", op, model.ErrNotFound, err)
	}
	return model.NewTransportError(op, err)
}
