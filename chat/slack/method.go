package slack

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
	"maunium.net/go/mautrix/event"

	"threadbot/model"
	"threadbot/utils"
)

const defaultPageSize = 100

var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]*)?>`)

var notFoundErrors = []string{"channel_not_found", "thread_not_found", "not_in_channel", "message_not_found"}

func (c *App) FetchThreadPage(ctx context.Context, channelID, threadTS, cursor string) (model.Page, error) {
	size := c.pageSize
	if size <= 0 {
		size = defaultPageSize
	}
	msgs, hasMore, next, err := c.cli.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Cursor:    cursor,
		Limit:     size,
	})
	if err != nil {
		return model.Page{}, mapError("conversations.replies", err)
	}
	page := model.Page{Events: utils.Map(msgs, convertMessage)}
	if hasMore {
		page.NextCursor = next
	}
	return page, nil
}

// QueryRoomNickname always misses: Slack has no per-channel names.
func (c *App) QueryRoomNickname(context.Context, string, string) (string, error) {
	return "", nil
}

func (c *App) QueryProfileName(ctx context.Context, sender string) (string, error) {
	user, err := c.cli.GetUserInfoContext(ctx, sender)
	if err != nil {
		if strings.Contains(err.Error(), "user_not_found") {
			return "", nil
		}
		return "", mapError("users.info", err)
	}
	for _, name := range []string{user.Profile.DisplayName, user.RealName, user.Name} {
		if len(name) != 0 {
			return name, nil
		}
	}
	return "", nil
}

func convertMessage(msg slack.Message) model.RawEvent {
	ts := utils.ParseSlackTimestamp(msg.Timestamp)
	raw := model.RawEvent{
		ID:        msg.Timestamp,
		Sender:    utils.IfElse(len(msg.User) != 0, msg.User, msg.BotID),
		Timestamp: ts / 1e6,
		Position:  ts,
		Edited:    msg.Edited != nil,
	}
	if msg.SubType == "tombstone" || msg.SubType == "message_deleted" {
		raw.Redacted = true
		return raw
	}
	raw.Kind = utils.IfElse(msg.SubType == "bot_message", event.MsgNotice, event.MsgText)
	raw.Body = msg.Text
	for _, m := range mentionPattern.FindAllStringSubmatch(msg.Text, -1) {
		raw.Mentions = append(raw.Mentions, m[1])
	}
	raw.Mentions = utils.Unique(raw.Mentions)
	if len(msg.Files) != 0 {
		file := msg.Files[0]
		raw.Kind = utils.IfElse(strings.HasPrefix(file.Mimetype, "image/"), event.MsgImage, event.MsgFile)
		raw.FileName = file.Name
		raw.MimeType = file.Mimetype
		raw.MediaURL = utils.IfElse(len(file.URLPrivateDownload) != 0, file.URLPrivateDownload, file.URLPrivate)
	}
	return raw
}

func mapError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	for _, code := range notFoundErrors {
		if strings.Contains(err.Error(), code) {
			return fmt.Errorf("%s: %w: %v", op, model.ErrNotFound, err)
		}
	}
	return model.NewTransportError(op, err)
}
