package discord

import (
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/event"

	"threadbot/conf"
	"threadbot/model"
	"threadbot/room"
)

func TestConvertMessage(t *testing.T) {
	t.Parallel()

	ts := time.UnixMilli(1700000000123)
	edited := ts.Add(time.Minute)
	tests := []struct {
		name string
		msg  *discordgo.Message
		want model.RawEvent
	}{
		{
			name: "text with mention",
			msg: &discordgo.Message{
				ID:        "1100",
				Content:   "<@42> hello",
				Timestamp: ts,
				Author:    &discordgo.User{ID: "7"},
				Mentions:  []*discordgo.User{{ID: "42"}},
			},
			want: model.RawEvent{
				ID: "1100", Sender: "7", Timestamp: 1700000000123, Position: 1100,
				Kind: event.MsgText, Body: "<@42> hello", Mentions: []string{"42"},
			},
		},
		{
			name: "edited bot message",
			msg: &discordgo.Message{
				ID:              "1200",
				Content:         "done",
				Timestamp:       ts,
				EditedTimestamp: &edited,
				Author:          &discordgo.User{ID: "9", Bot: true},
			},
			want: model.RawEvent{
				ID: "1200", Sender: "9", Timestamp: 1700000000123, Position: 1200,
				Kind: event.MsgNotice, Body: "done", Edited: true,
			},
		},
		{
			name: "image attachment",
			msg: &discordgo.Message{
				ID:        "1300",
				Timestamp: ts,
				Author:    &discordgo.User{ID: "7"},
				Attachments: []*discordgo.MessageAttachment{{
					Filename: "cat.png", ContentType: "image/png", URL: "https://cdn.example/cat.png",
				}},
			},
			want: model.RawEvent{
				ID: "1300", Sender: "7", Timestamp: 1700000000123, Position: 1300,
				Kind: event.MsgImage, FileName: "cat.png", MimeType: "image/png", MediaURL: "https://cdn.example/cat.png",
			},
		},
		{
			name: "system message",
			msg: &discordgo.Message{
				ID:        "1400",
				Type:      discordgo.MessageTypeChannelPinnedMessage,
				Timestamp: ts,
				Author:    &discordgo.User{ID: "7"},
			},
			want: model.RawEvent{
				ID: "1400", Sender: "7", Timestamp: 1700000000123, Position: 1400, Kind: kindSystem,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := convertMessage(tt.msg); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("convertMessage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	if err := mapError("get", notFound); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("404 mapped to %v, want ErrNotFound", err)
	}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	if err := mapError("get", forbidden); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("403 mapped to %v, want ErrNotFound", err)
	}
	boom := errors.New("boom")
	err := mapError("get", boom)
	if !errors.Is(err, model.ErrTransport) || !errors.Is(err, boom) {
		t.Errorf("opaque error mapped to %v, want transport error wrapping cause", err)
	}
}

func TestTriggerOf(t *testing.T) {
	t.Parallel()

	app, err := newApp(conf.Discord{Token: "test"}, []string{"500"}, 0, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	thread := &discordgo.Channel{ID: "900", ParentID: "500", Type: discordgo.ChannelTypeGuildPublicThread}
	trig, ok := app.triggerOf(&discordgo.Message{ID: "901", ChannelID: "900"}, thread)
	if !ok {
		t.Fatal("thread message not accepted")
	}
	if want := (model.Trigger{Source: model.DiscordType, RoomID: "500", ThreadID: "900", EventID: "901"}); trig != want {
		t.Errorf("trigger = %+v, want %+v", trig, want)
	}

	trig, ok = app.triggerOf(&discordgo.Message{ID: "777", ChannelID: "500"}, &discordgo.Channel{ID: "500", Type: discordgo.ChannelTypeGuildText})
	if !ok || trig.ThreadID != "777" || trig.RoomID != "500" {
		t.Errorf("top-level trigger = %+v, %v", trig, ok)
	}

	if _, ok := app.triggerOf(&discordgo.Message{ID: "1", ChannelID: "600"}, nil); ok {
		t.Error("message from unwatched channel accepted")
	}
}

func TestBotMentionDetected(t *testing.T) {
	t.Parallel()

	app, err := newApp(conf.Discord{Token: "test"}, []string{"500"}, 0, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	app.SelfID = "42"
	matcher := room.NewTokenMatcher([]string{app.SelfID}, nil)

	raw := convertMessage(&discordgo.Message{
		ID:        "1500",
		Content:   "<@42> summarize this thread",
		Timestamp: time.UnixMilli(1700000000000),
		Author:    &discordgo.User{ID: "7"},
		Mentions:  []*discordgo.User{{ID: "42"}},
	})
	body, mentioned := matcher.Match(model.NewMatrixMessage(raw, "alice"))
	if !mentioned || body != "summarize this thread" {
		t.Errorf("Match = %q, %v; want %q, true", body, mentioned, "summarize this thread")
	}

	raw = convertMessage(&discordgo.Message{
		ID:        "1501",
		Content:   "<@77> ping",
		Timestamp: time.UnixMilli(1700000000000),
		Author:    &discordgo.User{ID: "7"},
		Mentions:  []*discordgo.User{{ID: "77"}},
	})
	if _, mentioned := matcher.Match(model.NewMatrixMessage(raw, "alice")); mentioned {
		t.Error("mention of another user reported as bot mention")
	}
}
