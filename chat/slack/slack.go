package slack

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"threadbot/conf"
	"threadbot/model"
)

type Invalidator interface {
	Invalidate(roomID, sender string)
}

type App struct {
	TeamID string
	SelfID string
	BotID  string

	cli      *socketmode.Client
	pageSize int
	log      zerolog.Logger

	lock        sync.RWMutex
	subscribers []func(model.Trigger)
	invalidator Invalidator
}

func NewClient(ctx context.Context, c conf.Slack, pageSize int, log zerolog.Logger) (*App, error) {
	if len(c.Token) == 0 {
		return nil, fmt.Errorf("slack: token is required")
	}
	app := new(App)
	app.log = log.With().Str("component", "slack").Logger()
	app.pageSize = pageSize
	app.cli = socketmode.New(slack.New(c.Token,
		slack.OptionDebug(false),
		slack.OptionAppLevelToken(c.AppLevelToken)),
		socketmode.OptionDebug(false))

	rsp, err := app.cli.AuthTestContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("slack: auth test: %w", err)
	}
	app.log.Info().Str("team", rsp.TeamID).Str("user", rsp.UserID).Msg("connected")
	app.TeamID = rsp.TeamID
	app.SelfID = rsp.UserID
	app.BotID = rsp.BotID
	return app, nil
}

func (c *App) Source() model.TypeSource {
	return model.SlackType
}

func (c *App) Subscribe(fn func(model.Trigger)) {
	c.lock.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.lock.Unlock()
}

func (c *App) SetInvalidator(inv Invalidator) {
	c.lock.Lock()
	c.invalidator = inv
	c.lock.Unlock()
}

// Start runs the socket-mode event loop in the background. Without an
// app-level token only the fetch side is usable.
func (c *App) Start(ctx context.Context) {
	handler := socketmode.NewSocketmodeHandler(c.cli)
	handler.Handle(socketmode.EventTypeConnecting, func(event *socketmode.Event, client *socketmode.Client) {
		c.log.Debug().Msg("connecting")
	})
	handler.Handle(socketmode.EventTypeConnectionError, func(event *socketmode.Event, client *socketmode.Client) {
		c.log.Warn().Msg("connection failed, retrying later")
	})
	handler.Handle(socketmode.EventTypeConnected, func(event *socketmode.Event, client *socketmode.Client) {
		c.log.Info().Msg("connected")
	})
	handler.Handle(socketmode.EventTypeEventsAPI, func(event *socketmode.Event, client *socketmode.Client) {
		apiEvent, ok := event.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		c.cli.Ack(*event.Request)
		c.handlerEvent(apiEvent)
	})
	go func() {
		if err := handler.RunEventLoopContext(ctx); err != nil && ctx.Err() == nil {
			c.log.Error().Err(err).Msg("event loop stopped")
		}
	}()
}

func (c *App) handlerEvent(event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if trig, ok := c.triggerOf(ev); ok {
			c.publish(trig)
		}
	case *slackevents.MemberJoinedChannelEvent:
		c.lock.RLock()
		inv := c.invalidator
		c.lock.RUnlock()
		if inv != nil {
			inv.Invalidate(ev.Channel, ev.User)
		}
	default:
		c.log.Debug().Str("type", event.InnerEvent.Type).Msg("unsupported callback event")
	}
}

// triggerOf keeps new messages from other users in public and private
// channels. Edits and deletions arrive as subtypes and are not triggers.
func (c *App) triggerOf(ev *slackevents.MessageEvent) (model.Trigger, bool) {
	if ev.ChannelType != "channel" && ev.ChannelType != "group" {
		return model.Trigger{}, false
	}
	if len(ev.SubType) != 0 && ev.SubType != "file_share" && ev.SubType != "thread_broadcast" {
		return model.Trigger{}, false
	}
	if ev.User == c.SelfID || (len(ev.BotID) != 0 && ev.BotID == c.BotID) {
		return model.Trigger{}, false
	}
	trig := model.Trigger{
		Source:   model.SlackType,
		RoomID:   ev.Channel,
		ThreadID: ev.TimeStamp,
		EventID:  ev.TimeStamp,
	}
	if len(ev.ThreadTimeStamp) != 0 {
		trig.ThreadID = ev.ThreadTimeStamp
	}
	return trig, true
}

func (c *App) publish(trig model.Trigger) {
	c.lock.RLock()
	subs := append(([]func(model.Trigger))(nil), c.subscribers...)
	c.lock.RUnlock()
	for _, fn := range subs {
		fn(trig)
	}
}
