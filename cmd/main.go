package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"threadbot/chat/discord"
	"threadbot/chat/matrix"
	"threadbot/chat/slack"
	"threadbot/conf"
	"threadbot/format"
	"threadbot/model"
	"threadbot/room"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	// init config
	conf.InitConf(ctx)
	c := conf.Conf

	var (
		selfIDs []string
		starts  []func(context.Context) error
	)
	matcher := &lazyMatcher{}
	builder := room.NewBuilder(matcher, c.Bot.PageBudget, c.Bot.NameCacheSize, log.Logger)
	router := newRouter(ctx, c, builder)

	if chats := c.GetMatrixChat(); len(chats) != 0 {
		app, err := matrix.NewClient(ctx, c.Matrix, chats, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("matrix client")
		}
		app.SetInvalidator(builder.Register(app))
		app.Subscribe(router.route)
		selfIDs = append(selfIDs, app.SelfID())
		starts = append(starts, func(ctx context.Context) error { app.Start(ctx); return nil })
	}
	if len(c.GetSlackChat()) != 0 {
		app, err := slack.NewClient(ctx, c.Slack, c.Bot.PageSize, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("slack client")
		}
		app.SetInvalidator(builder.Register(app))
		app.Subscribe(router.route)
		selfIDs = append(selfIDs, app.SelfID)
		starts = append(starts, func(ctx context.Context) error { app.Start(ctx); return nil })
	}
	if chats := c.GetDiscordChat(); len(chats) != 0 {
		app, err := discord.NewClient(ctx, c.Discord, chats, c.Bot.PageSize, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("discord client")
		}
		app.SetInvalidator(builder.Register(app))
		app.Subscribe(router.route)
		selfIDs = append(selfIDs, app.SelfID)
		starts = append(starts, app.Start)
	}
	matcher.set(room.NewTokenMatcher(selfIDs, c.Bot.MentionTokens))

	for _, start := range starts {
		if err := start(ctx); err != nil {
			log.Fatal().Err(err).Msg("start transport")
		}
	}
	go listenExit(cancel)
	<-ctx.Done()
}

func listenExit(cancel context.CancelFunc) {
	sign := make(chan os.Signal, 1)
	signal.Notify(sign, os.Interrupt, syscall.SIGTERM)
	s := <-sign
	log.Info().Str("signal", s.String()).Msg("exit")
	cancel()
}

// lazyMatcher lets the builder exist before the bot's own IDs are known.
type lazyMatcher struct {
	m room.MentionMatcher
}

func (l *lazyMatcher) set(m room.MentionMatcher) { l.m = m }

func (l *lazyMatcher) Match(msg model.MatrixMessage) (string, bool) {
	if l.m == nil {
		return msg.Body, false
	}
	return l.m.Match(msg)
}

// router hands each trigger to the room loop owning its chat.
type router struct {
	rooms map[string]*room.ChatRoom
}

func newRouter(ctx context.Context, c conf.Config, builder *room.Builder) *router {
	r := &router{rooms: make(map[string]*room.ChatRoom)}
	for _, rc := range c.Room {
		cr := room.NewChatRoom(rc.Name, builder, logHandler{}, c.Bot.QueueSize, log.Logger)
		for _, chat := range rc.Chat {
			for _, id := range chat.ChatID {
				r.rooms[id] = cr
			}
		}
		go cr.Loop(ctx)
	}
	return r
}

func (r *router) route(trig model.Trigger) {
	cr, ok := r.rooms[trig.RoomID]
	if !ok {
		log.Debug().Str("source", trig.Source.String()).Str("room", trig.RoomID).Msg("trigger from unrouted chat")
		return
	}
	if !cr.Submit(trig) {
		log.Warn().Str("room", cr.Name).Str("event", trig.EventID).Msg("room queue full, trigger dropped")
	}
}

// logHandler stands in for the decision layer and records what it was given.
type logHandler struct{}

func (logHandler) HandleInteraction(_ context.Context, ic *model.InteractionContext) error {
	l := log.With().
		Str("source", ic.Thread.Source.String()).
		Str("room", ic.Thread.RoomID).
		Str("thread", ic.Thread.ThreadID).
		Int("messages", len(ic.Messages)).
		Logger()
	if !ic.Trigger.IsMentioningBot {
		l.Debug().Msg(format.CreateTooltipMessageText("bot not mentioned, context only"))
		return nil
	}
	l.Info().
		Str("sender", ic.Trigger.Payload.Message.DisplayName).
		Str("body", ic.Trigger.Payload.Body).
		Int("attachments", len(ic.Trigger.Payload.Attachments)).
		Msg("interaction")
	return nil
}

func (logHandler) HandleFailure(_ context.Context, trig model.Trigger, text string) {
	log.Warn().Str("room", trig.RoomID).Str("event", trig.EventID).Msg(text)
}
