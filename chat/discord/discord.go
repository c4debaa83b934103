package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"threadbot/conf"
	"threadbot/model"
)

type Invalidator interface {
	InvalidateSender(sender string)
}

type App struct {
	SelfID string

	cli      *discordgo.Session
	watched  map[string]struct{}
	pageSize int
	log      zerolog.Logger

	lock        sync.RWMutex
	subscribers []func(model.Trigger)
	invalidator Invalidator
}

// NewClient creates the session and resolves the bot's own user, whose ID
// mentions of the bot carry.
func NewClient(ctx context.Context, c conf.Discord, channels []string, pageSize int, log zerolog.Logger) (*App, error) {
	app, err := newApp(c, channels, pageSize, log)
	if err != nil {
		return nil, err
	}
	me, err := app.cli.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord: get current user: %w", err)
	}
	app.SelfID = me.ID
	app.log.Info().Str("user", me.ID).Str("name", me.Username).Msg("connected")
	return app, nil
}

func newApp(c conf.Discord, channels []string, pageSize int, log zerolog.Logger) (*App, error) {
	if len(c.Token) == 0 {
		return nil, fmt.Errorf("discord: token is required")
	}
	app := new(App)
	app.log = log.With().Str("component", "discord").Logger()
	app.pageSize = pageSize
	app.watched = make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		app.watched[ch] = struct{}{}
	}
	cli, err := discordgo.New("Bot " + c.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	cli.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuildMembers | discordgo.IntentMessageContent
	app.cli = cli
	return app, nil
}

func (a *App) Source() model.TypeSource {
	return model.DiscordType
}

func (a *App) Subscribe(fn func(model.Trigger)) {
	a.lock.Lock()
	a.subscribers = append(a.subscribers, fn)
	a.lock.Unlock()
}

func (a *App) SetInvalidator(inv Invalidator) {
	a.lock.Lock()
	a.invalidator = inv
	a.lock.Unlock()
}

// Start opens the gateway and closes it again once ctx is done.
func (a *App) Start(ctx context.Context) error {
	a.cli.AddHandler(func(s *discordgo.Session, p *discordgo.Ready) {
		a.log.Info().Str("user", p.User.ID).Msg("gateway ready")
	})
	a.cli.AddHandler(func(s *discordgo.Session, c *discordgo.Disconnect) {
		a.log.Warn().Msg("gateway disconnected")
	})
	a.cli.AddHandler(func(s *discordgo.Session, msg *discordgo.MessageCreate) {
		if msg.Author == nil || msg.Author.ID == a.SelfID {
			return
		}
		var ch *discordgo.Channel
		if c, err := s.State.Channel(msg.ChannelID); err == nil {
			ch = c
		}
		if trig, ok := a.triggerOf(msg.Message, ch); ok {
			a.publish(trig)
		}
	})
	a.cli.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
		if m.Member == nil || m.User == nil {
			return
		}
		a.lock.RLock()
		inv := a.invalidator
		a.lock.RUnlock()
		if inv != nil {
			inv.InvalidateSender(m.User.ID)
		}
	})
	if err := a.cli.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}
	go func() {
		<-ctx.Done()
		if err := a.cli.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close session")
		}
	}()
	return nil
}

// triggerOf resolves the thread a message belongs to. ch is the channel the
// message was posted in, nil when unknown.
func (a *App) triggerOf(msg *discordgo.Message, ch *discordgo.Channel) (model.Trigger, bool) {
	trig := model.Trigger{
		Source:   model.DiscordType,
		RoomID:   msg.ChannelID,
		ThreadID: msg.ID,
		EventID:  msg.ID,
	}
	if ch != nil && isThread(ch.Type) {
		trig.RoomID = ch.ParentID
		trig.ThreadID = ch.ID
	}
	if _, ok := a.watched[trig.RoomID]; !ok {
		return model.Trigger{}, false
	}
	return trig, true
}

func (a *App) publish(trig model.Trigger) {
	a.lock.RLock()
	subs := append(([]func(model.Trigger))(nil), a.subscribers...)
	a.lock.RUnlock()
	for _, fn := range subs {
		fn(trig)
	}
}

func isThread(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread, discordgo.ChannelTypeGuildNewsThread:
		return true
	}
	return false
}
