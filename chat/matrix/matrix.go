package matrix

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/crypto/cryptohelper"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"threadbot/conf"
	"threadbot/model"
)

// Invalidator is told about membership changes so cached names can be
// refreshed.
type Invalidator interface {
	Invalidate(roomID, sender string)
}

type App struct {
	cli    *mautrix.Client
	selfID id.UserID
	rooms  []id.RoomID
	conf   conf.Matrix
	log    zerolog.Logger

	lock        sync.RWMutex
	subscribers []func(model.Trigger)
	invalidator Invalidator
}

func NewClient(ctx context.Context, c conf.Matrix, rooms []string, log zerolog.Logger) (*App, error) {
	if len(c.Host) == 0 || len(c.User) == 0 || len(c.Password) == 0 {
		return nil, fmt.Errorf("matrix: host, user and password are required")
	}
	app := new(App)
	app.conf = c
	app.log = log.With().Str("component", "matrix").Logger()
	for _, r := range rooms {
		app.rooms = append(app.rooms, id.RoomID(r))
	}
	cli, err := mautrix.NewClient(c.Host, "", "")
	if err != nil {
		return nil, fmt.Errorf("matrix: create client: %w", err)
	}
	cli.Log = app.log.With().Str("component", "mautrix").Logger()
	app.cli = cli

	login := &mautrix.ReqLogin{
		Type:             mautrix.AuthTypePassword,
		Identifier:       mautrix.UserIdentifier{Type: mautrix.IdentifierTypeUser, User: c.User},
		Password:         c.Password,
		StoreCredentials: true,
	}
	if len(c.CryptoStorePath) != 0 {
		cryptoHelper, err := cryptohelper.NewCryptoHelper(cli, []byte(c.PickleKey), c.CryptoStorePath)
		if err != nil {
			return nil, fmt.Errorf("matrix: crypto helper: %w", err)
		}
		cryptoHelper.LoginAs = login
		if err = cryptoHelper.Init(ctx); err != nil {
			return nil, fmt.Errorf("matrix: crypto init: %w", err)
		}
		cli.Crypto = cryptoHelper
	} else if _, err = cli.Login(ctx, login); err != nil {
		return nil, fmt.Errorf("matrix: login: %w", err)
	}
	app.selfID = cli.UserID
	app.log.Info().Str("user", app.selfID.String()).Msg("logged in")
	return app, nil
}

func (a *App) Source() model.TypeSource {
	return model.MatrixType
}

func (a *App) SelfID() string {
	return a.selfID.String()
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

// Start joins the watched rooms and begins syncing in the background.
func (a *App) Start(ctx context.Context) {
	a.joinRoom(ctx, a.rooms...)
	syncer := a.cli.Syncer.(*mautrix.DefaultSyncer)
	syncer.FilterJSON = &mautrix.Filter{
		Room: &mautrix.RoomFilter{
			Rooms: a.rooms,
			State: &mautrix.FilterPart{
				Rooms: a.rooms,
			},
			Timeline: &mautrix.FilterPart{
				NotSenders: []id.UserID{a.selfID},
				Rooms:      a.rooms,
			},
		},
	}
	nowTime := time.Now()
	syncer.OnEventType(event.EventMessage, func(ctx context.Context, evt *event.Event) {
		if v := time.UnixMilli(evt.Timestamp).Sub(nowTime); v.Seconds() < -20 {
			a.log.Debug().Str("event", evt.ID.String()).Float64("age", -v.Seconds()).Msg("skip backlog message")
			return
		}
		if evt.Sender == a.selfID {
			return
		}
		a.handlerMessage(evt)
	})
	syncer.OnEventType(event.StateMember, func(ctx context.Context, evt *event.Event) {
		if evt.StateKey == nil {
			return
		}
		a.lock.RLock()
		inv := a.invalidator
		a.lock.RUnlock()
		if inv != nil {
			inv.Invalidate(evt.RoomID.String(), *evt.StateKey)
		}
	})
	go func() {
		if err := a.cli.SyncWithContext(ctx); err != nil && ctx.Err() == nil {
			a.log.Error().Err(err).Msg("sync stopped")
		}
	}()
}

func (a *App) handlerMessage(evt *event.Event) {
	trig, ok := triggerOf(evt)
	if !ok {
		return
	}
	a.lock.RLock()
	subs := append(([]func(model.Trigger))(nil), a.subscribers...)
	a.lock.RUnlock()
	for _, fn := range subs {
		fn(trig)
	}
}

// triggerOf maps an incoming message onto the thread it belongs to. Edits are
// not triggers; a message outside any thread is the root of its own.
func triggerOf(evt *event.Event) (model.Trigger, bool) {
	em := evt.Content.AsMessage()
	trig := model.Trigger{
		Source:   model.MatrixType,
		RoomID:   evt.RoomID.String(),
		ThreadID: evt.ID.String(),
		EventID:  evt.ID.String(),
	}
	if em.RelatesTo != nil {
		switch {
		case em.RelatesTo.Type == event.RelReplace:
			return trig, false
		case em.RelatesTo.Type == event.RelThread:
			trig.ThreadID = em.RelatesTo.EventID.String()
		}
	}
	return trig, true
}
