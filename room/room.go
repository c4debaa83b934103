package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"threadbot/format"
	"threadbot/model"
)

// Handler is the decision layer fed by the room loop.
type Handler interface {
	HandleInteraction(ctx context.Context, ic *model.InteractionContext) error
	// HandleFailure receives a rendered status line for a trigger that could
	// not be contextualized or handled.
	HandleFailure(ctx context.Context, trig model.Trigger, text string)
}

type ChatRoom struct {
	Name    string
	Receive chan model.Trigger
	builder *Builder
	handler Handler
	log     zerolog.Logger
}

func NewChatRoom(name string, builder *Builder, handler Handler, buffer int, log zerolog.Logger) *ChatRoom {
	if buffer <= 0 {
		buffer = 100
	}
	return &ChatRoom{
		Name:    name,
		Receive: make(chan model.Trigger, buffer),
		builder: builder,
		handler: handler,
		log:     log.With().Str("component", "room").Str("room", name).Logger(),
	}
}

func (c *ChatRoom) Loop(ctx context.Context) {
	c.log.Info().Msg("room loop running")
	for {
		select {
		case <-ctx.Done():
			return
		case trig := <-c.Receive:
			c.Dispatch(ctx, trig)
		}
	}
}

// Submit queues a trigger without blocking the transport that produced it.
// It reports false when the queue is full.
func (c *ChatRoom) Submit(trig model.Trigger) bool {
	select {
	case c.Receive <- trig:
		return true
	default:
		c.log.Warn().Str("source", trig.Source.String()).Str("event", trig.EventID).Msg("trigger queue full, dropping")
		return false
	}
}

func (c *ChatRoom) Dispatch(ctx context.Context, trig model.Trigger) {
	log := c.log.With().
		Str("source", trig.Source.String()).
		Str("chat", trig.RoomID).
		Str("thread", trig.ThreadID).
		Str("event", trig.EventID).
		Logger()

	ic, err := c.builder.BuildContext(ctx, trig)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		switch {
		case errors.Is(err, model.ErrTriggerNotFound):
			log.Error().Err(err).Msg("trigger missing from its own thread")
		case errors.Is(err, model.ErrIncomplete):
			log.Warn().Err(err).Msg("thread only partially fetched")
		default:
			log.Error().Err(err).Msg("failed to build interaction context")
		}
		c.handler.HandleFailure(ctx, trig, format.ErrorText(err))
		return
	}
	log.Debug().Int("messages", len(ic.Messages)).Bool("mention", ic.Trigger.IsMentioningBot).Msg("interaction context built")
	if err = c.handler.HandleInteraction(ctx, ic); err != nil {
		log.Error().Err(err).Msg("handler failed")
		c.handler.HandleFailure(ctx, trig, format.ErrorText(err))
		return
	}
	log.Info().Msg(format.CreateSuccessMessageText(fmt.Sprintf("handled %s", trig.EventID)))
}
