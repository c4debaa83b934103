package room

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"threadbot/fetcher"
	"threadbot/model"
)

const nameLookupConcurrency = 8

type platform struct {
	transport fetcher.Transport
	events    *fetcher.EventFetcher
	names     *fetcher.NameFetcher
}

// Builder turns a trigger into an InteractionContext using the transport
// registered for the trigger's platform.
type Builder struct {
	platforms  map[model.TypeSource]*platform
	matcher    MentionMatcher
	pageBudget int
	cacheSize  int
	log        zerolog.Logger
}

func NewBuilder(matcher MentionMatcher, pageBudget, cacheSize int, log zerolog.Logger) *Builder {
	return &Builder{
		platforms:  make(map[model.TypeSource]*platform),
		matcher:    matcher,
		pageBudget: pageBudget,
		cacheSize:  cacheSize,
		log:        log.With().Str("component", "context-builder").Logger(),
	}
}

// Register wires a transport in. The returned NameFetcher is the hook the
// transport calls when membership changes. Register is not safe to call
// once BuildContext is in use.
func (b *Builder) Register(t fetcher.Transport) *fetcher.NameFetcher {
	p := &platform{
		transport: t,
		events:    fetcher.NewEventFetcher(t, b.pageBudget, b.log),
		names:     fetcher.NewNameFetcher(t, b.cacheSize, b.log),
	}
	b.platforms[t.Source()] = p
	return p.names
}

// BuildContext fetches the thread of trig, resolves every sender and
// assembles the context. Errors wrap model.ErrNotFound, model.ErrIncomplete,
// model.ErrTransport or model.ErrTriggerNotFound.
func (b *Builder) BuildContext(ctx context.Context, trig model.Trigger) (*model.InteractionContext, error) {
	p, ok := b.platforms[trig.Source]
	if !ok {
		return nil, fmt.Errorf("no transport for %s: %w", trig.Source, model.ErrNotFound)
	}
	raw, err := p.events.FetchThread(ctx, trig.RoomID, trig.ThreadID)
	if err != nil {
		return nil, err
	}
	names := b.resolveNames(ctx, p.names, trig.RoomID, raw)
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	messages := make([]model.MatrixMessage, 0, len(raw))
	for _, e := range raw {
		msg, ok := model.DecodeMatrixMessage(e, names[e.Sender])
		if !ok {
			b.log.Warn().Str("room", trig.RoomID).Str("event", e.ID).Msg("malformed attachment, message degraded to unknown")
		}
		messages = append(messages, msg)
	}
	thread := fetcher.ThreadInfoOf(trig.Source, trig.RoomID, trig.ThreadID, raw)
	return Assemble(thread, messages, trig.EventID, b.matcher)
}

func (b *Builder) resolveNames(ctx context.Context, names *fetcher.NameFetcher, roomID string, events []model.RawEvent) map[string]string {
	var senders []string
	seen := make(map[string]struct{})
	for _, e := range events {
		if _, ok := seen[e.Sender]; ok {
			continue
		}
		seen[e.Sender] = struct{}{}
		senders = append(senders, e.Sender)
	}
	resolved := make([]string, len(senders))
	var g errgroup.Group
	g.SetLimit(nameLookupConcurrency)
	for i, s := range senders {
		g.Go(func() error {
			resolved[i] = names.DisplayName(ctx, roomID, s)
			return nil
		})
	}
	_ = g.Wait()
	result := make(map[string]string, len(senders))
	for i, s := range senders {
		result[s] = resolved[i]
	}
	return result
}

// Assemble builds the context from an already fetched thread. A triggerID
// missing from messages is a caller bug and yields model.ErrTriggerNotFound.
func Assemble(thread model.ThreadInfo, messages []model.MatrixMessage, triggerID string, matcher MentionMatcher) (*model.InteractionContext, error) {
	idx := -1
	for i := range messages {
		if messages[i].ID == triggerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s in thread %s", model.ErrTriggerNotFound, triggerID, thread.ThreadID)
	}
	trigger := messages[idx]
	body, mentioned := trigger.Body, false
	if matcher != nil {
		body, mentioned = matcher.Match(trigger)
	}
	thread.EventIDs = append([]string(nil), thread.EventIDs...)
	return &model.InteractionContext{
		Thread:   thread,
		Messages: append([]model.MatrixMessage(nil), messages...),
		Trigger: model.InteractionTrigger{
			IsMentioningBot: mentioned,
			Payload:         model.NewMessagePayload(thread.RoomID, trigger, body),
		},
	}, nil
}
