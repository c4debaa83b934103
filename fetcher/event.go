package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"threadbot/model"
)

const DefaultPageBudget = 10

type EventFetcher struct {
	src      ThreadSource
	maxPages int
	log      zerolog.Logger
}

func NewEventFetcher(src ThreadSource, maxPages int, log zerolog.Logger) *EventFetcher {
	if maxPages <= 0 {
		maxPages = DefaultPageBudget
	}
	return &EventFetcher{
		src:      src,
		maxPages: maxPages,
		log:      log.With().Str("component", "event-fetcher").Logger(),
	}
}

// FetchThread returns the thread's events oldest first with edits folded in
// and redactions applied. Nothing is returned unless every page was read.
func (f *EventFetcher) FetchThread(ctx context.Context, roomID, threadID string) ([]model.RawEvent, error) {
	if len(roomID) == 0 || len(threadID) == 0 {
		return nil, fmt.Errorf("fetch thread %q in %q: %w", threadID, roomID, model.ErrNotFound)
	}
	var (
		events []model.RawEvent
		cursor string
	)
	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if page >= f.maxPages {
			return nil, fmt.Errorf("fetch thread %s after %d pages: %w", threadID, page, model.ErrIncomplete)
		}
		p, err := f.src.FetchThreadPage(ctx, roomID, threadID, cursor)
		if err != nil {
			return nil, f.pageError(ctx, threadID, page, err)
		}
		events = append(events, p.Events...)
		if len(p.NextCursor) == 0 {
			break
		}
		if p.NextCursor == cursor {
			return nil, model.NewTransportError("fetch thread page", fmt.Errorf("cursor %q did not advance", cursor))
		}
		cursor = p.NextCursor
	}

	resolved, dropped := Resolve(events)
	if len(resolved) == 0 {
		return nil, fmt.Errorf("fetch thread %s: no events: %w", threadID, model.ErrNotFound)
	}
	if dropped > 0 {
		f.log.Debug().Str("room", roomID).Str("thread", threadID).Int("dropped", dropped).Msg("dropped edits without a matching original")
	}
	return resolved, nil
}

func (f *EventFetcher) pageError(ctx context.Context, threadID string, page int, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return model.NewTransportError("fetch thread page", err)
	}
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrTransport) {
		return fmt.Errorf("fetch thread %s page %d: %w", threadID, page, err)
	}
	return model.NewTransportError("fetch thread page", err)
}

// ThreadInfoOf snapshots the ordering of already resolved events.
func ThreadInfoOf(source model.TypeSource, roomID, threadID string, events []model.RawEvent) model.ThreadInfo {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return model.ThreadInfo{Source: source, RoomID: roomID, ThreadID: threadID, EventIDs: ids}
}

// Resolve folds edit and redaction events into the events they target and
// returns one event per original, ordered by thread position. dropped counts
// edits that had no valid original.
func Resolve(events []model.RawEvent) (resolved []model.RawEvent, dropped int) {
	seen := make(map[string]struct{}, len(events))
	var edits []model.RawEvent
	redacted := make(map[string]struct{})
	for _, e := range events {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		switch {
		case e.IsRedaction():
			redacted[e.Redacts] = struct{}{}
		case e.IsEdit():
			edits = append(edits, e)
		default:
			resolved = append(resolved, e)
		}
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		if resolved[i].Position != resolved[j].Position {
			return resolved[i].Position < resolved[j].Position
		}
		return resolved[i].ID < resolved[j].ID
	})

	index := make(map[string]int, len(resolved))
	for i := range resolved {
		index[resolved[i].ID] = i
		if _, ok := redacted[resolved[i].ID]; ok {
			resolved[i].Redacted = true
		}
	}

	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].Timestamp != edits[j].Timestamp {
			return edits[i].Timestamp < edits[j].Timestamp
		}
		return edits[i].ID < edits[j].ID
	})
	for _, edit := range edits {
		if _, ok := redacted[edit.ID]; ok {
			continue
		}
		i, ok := index[edit.Replaces]
		if !ok || resolved[i].Sender != edit.Sender {
			dropped++
			continue
		}
		applyEdit(&resolved[i], edit)
	}

	for i := range resolved {
		if resolved[i].Redacted {
			clearContent(&resolved[i])
		}
	}
	return resolved, dropped
}

func applyEdit(target *model.RawEvent, edit model.RawEvent) {
	target.Kind = edit.Kind
	target.Body = edit.Body
	target.Attachment = edit.Attachment
	target.MediaURL = edit.MediaURL
	target.FileName = edit.FileName
	target.MimeType = edit.MimeType
	target.Mentions = edit.Mentions
	target.Edited = true
}

func clearContent(e *model.RawEvent) {
	e.Kind = ""
	e.Body = ""
	e.Attachment = ""
	e.MediaURL = ""
	e.FileName = ""
	e.MimeType = ""
	e.Mentions = nil
	e.Edited = false
}
