package fetcher

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"threadbot/utils/queue"
)

const DefaultNameCacheSize = 4096

type nameKey struct {
	room   string
	sender string
}

func (k nameKey) String() string {
	return k.room + "\x00" + k.sender
}

// NameFetcher resolves sender display names. Lookups never fail: when the
// transport has nothing, or errors, the sender id itself is returned.
type NameFetcher struct {
	src   NameSource
	group singleflight.Group
	log   zerolog.Logger

	lock     sync.Mutex
	cache    *queue.List[nameKey, string]
	gen      map[string]uint64
	inflight map[nameKey]struct{}
}

func NewNameFetcher(src NameSource, size int, log zerolog.Logger) *NameFetcher {
	if size <= 0 {
		size = DefaultNameCacheSize
	}
	return &NameFetcher{
		src:      src,
		log:      log.With().Str("component", "name-fetcher").Logger(),
		cache:    queue.NewList[nameKey, string](size),
		gen:      make(map[string]uint64),
		inflight: make(map[nameKey]struct{}),
	}
}

// DisplayName tries the cache, the room nickname, the global profile name
// and finally falls back to sender. Concurrent lookups of one key share a
// single transport query.
func (f *NameFetcher) DisplayName(ctx context.Context, roomID, sender string) string {
	if len(sender) == 0 {
		return sender
	}
	key := nameKey{room: roomID, sender: sender}
	f.lock.Lock()
	if name, ok := f.cache.Get(key); ok {
		f.lock.Unlock()
		return name
	}
	gen := f.gen[roomID]
	f.lock.Unlock()

	ch := f.group.DoChan(key.String(), func() (any, error) {
		return f.resolve(context.WithoutCancel(ctx), key, gen), nil
	})
	select {
	case res := <-ch:
		return res.Val.(string)
	case <-ctx.Done():
		return sender
	}
}

// resolve runs inside the flight. A flight for the same key may have
// completed between the caller's cache miss and this one starting.
func (f *NameFetcher) resolve(ctx context.Context, key nameKey, gen uint64) string {
	f.lock.Lock()
	name, ok := f.cache.Get(key)
	f.lock.Unlock()
	if ok {
		return name
	}
	return f.lookup(ctx, key, gen)
}

func (f *NameFetcher) lookup(ctx context.Context, key nameKey, gen uint64) string {
	f.lock.Lock()
	f.inflight[key] = struct{}{}
	f.lock.Unlock()
	defer func() {
		f.lock.Lock()
		delete(f.inflight, key)
		f.lock.Unlock()
	}()

	nick, err := f.src.QueryRoomNickname(ctx, key.room, key.sender)
	if err != nil {
		f.log.Debug().Err(err).Str("room", key.room).Str("sender", key.sender).Msg("room nickname query failed")
	}
	if len(nick) != 0 {
		f.store(key, gen, nick)
		return nick
	}
	name, err := f.src.QueryProfileName(ctx, key.sender)
	if err != nil {
		f.log.Debug().Err(err).Str("sender", key.sender).Msg("profile name query failed")
	}
	if len(name) != 0 {
		f.store(key, gen, name)
		return name
	}
	return key.sender
}

// store drops the value when the room was invalidated after the lookup began.
func (f *NameFetcher) store(key nameKey, gen uint64, name string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.gen[key.room] != gen {
		return
	}
	f.cache.Push(key, name)
}

// Invalidate forgets the cached name of one member, typically after a
// membership change.
func (f *NameFetcher) Invalidate(roomID, sender string) {
	key := nameKey{room: roomID, sender: sender}
	f.lock.Lock()
	f.cache.Delete(key)
	f.gen[roomID]++
	f.lock.Unlock()
	f.group.Forget(key.String())
}

func (f *NameFetcher) InvalidateRoom(roomID string) {
	var pending []nameKey
	f.lock.Lock()
	f.cache.DeleteFunc(func(k nameKey) bool { return k.room == roomID })
	f.gen[roomID]++
	for k := range f.inflight {
		if k.room == roomID {
			pending = append(pending, k)
		}
	}
	f.lock.Unlock()
	for _, k := range pending {
		f.group.Forget(k.String())
	}
}

// InvalidateSender forgets a sender in every room, for platforms that only
// report profile changes globally.
func (f *NameFetcher) InvalidateSender(sender string) {
	var rooms []string
	f.lock.Lock()
	f.cache.DeleteFunc(func(k nameKey) bool {
		if k.sender == sender {
			rooms = append(rooms, k.room)
			return true
		}
		return false
	})
	for k := range f.inflight {
		if k.sender == sender {
			rooms = append(rooms, k.room)
		}
	}
	for _, r := range rooms {
		f.gen[r]++
	}
	f.lock.Unlock()
	for _, r := range rooms {
		f.group.Forget(nameKey{room: r, sender: sender}.String())
	}
}

func (f *NameFetcher) Len() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.cache.Len()
}
