package fetcher

import (
	"context"
	"sync"
	"sync/atomic"

	"threadbot/model"
)

// scriptedPages serves pages keyed by cursor. Page i is served for cursor
// "" (i == 0) or "c<i>".
type scriptedPages struct {
	pages []model.Page
	err   error
	calls atomic.Int32
	// onFetch runs before each page is served.
	onFetch func(cursor string)
}

func (s *scriptedPages) FetchThreadPage(_ context.Context, _, _, cursor string) (model.Page, error) {
	s.calls.Add(1)
	if s.onFetch != nil {
		s.onFetch(cursor)
	}
	if s.err != nil {
		return model.Page{}, s.err
	}
	i := 0
	if len(cursor) != 0 {
		for j := range s.pages {
			if s.pages[j].NextCursor == cursor {
				i = j + 1
				break
			}
		}
	}
	return s.pages[i], nil
}

type fakeNames struct {
	lock     sync.Mutex
	nicks    map[string]string
	profiles map[string]string
	nickErr  error

	nickCalls    atomic.Int32
	profileCalls atomic.Int32
	started      chan struct{}
	release      chan struct{}
}

func (f *fakeNames) QueryRoomNickname(_ context.Context, roomID, sender string) (string, error) {
	f.nickCalls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.nickErr != nil {
		return "", f.nickErr
	}
	return f.nicks[roomID+"|"+sender], nil
}

func (f *fakeNames) QueryProfileName(_ context.Context, sender string) (string, error) {
	f.profileCalls.Add(1)
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.profiles[sender], nil
}

func (f *fakeNames) setNick(roomID, sender, nick string) {
	f.lock.Lock()
	f.nicks[roomID+"|"+sender] = nick
	f.lock.Unlock()
}
