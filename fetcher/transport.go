// Package fetcher pulls thread state and sender names out of a chat transport.
package fetcher

import (
	"context"

	"threadbot/model"
)

// ThreadSource serves one page of a thread. An empty cursor asks for the
// first page, which must include the root event.
type ThreadSource interface {
	FetchThreadPage(ctx context.Context, roomID, threadID, cursor string) (model.Page, error)
}

// NameSource answers membership and profile queries. An empty name with a nil
// error means the transport has nothing for that sender.
type NameSource interface {
	QueryRoomNickname(ctx context.Context, roomID, sender string) (string, error)
	QueryProfileName(ctx context.Context, sender string) (string, error)
}

// Transport is everything the context builder needs from one platform.
type Transport interface {
	ThreadSource
	NameSource
	Source() model.TypeSource
}
