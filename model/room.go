package model

type TypeSource int

const (
	SlackType TypeSource = iota
	DiscordType
	MatrixType
)

func (t TypeSource) String() string {
	switch t {
	case SlackType:
		return "Slack"
	case DiscordType:
		return "Discord"
	case MatrixType:
		return "Matrix"
	}
	return "Unknown"
}

// ThreadInfo is a snapshot of one thread taken at fetch time. EventIDs is
// ordered by thread position, root first.
type ThreadInfo struct {
	Source   TypeSource
	RoomID   string
	ThreadID string
	EventIDs []string
}

// Trigger is pushed by a transport when a message arrives in a watched
// thread and the bot may have to react to it.
type Trigger struct {
	Source   TypeSource
	RoomID   string
	ThreadID string
	EventID  string
}
