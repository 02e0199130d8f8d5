package models

import "time"

// ThreadState is the derived lifecycle state of a forum thread.
type ThreadState string

const (
	ThreadOpen     ThreadState = "open"
	ThreadClosed   ThreadState = "closed"
	ThreadArchived ThreadState = "archived"
	ThreadDeleted  ThreadState = "deleted"
)

// Thread is a forum post as seen by the lifecycle manager.
type Thread struct {
	ID        string
	Name      string
	GuildID   string
	ParentID  string
	Locked    bool
	Archived  bool
	// Forum is set when the parent channel is a forum.
	Forum     bool
	CreatedAt time.Time
}

// State derives the lifecycle state from the platform flags.
func (t Thread) State() ThreadState {
	switch {
	case t.Archived:
		return ThreadArchived
	case t.Locked:
		return ThreadClosed
	default:
		return ThreadOpen
	}
}

// Actor identifies who invoked an operator command and from where.
type Actor struct {
	UserID    string
	Name      string
	GuildID   string
	ChannelID string
}
