package models

import "time"

// EventStatus mirrors the lifecycle of a platform scheduled event.
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventActive    EventStatus = "active"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// ScheduledEvent is a snapshot of a guild scheduled event as fetched on a tick.
type ScheduledEvent struct {
	ID      string
	GuildID string
	Name    string
	// Start is nil when the platform response carried no start time.
	Start  *time.Time
	Status EventStatus
	// ChannelID is the associated voice or stage channel, if any.
	ChannelID string
	IsVoice   bool
	// Users is the interested user list when the payload embedded one.
	// Nil means the payload did not carry it.
	Users []Participant
}

// Participant is a resolved interested user.
type Participant struct {
	ID          string
	Name        string
	DisplayName string
}

// Mention returns the platform mention token for the participant.
func (p Participant) Mention() string {
	return "<@" + p.ID + ">"
}

// Label is the best human readable name available.
func (p Participant) Label() string {
	switch {
	case p.DisplayName != "":
		return p.DisplayName
	case p.Name != "":
		return p.Name
	default:
		return p.ID
	}
}

// Guild is the subset of guild data the jobs need.
type Guild struct {
	ID              string
	Name            string
	SystemChannelID string
}

// Channel is the subset of channel data operator commands display.
type Channel struct {
	ID      string
	Name    string
	GuildID string
}
