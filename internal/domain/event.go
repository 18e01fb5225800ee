package domain

import "time"

// EventKind discriminates the three shapes of inbound chat traffic.
type EventKind string

const (
	KindSlashCommand   EventKind = "slash_command"
	KindChannelMessage EventKind = "channel_message"
	KindDirectMessage  EventKind = "direct_message"
)

// ChatEvent is one inbound Discord event, already lifted off the gateway.
// Created by the channel layer; read-only to everything downstream.
type ChatEvent struct {
	Kind       EventKind
	AuthorID   string
	AuthorName string
	Content    string
	LocationID string // channel/thread ID, or the DM channel ID
	MessageID  string
	Command    string   // slash command name, when Kind == KindSlashCommand
	Args       []string // slash command string options, in declaration order
	FromSelf   bool     // authored by the bot itself
	Timestamp  time.Time
}

// Reply is the single outbound message produced for a processed event.
type Reply struct {
	LocationID string
	Content    string
}
