// Package command holds the slash-command registry. Registration and
// dispatch share one table, so a command cannot be registered without a
// handler or dispatched without registration.
package command

import (
	"context"
	"log/slog"
	"sort"

	"gridbot/internal/domain"
)

// ID identifies a slash command.
type ID string

const (
	Help       ID = "help"
	Ping       ID = "ping"
	GameInfo   ID = "game_info"
	StartGame  ID = "start_game"
	EndGame    ID = "end_game"
	MessageAll ID = "message_all"
)

// Invocation is the context a handler executes in.
type Invocation struct {
	Event domain.ChatEvent
	Role  domain.Role
}

// Handler executes one slash command and produces its single reply.
type Handler interface {
	ID() ID
	Description() string
	Execute(ctx context.Context, inv Invocation) (string, error)
}

// Definition describes a command for platform-side registration.
type Definition struct {
	Name        string
	Description string
}

// Registry is the single table behind both dispatch and registration.
type Registry struct {
	handlers map[ID]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[ID]Handler),
		logger:   logger,
	}
}

// Register adds a handler, replacing any previous handler for the same ID.
func (r *Registry) Register(h Handler) {
	r.handlers[h.ID()] = h
	r.logger.Debug("registered command", "command", h.ID())
}

// Get returns the handler for a command name.
func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[ID(name)]
	return h, ok
}

// Definitions lists registered commands, sorted by name, for registering
// with the chat platform.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.handlers))
	for id, h := range r.handlers {
		defs = append(defs, Definition{Name: string(id), Description: h.Description()})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
