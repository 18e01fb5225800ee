// Package bus is the in-process channel between the Discord transport and
// the event router.
package bus

import (
	"log/slog"
	"sync"
	"time"

	"gridbot/internal/domain"
)

const publishTimeout = 10 * time.Second

// InMemoryBus is a Go-channel based event bus.
type InMemoryBus struct {
	inbound chan domain.ChatEvent
	done    chan struct{}
	reply   func(domain.Reply)
	mu      sync.RWMutex
	closed  bool
	logger  *slog.Logger
}

// New creates an InMemoryBus with the given buffer size.
func New(bufferSize int, logger *slog.Logger) *InMemoryBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &InMemoryBus{
		inbound: make(chan domain.ChatEvent, bufferSize),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// Publish enqueues an inbound event. Blocks up to 10 seconds if the bus is
// full instead of dropping. The wait happens outside the lock so a
// saturated bus cannot stall Close.
func (b *InMemoryBus) Publish(evt domain.ChatEvent) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		b.logger.Warn("attempted to publish to closed bus")
		return
	}

	select {
	case b.inbound <- evt:
	default:
		b.logger.Warn("inbound bus full, waiting...", "location", evt.LocationID, "author", evt.AuthorID)
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case b.inbound <- evt:
			b.logger.Info("event delivered after wait", "location", evt.LocationID)
		case <-b.done:
			b.logger.Warn("event dropped: bus closed while waiting", "location", evt.LocationID)
		case <-timer.C:
			b.logger.Error("event dropped: bus full for 10s",
				"location", evt.LocationID,
				"author", evt.AuthorID,
			)
		}
	}
}

// Subscribe returns the inbound event stream.
func (b *InMemoryBus) Subscribe() <-chan domain.ChatEvent {
	return b.inbound
}

// SendReply forwards one outbound reply to the registered handler.
func (b *InMemoryBus) SendReply(reply domain.Reply) {
	b.mu.RLock()
	handler := b.reply
	b.mu.RUnlock()

	if handler == nil {
		b.logger.Warn("no reply handler registered", "location", reply.LocationID)
		return
	}
	handler(reply)
}

// OnReply registers the outbound handler. The Discord channel registers
// itself here at startup.
func (b *InMemoryBus) OnReply(handler func(domain.Reply)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reply = handler
}

// Close stops the bus. The inbound channel is left open so publishers
// racing Close never send on a closed channel; they observe done (or the
// closed flag) and drop the event instead. Consumers stop via their own
// context.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.done)
	}
}
