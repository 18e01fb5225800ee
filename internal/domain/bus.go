package domain

// EventBus routes chat events between the Discord channel and the router.
type EventBus interface {
	Publish(evt ChatEvent)
	Subscribe() <-chan ChatEvent
	SendReply(reply Reply)
	OnReply(handler func(Reply))
	Close()
}

// Transport is the slice of the chat platform the health supervisor
// needs: observing connection liveness.
type Transport interface {
	Connected() bool
}
