package chanrelay

import "container/list"

// subState is a small state machine that avoids a clear-the-close-callback-
// before-detach race: exactly one path (publish, sweeper, or client
// disconnect) moves a subscriber from parked to delivering, and that path
// alone is responsible for finishing the transition to detached.
type subState int

const (
	subParked subState = iota
	subDelivering
	subDetached
)

// subscriber is a parked long-poll request plus the metadata the engine
// needs to deliver to or expire it. The engine never reaches into the
// transport directly: delivery and detach both happen by closing or
// sending on send, which the transport's writer goroutine drains.
type subscriber struct {
	slotID   int
	state    subState
	idle     int    // ticks since parking
	noopSeq  seq    // client-provided echo sequence for noop frames
	callback string // JSONP callback name
	elem     *list.Element
	send     chan []byte // buffered(1); closed on detach with nothing to deliver
}

func newSubscriber(slotID int, noopSeq seq, callback string) *subscriber {
	return &subscriber{
		slotID:   slotID,
		state:    subParked,
		noopSeq:  noopSeq,
		callback: callback,
		send:     make(chan []byte, 1),
	}
}
