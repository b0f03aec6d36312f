package chanrelay

import (
	"container/list"
	"crypto/rand"
	"encoding/hex"
)

// freeIdle is the sentinel idle value meaning "slot is free / not signed".
const freeIdle = -1

// slotState is the storage cell for a channel in the fixed pool. Its id is
// fixed at construction and identical to its index in the pool's array; it
// is reused across channels as they come and go.
type slotState struct {
	id      int
	name    string
	token   string
	idle    int // -1 == free; >= 0 == idle ticks remaining
	seqNext seq
	ring    [][]byte   // bounded FIFO of recent publish payloads, oldest first
	subs    *list.List // of *subscriber, currently parked on this channel
	prev    int        // free/used list links, by slot id (-1 == none)
	next    int
}

func newSlot(id int) *slotState {
	return &slotState{
		id:   id,
		idle: freeIdle,
		subs: list.New(),
		prev: -1,
		next: -1,
	}
}

// free reports whether the slot is unassigned.
func (s *slotState) free() bool {
	return s.idle == freeIdle
}

// reset clears a slot back to its free state. seqNext is deliberately
// preserved across recycling: a stale client resuming with an old seq on a
// freshly re-signed channel of the same id will see its seq as "in the
// past" under seqGT and get resynced to msgSeqMin, rather than silently
// being treated as caught-up against a counter that restarted at zero.
func (s *slotState) reset() {
	s.name = ""
	s.token = ""
	s.idle = freeIdle
	s.ring = nil
}

// msgSeqMin returns the sequence number of the oldest message still held in
// the ring: ring index k from the tail carries sequence seqNext-1-k, so the
// head of the ring is seqNext-len(ring).
func (s *slotState) msgSeqMin() seq {
	return s.seqNext - seq(len(s.ring))
}

// appendMessage pushes content onto the tail of the ring, discarding the
// oldest entry once maxMessages is exceeded, and advances seqNext. It does
// not fan out to subscribers; callers pair it with send("data", ...). The
// trim below copies into a fresh backing array rather than just reslicing,
// so a long-lived channel's ring doesn't pin an ever-growing array behind a
// fixed-size window.
func (s *slotState) appendMessage(content []byte, maxMessages int) {
	s.ring = append(s.ring, content)
	if len(s.ring) > maxMessages {
		trimmed := make([][]byte, maxMessages)
		copy(trimmed, s.ring[len(s.ring)-maxMessages:])
		s.ring = trimmed
	}
	s.seqNext++
}

// createToken generates a fresh opaque token with at least 64 bits of
// entropy. No uuid/token-generation library fit this need, so this is one
// of the few places the core falls back to the standard library rather
// than an ecosystem package.
func createToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("chanrelay: failed to read entropy for token: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
