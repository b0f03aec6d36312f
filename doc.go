/*
Package chanrelay implements a long-polling HTTP pub/sub relay.

Clients subscribe to named logical channels over long-held HTTP GETs that
return JSONP-wrapped payloads; publishers push short messages to those
channels over HTTP and the relay fans them out to every subscriber
currently parked on that channel. The relay keeps a short recent-message
window per channel so that a subscriber reconnecting after missing the
last response can resume instead of silently losing a message.

Channels

A channel is admitted with Sign, which returns a small integer channel id
and a token. Clients long-poll with Sub, passing the id and the sequence
number of the next message they expect (one past the last one they saw).
If the channel's ring is non-empty and that sequence is not the channel's
next one, Sub returns immediately with the buffered messages from that
sequence on, no long-poll required; a sequence outside the ring is clamped
to the oldest buffered message. Otherwise the request parks until Pub
delivers a message, the sweeper times the poll out with a keep-alive noop,
or the channel is closed.

Concurrency

All channel state is owned by a single goroutine (see Engine.run), the same
way mroth/sseserver's hub.go keeps all connection bookkeeping on one hub
goroutine. Every exported Engine method sends a request into that loop and
waits for a reply; nothing outside the loop ever touches a slot or
subscriber directly.
*/
package chanrelay
