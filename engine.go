package chanrelay

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	. "github.com/azer/debug"
)

// Engine is the channel engine: the fixed-size slot pool, the per-channel
// subscriber sets and message rings, and the sweeper, all owned by a single
// goroutine (run). Every exported method is safe to call concurrently from
// any number of HTTP handler goroutines -- each one just sends a request
// into the run loop and waits for the reply, the same way mroth/sseserver's
// hub serializes register/unregister/broadcast onto one goroutine.
type Engine struct {
	cfg  Config
	pool *slotPool

	subscribersTotal int
	sentMsgs         uint64
	startupTime      time.Time

	subCh    chan subRequest
	pubCh    chan pubRequest
	signCh   chan signRequest
	closeCh  chan closeRequest
	infoCh   chan infoRequest
	checkCh  chan checkRequest
	pingCh   chan pingRequest
	subEndCh chan *subscriber
	statusCh chan chan ReportingStatus

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	doneCh       chan struct{}
}

type subRequest struct {
	cid      int
	seqParam seq
	noop     seq
	cb       string
	token    string
	reply    chan subReply
}

type subReply struct {
	immediate []byte
	sub       *subscriber
}

type pubRequest struct {
	cid     int
	cname   string
	content []byte
	cb      string
	reply   chan pubReply
}

type pubReply struct {
	status int
	body   []byte
}

type signRequest struct {
	cname   string
	expires int
	cb      string
	reply   chan signReply
}

type signReply struct {
	status int
	body   []byte
}

type closeRequest struct {
	cname   string
	content []byte
	reply   chan closeReply
}

type closeReply struct {
	status int
	body   []byte
}

type infoRequest struct {
	cname string
	reply chan []byte
}

type checkRequest struct {
	cname string
	reply chan []byte
}

type pingRequest struct {
	cb    string
	reply chan []byte
}

// NewEngine constructs an Engine and starts its run loop.
func NewEngine(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		cfg:         cfg,
		pool:        newSlotPool(cfg.MaxChannels),
		startupTime: time.Now(),
		subCh:       make(chan subRequest),
		pubCh:       make(chan pubRequest),
		signCh:      make(chan signRequest),
		closeCh:     make(chan closeRequest),
		infoCh:      make(chan infoRequest),
		checkCh:     make(chan checkRequest),
		pingCh:      make(chan pingRequest),
		subEndCh:    make(chan *subscriber),
		statusCh:    make(chan chan ReportingStatus),
		shutdownCh:  make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	go e.run()
	return e
}

// Config returns a copy of the engine's active configuration.
func (e *Engine) Config() Config { return e.cfg }

// Shutdown stops the run loop. Safe to call more than once.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() { close(e.shutdownCh) })
	<-e.doneCh
}

func (e *Engine) run() {
	defer close(e.doneCh)

	ticker := time.NewTicker(e.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case req := <-e.subCh:
			e.handleSub(req)
		case req := <-e.pubCh:
			e.handlePub(req)
		case req := <-e.signCh:
			e.handleSign(req)
		case req := <-e.closeCh:
			e.handleClose(req)
		case req := <-e.infoCh:
			e.handleInfo(req)
		case req := <-e.checkCh:
			e.handleCheck(req)
		case req := <-e.pingCh:
			e.handlePing(req)
		case sub := <-e.subEndCh:
			e.handleSubEnd(sub)
		case reply := <-e.statusCh:
			e.handleStatus(reply)
		case <-ticker.C:
			e.tick()
		case <-e.shutdownCh:
			return
		}
	}
}

// Sub resumes or parks a long-poll request. It returns either an immediate
// frame (the request is already answered, the caller should write it and
// close the response) or a parked *subscriber (the caller must start a
// chunked response and drain sub.send until it is closed).
func (e *Engine) Sub(cid int, seqParam, noop seq, cb, token string) ([]byte, *subscriber) {
	reply := make(chan subReply, 1)
	select {
	case e.subCh <- subRequest{cid, seqParam, noop, cb, token, reply}:
	case <-e.doneCh:
		return subErrorFrame(cb, "404", cid, "Not Found"), nil
	}
	r := <-reply
	return r.immediate, r.sub
}

// Pub publishes content to the channel identified by cid (if >= 0) or
// cname, acknowledging the publisher and fanning the message out to every
// parked subscriber.
func (e *Engine) Pub(cid int, cname string, content []byte, cb string) (int, []byte) {
	reply := make(chan pubReply, 1)
	select {
	case e.pubCh <- pubRequest{cid, cname, content, cb, reply}:
	case <-e.doneCh:
		return 404, []byte("engine shut down\n")
	}
	r := <-reply
	return r.status, r.body
}

// Sign admits a new channel under cname, or refreshes an existing one,
// returning its id and token.
func (e *Engine) Sign(cname string, expires int, cb string) (int, []byte) {
	reply := make(chan signReply, 1)
	select {
	case e.signCh <- signRequest{cname, expires, cb, reply}:
	case <-e.doneCh:
		return 404, []byte("engine shut down\n")
	}
	r := <-reply
	return r.status, r.body
}

// Close tears down the channel identified by cname, notifying any parked
// subscribers with content as a final frame before releasing the slot.
func (e *Engine) Close(cname string, content []byte) (int, []byte) {
	reply := make(chan closeReply, 1)
	select {
	case e.closeCh <- closeRequest{cname, content, reply}:
	case <-e.doneCh:
		return 404, []byte("engine shut down\n")
	}
	r := <-reply
	return r.status, r.body
}

// Info reports the subscriber count for cname, or the server-wide
// channel/subscriber counts if cname is empty.
func (e *Engine) Info(cname string) []byte {
	reply := make(chan []byte, 1)
	select {
	case e.infoCh <- infoRequest{cname, reply}:
	case <-e.doneCh:
		return globalInfoFrame(0, 0)
	}
	return <-reply
}

// Check reports whether cname is currently a live, signed channel.
func (e *Engine) Check(cname string) []byte {
	reply := make(chan []byte, 1)
	select {
	case e.checkCh <- checkRequest{cname, reply}:
	case <-e.doneCh:
		return checkFrame(cname, false)
	}
	return <-reply
}

// Ping answers a liveness probe with the configured polling timeout.
func (e *Engine) Ping(cb string) []byte {
	reply := make(chan []byte, 1)
	select {
	case e.pingCh <- pingRequest{cb, reply}:
	case <-e.doneCh:
		return pingFrame(cb, e.cfg.PollingTimeout)
	}
	return <-reply
}

// SubEnd notifies the engine that sub's transport connection has closed.
// Safe to call from any goroutine, at most once per subscriber in the
// happy path, and safe (a no-op) if called again or after the engine has
// already detached sub itself.
func (e *Engine) SubEnd(sub *subscriber) {
	select {
	case e.subEndCh <- sub:
	case <-e.doneCh:
	}
}

func (e *Engine) handleSub(req subRequest) {
	cfg := e.cfg
	slotObj := e.pool.get(req.cid)
	if slotObj == nil {
		req.reply <- subReply{immediate: subErrorFrame(req.cb, "404", req.cid, "Not Found")}
		return
	}
	if cfg.Auth == AuthToken && (slotObj.token == "" || slotObj.token != req.token) {
		Debug(fmt.Sprintf("sub %d token error", req.cid))
		req.reply <- subReply{immediate: subErrorFrame(req.cb, "401", req.cid, "Token Error")}
		return
	}
	if slotObj.subs.Len() >= cfg.MaxSubscribersPerChannel {
		req.reply <- subReply{immediate: subErrorFrame(req.cb, "429", req.cid, "Too Many Requests")}
		return
	}
	if slotObj.free() {
		e.pool.alloc(slotObj)
	}
	slotObj.idle = cfg.ChannelIdles

	if len(slotObj.ring) > 0 && req.seqParam != slotObj.seqNext {
		req.reply <- subReply{immediate: resumeFrame(req.cb, e.resumeObjects(slotObj, req.seqParam))}
		return
	}

	sub := newSubscriber(slotObj.id, req.noop, req.cb)
	sub.elem = slotObj.subs.PushBack(sub)
	e.subscribersTotal++
	Debug(fmt.Sprintf("sub %d parked, subs now %d", slotObj.id, slotObj.subs.Len()))
	req.reply <- subReply{sub: sub}
}

// resumeObjects clamps seqParam into the ring and builds the data objects
// for every message from the clamped sequence through the latest published
// one.
func (e *Engine) resumeObjects(slotObj *slotState, seqParam seq) [][]byte {
	s := seqParam
	min := slotObj.msgSeqMin()
	if seqGT(s, slotObj.seqNext) || seqGT(min, s) {
		s = min
	}
	start := len(slotObj.ring) - int(slotObj.seqNext-s)
	objs := make([][]byte, 0, len(slotObj.ring)-start)
	for i := start; i < len(slotObj.ring); i++ {
		objs = append(objs, dataObject("data", slotObj.id, s, slotObj.ring[i]))
		s++
	}
	return objs
}

func (e *Engine) handlePub(req pubRequest) {
	var slotObj *slotState
	if req.cid >= 0 {
		slotObj = e.pool.get(req.cid)
	} else if req.cname != "" {
		slotObj = e.pool.getByName(req.cname)
	}
	if slotObj == nil || slotObj.free() {
		var msg string
		if req.cid >= 0 {
			msg = fmt.Sprintf("channel[%d] not connected\n", req.cid)
		} else {
			msg = fmt.Sprintf("cname[%s] not connected\n", req.cname)
		}
		req.reply <- pubReply{status: 404, body: []byte(msg)}
		return
	}

	req.reply <- pubReply{status: 200, body: okFrame(req.cb)}

	slotObj.appendMessage(req.content, e.cfg.MaxMessages)
	e.sentMsgs++
	Debug(fmt.Sprintf("pub ch:%d subs:%d content:%s", slotObj.id, slotObj.subs.Len(), req.content))
	e.sendToSubscribers(slotObj, "data", req.content)
}

func (e *Engine) handleSign(req signRequest) {
	cfg := e.cfg
	expires := req.expires
	if expires <= 0 {
		expires = cfg.ChannelTimeout
	}

	slotObj := e.pool.getByName(req.cname)
	if slotObj == nil {
		if e.pool.freeHead == -1 {
			req.reply <- signReply{404, []byte("Invalid channel for cname: " + req.cname + "\n")}
			return
		}
		hint := e.pool.slots[e.pool.freeHead]
		hint.name = req.cname
		slotObj = e.pool.alloc(hint)
	}

	resigning := !slotObj.free()
	if slotObj.token == "" {
		slotObj.token = createToken()
	}
	interval := int(cfg.CheckInterval / time.Second)
	if interval < 1 {
		interval = 1
	}
	slotObj.idle = expires / interval

	if resigning {
		Debug(fmt.Sprintf("re-sign cname:%s cid:%d expires:%d", req.cname, slotObj.id, expires))
	} else {
		Debug(fmt.Sprintf("sign cname:%s cid:%d expires:%d", req.cname, slotObj.id, expires))
	}

	req.reply <- signReply{200, signFrame(req.cb, slotObj.id, slotObj.msgSeqMin(), slotObj.token, expires, cfg.ChannelTimeout)}
}

func (e *Engine) handleClose(req closeRequest) {
	slotObj := e.pool.getByName(req.cname)
	if slotObj == nil {
		req.reply <- closeReply{404, []byte("cname[" + req.cname + "] not connected\n")}
		return
	}

	req.reply <- closeReply{200, closeAckFrame(slotObj.seqNext)}

	if !slotObj.free() {
		e.sendToSubscribers(slotObj, "close", req.content)
		e.pool.release(slotObj)
	}
}

func (e *Engine) handleInfo(req infoRequest) {
	if req.cname != "" {
		slotObj := e.pool.getByName(req.cname)
		subs := 0
		if slotObj != nil {
			subs = slotObj.subs.Len()
		}
		req.reply <- infoFrame(req.cname, subs)
		return
	}
	req.reply <- globalInfoFrame(e.pool.usedCount(), e.subscribersTotal)
}

func (e *Engine) handleCheck(req checkRequest) {
	slotObj := e.pool.getByName(req.cname)
	req.reply <- checkFrame(req.cname, slotObj != nil && !slotObj.free())
}

func (e *Engine) handlePing(req pingRequest) {
	req.reply <- pingFrame(req.cb, e.cfg.PollingTimeout)
}

func (e *Engine) handleSubEnd(sub *subscriber) {
	e.detach(sub, nil)
}

// sendToSubscribers delivers frame to every currently parked subscriber
// and detaches them all. Iteration captures the
// next element before detaching the current one, so it tolerates the
// current subscriber being removed mid-loop -- the Go analogue of the
// original's "capture channel_next before the body" pattern.
func (e *Engine) sendToSubscribers(slotObj *slotState, typ string, content []byte) {
	sq := slotObj.seqNext - 1
	var next *list.Element
	for el := slotObj.subs.Front(); el != nil; el = next {
		next = el.Next()
		sub := el.Value.(*subscriber)
		frame := pushFrame(sub.callback, typ, slotObj.id, sq, content)
		e.detach(sub, frame)
	}
}

// detach removes sub from its slot, decrements the global subscriber
// count, and closes sub.send -- after queuing frame first, if non-nil, so
// the transport's writer goroutine delivers it before seeing the close.
// Idempotent: a sub already detached is a no-op, which is what makes it
// safe to call from both the sweeper and a transport disconnect callback.
func (e *Engine) detach(sub *subscriber, frame []byte) {
	if sub.state == subDetached {
		return
	}
	slotObj := e.pool.get(sub.slotID)
	slotObj.subs.Remove(sub.elem)
	e.subscribersTotal--
	sub.state = subDelivering
	if frame != nil {
		sub.send <- frame
	}
	sub.state = subDetached
	close(sub.send)
}

// tick is the sweeper, invoked once per CheckInterval.
func (e *Engine) tick() {
	var nextID int
	for id := e.pool.usedHead; id != -1; id = nextID {
		slotObj := e.pool.slots[id]
		nextID = slotObj.next

		if slotObj.subs.Len() == 0 {
			slotObj.idle--
			if slotObj.idle < 0 {
				Debug(fmt.Sprintf("channel %d expired, releasing", slotObj.id))
				e.pool.release(slotObj)
			}
			continue
		}

		if slotObj.idle < e.cfg.ChannelIdles {
			slotObj.idle = e.cfg.ChannelIdles
		}

		var nextElem *list.Element
		for el := slotObj.subs.Front(); el != nil; el = nextElem {
			nextElem = el.Next()
			sub := el.Value.(*subscriber)
			sub.idle++
			if sub.idle > e.cfg.PollingIdles {
				frame := noopFrame(sub.callback, slotObj.id, sub.noopSeq)
				e.detach(sub, frame)
			}
		}
	}
}
