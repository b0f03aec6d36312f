package chanrelay

import (
	"log"
	"net/http"
	"strconv"
)

// Server is a thin net/http adapter in front of an Engine. It owns no
// channel state itself -- every method just parses the request and calls
// through to the engine, the same division of labor as mroth/sseserver's
// connectionHandler sitting in front of its hub.
type Server struct {
	Engine *Engine
	mux    *http.ServeMux
}

// NewServer constructs a Server backed by a freshly started Engine.
func NewServer(opts ...Option) *Server {
	s := &Server{Engine: NewEngine(opts...)}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/sub", s.handleSub)
	s.mux.HandleFunc("/pub", s.handlePub)
	s.mux.HandleFunc("/sign", s.handleSign)
	s.mux.HandleFunc("/close", s.handleClose)
	s.mux.HandleFunc("/ping", s.handlePing)
	s.mux.HandleFunc("/info", s.handleInfo)
	s.mux.HandleFunc("/check", s.handleCheck)
	return s
}

// Shutdown stops the underlying engine.
func (s *Server) Shutdown() {
	s.Engine.Shutdown()
}

// ServeHTTP implements http.Handler, routing sub/pub/sign/close/ping/info/check.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseSeq(s string) seq {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return seq(n)
}

// handleSub parks or resumes a long-poll request.
func (s *Server) handleSub(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	cid := atoiDefault(q.Get("cid"), -1)
	seqParam := parseSeq(q.Get("seq"))
	noop := parseSeq(q.Get("noop"))
	cb := q.Get("cb")
	if cb == "" {
		cb = s.Engine.cfg.JSONPCallback
	}
	token := q.Get("token")

	frame, sub := s.Engine.Sub(cid, seqParam, noop, cb, token)
	if sub == nil {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Write(frame)
		return
	}

	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	log.Println("SUB\t", r.RemoteAddr, "\tcid:", cid)
	done := r.Context().Done()
	for {
		select {
		case frame, ok := <-sub.send:
			if !ok {
				return
			}
			w.Write(frame)
			if canFlush {
				flusher.Flush()
			}
		case <-done:
			log.Println("SUB DISCONNECT\t", r.RemoteAddr, "\tcid:", cid)
			s.Engine.SubEnd(sub)
			<-sub.send // wait for the engine's detach to close it
			return
		}
	}
}

// handlePub publishes a message to a channel.
func (s *Server) handlePub(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Invalid Method", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	cid := atoiDefault(q.Get("cid"), -1)
	cname := q.Get("cname")
	content := q.Get("content")
	cb := q.Get("cb")

	status, body := s.Engine.Pub(cid, cname, []byte(content), cb)
	if status == http.StatusOK {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	}
	w.WriteHeader(status)
	w.Write(body)
}

// handleSign admits or refreshes a channel.
func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cname := q.Get("cname")
	expires := atoiDefault(q.Get("expires"), -1)
	cb := q.Get("cb")

	status, body := s.Engine.Sign(cname, expires, cb)
	if status == http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(status)
	w.Write(body)
}

// handleClose terminates a channel.
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cname := q.Get("cname")
	content := q.Get("content")

	status, body := s.Engine.Close(cname, []byte(content))
	if status == http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(status)
	w.Write(body)
}

// handlePing answers a liveness probe.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	cb := r.URL.Query().Get("cb")
	if cb == "" {
		cb = s.Engine.cfg.JSONPCallback
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(s.Engine.Ping(cb))
}

// handleInfo reports channel/subscriber counts.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	cname := r.URL.Query().Get("cname")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.Engine.Info(cname))
}

// handleCheck reports whether a channel is live.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	cname := r.URL.Query().Get("cname")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.Engine.Check(cname))
}
