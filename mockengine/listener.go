package mockengine

import (
	"fmt"
	"io"
	"net/http"

	"mocktun/logger"
	"mocktun/script"
	"mocktun/store"
)

// Listener is the mock HTTP server (C4). It deliberately uses net/http
// instead of the ambient fiber/fasthttp stack: fasthttp recycles its
// *fasthttp.RequestCtx the instant a handler returns, which is incompatible
// with a RequestContext that a Lua handler can hold onto across an
// explicit, later ctx:flush() call — and close_socket(nolinger) needs a
// real net.Conn to set SO_LINGER on, which fasthttp does not expose.
// net/http's http.Hijacker gives both.
type Listener struct {
	Addr  string
	Rules *RuleTable
	Store *store.Store

	server *http.Server
}

// NewListener builds a Listener bound to addr (host:port), serving requests
// via the given rule table and process-wide KV store.
func NewListener(addr string, rules *RuleTable, st *store.Store) *Listener {
	l := &Listener{Addr: addr, Rules: rules, Store: st}
	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handle)
	l.server = &http.Server{Addr: addr, Handler: mux}
	return l
}

// ListenAndServe blocks serving mock HTTP requests until the listener is
// closed.
func (l *Listener) ListenAndServe() error {
	return l.server.ListenAndServe()
}

// Close shuts the listener down.
func (l *Listener) Close() error {
	return l.server.Close()
}

func (l *Listener) handle(w http.ResponseWriter, req *http.Request) {
	logger.LogInfo(fmt.Sprintf("REQUEST %s %s", req.Method, req.URL.Path))

	ctx := NewRequestContext(req, l.Store)
	ctx.w = w
	if hj, ok := w.(http.Hijacker); ok {
		ctx.hijack = hj
	}

	go pumpBody(req.Body, ctx.Chunks())

	l.process(ctx)
}

// pumpBody feeds the request body into the context's chunk queue in 32KiB
// pieces and closes the channel at EOF, mirroring pymock's
// data_received/finish pushing chunks then None into _chunk_queue.
func pumpBody(body io.ReadCloser, chunks chan<- []byte) {
	defer close(chunks)
	buf := make([]byte, 32*1024)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			chunks <- chunk
		}
		if err != nil {
			return
		}
	}
}

// process runs the handler, maps any error to a status/body, optionally
// writes a recording, and always flushes — the Go analogue of
// pymock/mock.py's MockMessageDelegate._process try/except/finally.
func (l *Listener) process(ctx *RequestContext) {
	// Drains any chunks the handler never consumed, so pumpBody's goroutine
	// always reaches its close sentinel and stops reading req.Body before
	// this handler returns to net/http — reading the body past that point is
	// unsupported. Matches pymock's _request_done finally block.
	defer func() {
		if dropped := ctx.drainInput(); dropped > 0 {
			noun := "chunk"
			if dropped != 1 {
				noun = "chunks"
			}
			logger.LogInfo(fmt.Sprintf("[%s] dropped %d %s", ctx.RequestID, dropped, noun))
		}
	}()

	defer func() {
		if ctx.recording {
			if err := writeRecording(ctx); err != nil {
				logger.LogError(fmt.Sprintf("[%s] failed to write recording: %v", ctx.RequestID, err))
			}
		}
		if err := ctx.Flush(); err != nil {
			logger.LogError(fmt.Sprintf("[%s] flush failed: %v", ctx.RequestID, err))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.LogError(fmt.Sprintf("[%s] EXCEPTION: %v", ctx.RequestID, r))
			ctx.SetStatus(500)
			ctx.SetBody(fmt.Sprintf("%v", r))
		}
	}()

	if err := l.Rules.Dispatch(ctx); err != nil {
		if httpErr, ok := err.(*script.HTTPError); ok {
			ctx.SetStatus(httpErr.Status)
			ctx.SetBody(httpErr.Message)
			return
		}
		logger.LogError(fmt.Sprintf("[%s] EXCEPTION: %v", ctx.RequestID, err))
		ctx.SetStatus(500)
		ctx.SetBody(err.Error())
	}
}
