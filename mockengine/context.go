package mockengine

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"mocktun/logger"
	"mocktun/store"
)

const chunkQueueSize = 100

// RequestContext is the per-request state a handler script drives. It
// implements script.ScriptContext. Grounded on pymock/mock.py's
// MockMessageDelegate: a chunked request body queue, deferred
// header/body write, and an explicit Flush/CloseSocket pair instead of
// net/http's implicit response-on-return model, so handlers can stream,
// record, and forward exactly like the Python original.
type RequestContext struct {
	RequestID string

	method string
	path   string
	uri    string
	header http.Header
	query  url.Values

	conn   net.Conn
	hijack http.Hijacker
	w      http.ResponseWriter

	chunks       chan []byte
	inputClosed  bool
	bodyCache    []byte
	bodyParsed   bool
	bodyArgsOnce sync.Once
	bodyArgs     url.Values

	headerWritten bool
	bodyWritten   bool
	socketClosed  bool
	recording     bool

	respStatus  int
	respReason  string
	respHeader  http.Header
	respBody    []byte
	hasRespBody bool

	store *store.Store

	mu sync.Mutex
}

// NewRequestContext builds a RequestContext for one incoming HTTP request.
// The caller (Listener) is responsible for pumping body chunks into Chunks()
// as they arrive off the wire.
func NewRequestContext(req *http.Request, st *store.Store) *RequestContext {
	return &RequestContext{
		RequestID:  uuid.NewString()[:8],
		method:     req.Method,
		path:       req.URL.Path,
		uri:        req.URL.RequestURI(),
		header:     req.Header.Clone(),
		query:      req.URL.Query(),
		chunks:     make(chan []byte, chunkQueueSize),
		respHeader: http.Header{},
		respStatus: 200,
		respReason: "OK",
		store:      st,
	}
}

// Chunks returns the channel the listener feeds raw body chunks into.
// Closing the channel (or sending a nil slice) marks the end of input,
// mirroring pymock's asyncio.Queue(None) EOF marker in data_received/finish.
func (c *RequestContext) Chunks() chan<- []byte { return c.chunks }

func (c *RequestContext) Method() string { return c.method }
func (c *RequestContext) Path() string   { return c.path }
func (c *RequestContext) SetPath(p string) { c.path = p }
func (c *RequestContext) URI() string      { return c.uri }
func (c *RequestContext) SetURI(u string)  { c.uri = u }

func (c *RequestContext) Header(name string) string { return c.header.Get(name) }
func (c *RequestContext) Headers() map[string][]string {
	return map[string][]string(c.header)
}

// QueryArgument returns the last value of a query-string parameter, the Go
// analogue of pymock's _get_argument/get_query_argument (last-value-wins).
func (c *RequestContext) QueryArgument(name string, hasDefault bool, def string) (string, error) {
	values := c.query[name]
	if len(values) > 0 {
		return values[len(values)-1], nil
	}
	if hasDefault {
		return def, nil
	}
	return "", fmt.Errorf("missing argument: %s", name)
}

// BodyArgument parses the request body as form-encoded on first use (like
// pymock's get_body_argument triggering request._parse_body()) and returns
// the last value of a field.
func (c *RequestContext) BodyArgument(name string, hasDefault bool, def string) (string, error) {
	c.bodyArgsOnce.Do(func() {
		body, _ := c.RequestBody()
		c.bodyArgs, _ = url.ParseQuery(string(body))
	})
	values := c.bodyArgs[name]
	if len(values) > 0 {
		return values[len(values)-1], nil
	}
	if hasDefault {
		return def, nil
	}
	return "", fmt.Errorf("missing argument: %s", name)
}

// RequestBody coalesces every remaining chunk into one buffer, idempotent
// after the input is closed, mirroring pymock's request_body().
func (c *RequestContext) RequestBody() ([]byte, error) {
	if c.inputClosed {
		return c.bodyCache, nil
	}
	var body []byte
	for {
		chunk, ok := <-c.chunks
		if !ok || chunk == nil {
			c.inputClosed = true
			break
		}
		body = append(body, chunk...)
	}
	c.bodyCache = body
	return body, nil
}

// RequestChunk pulls one chunk off the queue, matching pymock's
// request_chunk: returns (nil, false, nil) at EOF once, then an error on
// any further call after the input is already closed.
func (c *RequestContext) RequestChunk() ([]byte, bool, error) {
	if c.inputClosed {
		return nil, false, ErrPeerClosed
	}
	chunk, ok := <-c.chunks
	if !ok || chunk == nil {
		c.inputClosed = true
		return nil, false, nil
	}
	return chunk, true, nil
}

func (c *RequestContext) SetHeader(name, value string) { c.respHeader.Set(name, value) }
func (c *RequestContext) AddHeader(name, value string) { c.respHeader.Add(name, value) }

func (c *RequestContext) SetStatus(code int) {
	c.respStatus = code
	c.respReason = http.StatusText(code)
}

func (c *RequestContext) SetBody(body string) {
	c.respBody = []byte(body)
	c.hasRespBody = true
}

// Record marks this request for on-disk recording, written by
// writeRecording once the handler finishes (the Go analogue of pymock's
// self._recording flag and _process's finally block).
func (c *RequestContext) Record() { c.recording = true }

// StoreGet/StorePut/StoreExpire expose the process-wide KV store (C9) to
// handler scripts, the Go analogue of pymock's self.store passthrough.
func (c *RequestContext) StoreGet(key string) (string, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, true
}

func (c *RequestContext) StorePut(key, value string, expiresSeconds int) {
	c.store.Put(key, value, expiresSeconds)
}

func (c *RequestContext) StoreExpire(key string, expiresSeconds int) {
	c.store.Expire(key, expiresSeconds)
}

// drainInput consumes any remaining body chunks until the close sentinel,
// returning how many were dropped unread. Matches pymock's _request_done
// finally block, which drains _chunk_queue after _process completes so the
// connection's chunk producer (data_received/finish) never blocks on a full
// queue past the life of the request.
func (c *RequestContext) drainInput() int {
	if c.inputClosed {
		return 0
	}
	dropped := 0
	for {
		chunk, ok := <-c.chunks
		if !ok || chunk == nil {
			c.inputClosed = true
			return dropped
		}
		dropped++
	}
}

func (c *RequestContext) LogInfo(msg string)  { logger.LogInfo(fmt.Sprintf("[%s] %s", c.RequestID, msg)) }
func (c *RequestContext) LogDebug(msg string) { logger.LogInfo(fmt.Sprintf("[%s] %s", c.RequestID, msg)) }
func (c *RequestContext) LogError(msg string) { logger.LogError(fmt.Sprintf("[%s] %s", c.RequestID, msg)) }

// writeHeader writes status + headers exactly once, matching pymock's
// write_header (Content-Length computed from the buffered body, no-op once
// the socket is closed).
func (c *RequestContext) writeHeader() error {
	if c.headerWritten {
		return nil
	}
	if c.socketClosed {
		logger.LogInfo(fmt.Sprintf("[%s] SOCKET CLOSED", c.RequestID))
		return nil
	}
	if c.hasRespBody {
		c.respHeader.Set("Content-Length", fmt.Sprintf("%d", len(c.respBody)))
	} else {
		c.respHeader.Set("Content-Length", "0")
	}
	for name, values := range c.respHeader {
		for _, v := range values {
			c.w.Header().Add(name, v)
		}
	}
	c.w.WriteHeader(c.respStatus)
	c.headerWritten = true
	logger.LogRoute(c.method, c.uri, c.respStatus, 0)
	return nil
}

// writeBody writes the buffered response body exactly once.
func (c *RequestContext) writeBody() error {
	if c.bodyWritten || c.socketClosed {
		return nil
	}
	if c.hasRespBody {
		if _, err := c.w.Write(c.respBody); err != nil {
			return err
		}
	}
	c.bodyWritten = true
	return nil
}

// writeStreamingHeader writes status + headers immediately, without a
// computed Content-Length, for a forwarded response whose body length isn't
// known upfront. Grounded on pymock/mock.py forward()'s header_callback,
// which writes the upstream status line and headers to the client as soon
// as they arrive instead of waiting for the full body.
func (c *RequestContext) writeStreamingHeader() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.headerWritten {
		return nil
	}
	if c.socketClosed {
		logger.LogInfo(fmt.Sprintf("[%s] SOCKET CLOSED", c.RequestID))
		return nil
	}
	for name, values := range c.respHeader {
		for _, v := range values {
			c.w.Header().Add(name, v)
		}
	}
	c.w.WriteHeader(c.respStatus)
	c.headerWritten = true
	logger.LogRoute(c.method, c.uri, c.respStatus, 0)
	return nil
}

// writeStreamingChunk writes one already-arrived response body chunk
// straight to the client connection and flushes it, for a streamed forward
// response. Matches pymock's streaming_callback writing each chunk to
// request_conn as it arrives.
func (c *RequestContext) writeStreamingChunk(chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.socketClosed {
		return nil
	}
	if _, err := c.w.Write(chunk); err != nil {
		return err
	}
	if flusher, ok := c.w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// markBodyWritten records that the response body has already been written
// directly to the wire (a streamed forward), so Flush doesn't try to write
// it again.
func (c *RequestContext) markBodyWritten() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodyWritten = true
}

// Flush writes header and body if not already written, matching pymock's
// flush(): write_header(); write_body(); connection.finish().
func (c *RequestContext) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writeHeader(); err != nil {
		return err
	}
	return c.writeBody()
}

// CloseSocket hijacks the underlying net.Conn (if not already done) and
// closes it, optionally with SO_LINGER(0) to force an RST instead of a
// graceful FIN, the Go analogue of pymock's close_socket(nolinger).
func (c *RequestContext) CloseSocket(noLinger bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.socketClosed {
		return nil
	}
	c.socketClosed = true

	conn := c.conn
	if conn == nil && c.hijack != nil {
		hconn, _, err := c.hijack.Hijack()
		if err != nil {
			return err
		}
		conn = hconn
		c.conn = conn
	}
	if conn == nil {
		return nil
	}
	if noLinger {
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetLinger(0)
		}
	}
	return conn.Close()
}
