package http

import (
	"bytes"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/pollhttp/packages/pool"
	"github.com/abdul-hamid-achik/pollhttp/packages/transport"
)

const (
	// ResponseTimeout is how long a request may wait for its first byte
	ResponseTimeout = 60 * time.Second
	// ReadChunkSize is the size of the local accumulator used while draining
	ReadChunkSize = 1024
)

// Callback receives the single terminal Response of a request
type Callback func(Response)

type pendingRequest[T transport.Transport] struct {
	id       string
	handle   pool.Handle
	conn     T
	callback Callback
	start    time.Time
	method   string
	url      string
}

// Engine issues requests over a fixed pool of transports and advances them
// in Poll. It is meant to be driven from one goroutine and is not safe for
// concurrent use.
type Engine[T transport.Transport] struct {
	pool           *pool.Pool[T]
	localIP        transport.LocalIP
	logger         *slog.Logger
	clock          Clock
	observers      []Observer
	defaultHeaders []string

	pending []*pendingRequest[T]
	buf     bytes.Buffer
	polling bool
	closed  bool
}

// NewEngine builds the transport pool up front with newTransport. localIP
// supplies the Host header value.
func NewEngine[T transport.Transport](newTransport func() T, localIP transport.LocalIP, opts ...Option) *Engine[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if localIP == nil {
		localIP = transport.StaticIP("")
	}

	return &Engine[T]{
		pool:           pool.New(o.poolSize, newTransport),
		localIP:        localIP,
		logger:         o.logger,
		clock:          o.clock,
		observers:      o.observers,
		defaultHeaders: o.defaultHeaders,
		pending:        make([]*pendingRequest[T], 0, o.poolSize),
	}
}

// Send starts a request and returns without waiting for the response.
//
// On StatusSent the callback (which may be nil) will be invoked exactly once
// from a later Poll. Any other status means nothing was queued and the
// callback will never run. headers are written verbatim; a non-empty body
// follows a blank line.
func (e *Engine[T]) Send(method, rawURL string, headers []string, body string, cb Callback) Status {
	u := ParseURL(rawURL)
	if u.Failed {
		return e.reject(method, rawURL, StatusFailedInvalidURL)
	}
	if e.closed {
		return e.reject(method, rawURL, StatusFailedTooManyConcurrentRequests)
	}

	h, conn, ok := e.pool.Acquire()
	if !ok {
		return e.reject(method, rawURL, StatusFailedTooManyConcurrentRequests)
	}

	start := e.clock.Now()
	if !conn.Connect(u.Host, uint16(u.Port)) {
		e.pool.Release(h)
		return e.reject(method, rawURL, StatusFailedUnableToConnect)
	}

	req := &pendingRequest[T]{
		id:       uuid.NewString(),
		handle:   h,
		conn:     conn,
		callback: cb,
		start:    start,
		method:   method,
		url:      rawURL,
	}
	e.pending = append(e.pending, req)
	e.writeRequest(conn, method, u.Path, headers, body)

	e.logger.Debug("request sent",
		slog.String("request_id", req.id),
		slog.String("method", method),
		slog.String("url", rawURL),
		slog.Int("pending", len(e.pending)),
	)
	return StatusSent
}

func (e *Engine[T]) writeRequest(conn T, method, path string, headers []string, body string) {
	if path == "" {
		path = "/"
	}

	conn.Println(method + " " + path + " HTTP/1.1")
	conn.Println("Host: " + e.localIP.LocalIP())
	conn.Println("Connection: close")
	for _, h := range e.defaultHeaders {
		conn.Println(h)
	}
	for _, h := range headers {
		conn.Println(h)
	}
	if body != "" {
		conn.Println("")
		conn.Println(body)
	}
	conn.Println("")
}

func (e *Engine[T]) reject(method, rawURL string, status Status) Status {
	e.logger.Warn("request rejected",
		slog.String("method", method),
		slog.String("url", rawURL),
		slog.String("status", status.String()),
	)
	e.notify(Response{Status: status, Method: method, URL: rawURL})
	return status
}

// Poll advances every pending request once, in send order. It never waits
// for data. Requests whose transport has bytes are drained, parsed and
// completed; requests silent for longer than ResponseTimeout end with
// StatusNoResponse. Requests sent from a callback are first examined by the
// next Poll, and calling Poll from a callback does nothing.
func (e *Engine[T]) Poll() {
	if len(e.pending) == 0 || e.polling {
		return
	}
	e.polling = true
	defer func() { e.polling = false }()

	now := e.clock.Now()
	n := len(e.pending)
	w := 0
	i := 0
	for ; i < n && !e.closed; i++ {
		// Callbacks may append to e.pending, so always index the field
		req := e.pending[i]
		if e.advance(req, now) {
			continue
		}
		e.pending[w] = req
		w++
	}

	// Keep survivors, anything not visited and anything appended meanwhile
	old := e.pending
	e.pending = append(old[:w], old[i:]...)
	clear(old[len(e.pending):])

	if e.closed {
		e.teardown()
	}
}

// advance reports whether req reached its terminal state
func (e *Engine[T]) advance(req *pendingRequest[T], now time.Time) bool {
	elapsed := now.Sub(req.start)

	if !req.conn.Available() {
		if elapsed <= ResponseTimeout {
			return false
		}
		e.logger.Warn("request timed out",
			slog.String("request_id", req.id),
			slog.String("url", req.url),
			slog.Duration("elapsed", elapsed),
		)
		e.finish(req, Response{Status: StatusNoResponse, ResponseCode: 0}, elapsed)
		return true
	}

	resp := ParseResponse(e.drain(req.conn))
	resp.Status = StatusCompleted
	e.logger.Debug("request completed",
		slog.String("request_id", req.id),
		slog.Int("code", resp.ResponseCode),
		slog.Int("content_length", resp.ContentLength),
		slog.Duration("elapsed", elapsed),
	)
	e.finish(req, resp, elapsed)
	return true
}

// drain copies every available byte through a fixed local chunk into the
// engine's reusable buffer
func (e *Engine[T]) drain(conn T) []byte {
	e.buf.Reset()

	var chunk [ReadChunkSize]byte
	n := 0
	for conn.Available() {
		chunk[n] = conn.Read()
		n++
		if n == len(chunk) {
			e.buf.Write(chunk[:n])
			n = 0
		}
	}
	e.buf.Write(chunk[:n])

	return e.buf.Bytes()
}

func (e *Engine[T]) finish(req *pendingRequest[T], resp Response, elapsed time.Duration) {
	resp.RequestID = req.id
	resp.Method = req.method
	resp.URL = req.url
	resp.Duration = elapsed

	e.notify(resp)
	if req.callback != nil {
		req.callback(resp)
	}
	e.pool.Release(req.handle)
}

func (e *Engine[T]) notify(resp Response) {
	for _, obs := range e.observers {
		obs.Observe(resp)
	}
}

// Close abandons every pending request without invoking callbacks, returns
// the handles to the pool and stops all transports. Send fails afterwards.
// Called from a callback, the teardown happens when the current Poll ends.
func (e *Engine[T]) Close() {
	if e.closed {
		return
	}
	e.closed = true
	if e.polling {
		return
	}
	e.teardown()
}

func (e *Engine[T]) teardown() {
	for _, req := range e.pending {
		e.logger.Debug("request abandoned",
			slog.String("request_id", req.id),
			slog.String("url", req.url),
		)
		e.pool.Release(req.handle)
	}
	clear(e.pending)
	e.pending = e.pending[:0]
	e.pool.Close()
}

// Pending returns the number of requests awaiting a terminal event
func (e *Engine[T]) Pending() int {
	return len(e.pending)
}

// Capacity returns the maximum number of requests in flight
func (e *Engine[T]) Capacity() int {
	return e.pool.Cap()
}

// Idle returns how many more requests could be sent right now
func (e *Engine[T]) Idle() int {
	return e.pool.Idle()
}

func (e *Engine[T]) Closed() bool {
	return e.closed
}
