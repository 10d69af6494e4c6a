package transport

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultDialTimeout bounds a single connect attempt, and with it how
	// long Connect can hold up the caller's poll loop
	DefaultDialTimeout = time.Second
	// DefaultTLSPort is dialed with TLS unless WithTLSPorts says otherwise
	DefaultTLSPort = 443

	readChunkSize = 1024
)

// TCP is a Transport over a TCP (optionally TLS) connection. A background
// goroutine copies socket bytes into an internal buffer so Available and
// Read never block the caller.
//
// Connect is the one blocking call: it dials, and performs the TLS
// handshake on TLS ports, before returning. An unreachable host therefore
// stalls the caller for up to the dial timeout, once per send.
type TCP struct {
	dialTimeout      time.Duration
	tlsConfig        *tls.Config
	tlsPorts         map[uint16]bool
	bufferUntilClose bool

	mu   sync.Mutex
	conn net.Conn
	buf  []byte
	off  int
	eof  bool
	err  error
}

// TCPOption configures a TCP transport
type TCPOption func(*TCP)

// WithDialTimeout sets how long Connect may wait for the dial
func WithDialTimeout(d time.Duration) TCPOption {
	return func(t *TCP) {
		if d > 0 {
			t.dialTimeout = d
		}
	}
}

// WithTLSConfig sets the TLS configuration used for TLS ports
func WithTLSConfig(cfg *tls.Config) TCPOption {
	return func(t *TCP) {
		t.tlsConfig = cfg
	}
}

// WithInsecureSkipVerify disables certificate verification on TLS ports
func WithInsecureSkipVerify(skip bool) TCPOption {
	return func(t *TCP) {
		if t.tlsConfig == nil {
			t.tlsConfig = &tls.Config{}
		}
		t.tlsConfig.InsecureSkipVerify = skip
	}
}

// WithTLSPorts replaces the set of ports dialed with TLS
func WithTLSPorts(ports ...uint16) TCPOption {
	return func(t *TCP) {
		t.tlsPorts = make(map[uint16]bool, len(ports))
		for _, p := range ports {
			t.tlsPorts[p] = true
		}
	}
}

// WithBufferUntilClose makes Available report data only once the peer has
// closed the connection. Requests are always sent with "Connection: close",
// so this hands the engine complete responses.
func WithBufferUntilClose(enabled bool) TCPOption {
	return func(t *TCP) {
		t.bufferUntilClose = enabled
	}
}

// NewTCP creates an unconnected TCP transport
func NewTCP(opts ...TCPOption) *TCP {
	t := &TCP{
		dialTimeout:      DefaultDialTimeout,
		tlsPorts:         map[uint16]bool{DefaultTLSPort: true},
		bufferUntilClose: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Connect dials host:port, waiting at most the dial timeout. Any previous
// connection is stopped first.
func (t *TCP) Connect(host string, port uint16) bool {
	t.Stop()

	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	dialer := &net.Dialer{Timeout: t.dialTimeout}

	var conn net.Conn
	var err error
	if t.tlsPorts[port] {
		cfg := &tls.Config{}
		if t.tlsConfig != nil {
			cfg = t.tlsConfig.Clone()
		}
		if cfg.ServerName == "" {
			cfg.ServerName = host
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, cfg)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.err = err
		return false
	}

	t.conn = conn
	t.err = nil
	go t.readLoop(conn)
	return true
}

func (t *TCP) readLoop(conn net.Conn) {
	chunk := make([]byte, readChunkSize)
	for {
		n, err := conn.Read(chunk)

		t.mu.Lock()
		// Stop or a new Connect replaced the connection
		if t.conn != conn {
			t.mu.Unlock()
			return
		}
		if n > 0 {
			t.buf = append(t.buf, chunk[:n]...)
		}
		if err != nil {
			t.eof = true
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				t.err = err
			}
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()
	}
}

// Available reports whether Read has a byte to return
func (t *TCP) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.off >= len(t.buf) {
		return false
	}
	if t.bufferUntilClose && !t.eof {
		return false
	}
	return true
}

// Read returns the next buffered byte, or 0 when nothing is buffered
func (t *TCP) Read() byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.off >= len(t.buf) {
		return 0
	}
	b := t.buf[t.off]
	t.off++
	if t.off == len(t.buf) {
		t.buf = t.buf[:0]
		t.off = 0
	}
	return b
}

// Println writes line followed by CRLF. Write errors are kept for Err.
func (t *TCP) Println(line string) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(t.dialTimeout))
	if _, err := io.WriteString(conn, line+"\r\n"); err != nil {
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
	}
}

// Stop closes the connection and drops buffered bytes
func (t *TCP) Stop() {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.buf = t.buf[:0]
	t.off = 0
	t.eof = false
	t.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// Connected reports whether a connection is open
func (t *TCP) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Err returns the last dial, read or write error
func (t *TCP) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
