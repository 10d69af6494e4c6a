// Package transporttest provides a scripted transport for tests.
package transporttest

import (
	"net"
	"strconv"
)

// Fake is an in-memory transport. Tests queue response bytes with Respond
// and inspect the request lines written by the code under test.
type Fake struct {
	ID        int
	ConnectOK bool

	// Lines holds what was written since the last successful Connect
	Lines    []string
	Connects []string
	Stops    int

	connected bool
	pending   []byte
}

// New returns a Fake whose Connect succeeds
func New() *Fake {
	return &Fake{ConnectOK: true}
}

func (f *Fake) Connect(host string, port uint16) bool {
	f.Connects = append(f.Connects, net.JoinHostPort(host, strconv.Itoa(int(port))))
	if !f.ConnectOK {
		return false
	}
	f.connected = true
	f.Lines = nil
	return true
}

func (f *Fake) Available() bool {
	return len(f.pending) > 0
}

func (f *Fake) Read() byte {
	if len(f.pending) == 0 {
		return 0
	}
	b := f.pending[0]
	f.pending = f.pending[1:]
	return b
}

func (f *Fake) Println(line string) {
	f.Lines = append(f.Lines, line)
}

func (f *Fake) Stop() {
	f.Stops++
	f.connected = false
	f.pending = nil
}

// Respond queues bytes for Read
func (f *Fake) Respond(data string) {
	f.pending = append(f.pending, data...)
}

// Connected reports whether the fake is between Connect and Stop
func (f *Fake) Connected() bool {
	return f.connected
}

// Factory builds Fakes and remembers them in creation order
type Factory struct {
	Fakes []*Fake
}

// New creates and records a Fake
func (fc *Factory) New() *Fake {
	f := New()
	f.ID = len(fc.Fakes)
	fc.Fakes = append(fc.Fakes, f)
	return f
}

// Lent returns the fakes that are currently connected
func (fc *Factory) Lent() []*Fake {
	var out []*Fake
	for _, f := range fc.Fakes {
		if f.connected {
			out = append(out, f)
		}
	}
	return out
}
