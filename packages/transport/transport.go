package transport

// Transport is a reusable network handle. Implementations must never block
// in Available.
type Transport interface {
	Connect(host string, port uint16) bool
	Available() bool
	Read() byte
	Println(line string)
	Stop()
}

// LocalIP reports the dotted-quad address of this device
type LocalIP interface {
	LocalIP() string
}
