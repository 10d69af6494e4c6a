// Package transport defines the connection contract used by the request
// engine and ships a TCP implementation of it.
//
// A Transport opens one connection at a time:
//   - Connect dials a host and port and reports success
//   - Available reports, without blocking, whether bytes can be read
//   - Read returns the next received byte
//   - Println writes one request line terminated by CRLF
//   - Stop closes the connection so the handle can be reused
//
// LocalIP providers supply the address written into the Host header.
package transport
