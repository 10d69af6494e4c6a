// Package http provides a non-blocking HTTP/1.1 client engine for a single
// cooperative control loop.
//
// The Engine lends connections from a fixed-size pool:
//   - Send parses the URL, connects and writes the request, then returns
//   - Poll advances every pending request without waiting for data
//   - each request ends exactly once, as Completed or NoResponse
//   - the completion callback runs inside Poll
//
// ParseURL and ParseResponse are the pure helpers the engine is built on.
package http
