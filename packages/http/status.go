package http

import (
	"errors"
	"strconv"
)

// Status is the outcome of a request, either returned by Send or delivered
// to the completion callback
type Status int

const (
	StatusSent                            Status = 1
	StatusCompleted                       Status = 2
	StatusNoResponse                      Status = 3
	StatusFailedUnableToConnect           Status = 30
	StatusFailedInvalidURL                Status = 31
	StatusFailedUnableToSerializeBody     Status = 32
	StatusFailedTooManyConcurrentRequests Status = 33
)

var (
	ErrInvalidURL                = errors.New("http: invalid url")
	ErrUnableToConnect           = errors.New("http: unable to connect to server")
	ErrTooManyConcurrentRequests = errors.New("http: too many concurrent requests")
	ErrUnableToSerializeBody     = errors.New("http: unable to serialize body")
	ErrNoResponse                = errors.New("http: no response")
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "Sent"
	case StatusCompleted:
		return "Completed"
	case StatusNoResponse:
		return "NoResponse"
	case StatusFailedUnableToConnect:
		return "Failed_UnableToConnectToServer"
	case StatusFailedInvalidURL:
		return "Failed_InvalidUrl"
	case StatusFailedUnableToSerializeBody:
		return "Failed_UnableToSerializeBody"
	case StatusFailedTooManyConcurrentRequests:
		return "Failed_TooManyConcurrentRequests"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// Failed reports whether Send rejected the request
func (s Status) Failed() bool {
	return s >= StatusFailedUnableToConnect
}

// Err maps the status to a sentinel error. Sent and Completed map to nil.
func (s Status) Err() error {
	switch s {
	case StatusNoResponse:
		return ErrNoResponse
	case StatusFailedUnableToConnect:
		return ErrUnableToConnect
	case StatusFailedInvalidURL:
		return ErrInvalidURL
	case StatusFailedUnableToSerializeBody:
		return ErrUnableToSerializeBody
	case StatusFailedTooManyConcurrentRequests:
		return ErrTooManyConcurrentRequests
	default:
		return nil
	}
}
