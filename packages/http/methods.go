package http

import (
	"encoding/json"
	"net/url"
)

func (e *Engine[T]) Get(rawURL string, cb Callback) Status {
	return e.Send("GET", rawURL, nil, "", cb)
}

func (e *Engine[T]) Delete(rawURL string, cb Callback) Status {
	return e.Send("DELETE", rawURL, nil, "", cb)
}

// Post sends body as application/json, like PostJSON does for values that
// are already serialized
func (e *Engine[T]) Post(rawURL, body string, cb Callback) Status {
	return e.Send("POST", rawURL, typedBodyHeaders(ContentTypeJSON, body), body, cb)
}

func (e *Engine[T]) Put(rawURL, body string, cb Callback) Status {
	return e.Send("PUT", rawURL, typedBodyHeaders(ContentTypeJSON, body), body, cb)
}

func (e *Engine[T]) PostJSON(rawURL string, v any, cb Callback) Status {
	return e.sendJSON("POST", rawURL, v, cb)
}

func (e *Engine[T]) PutJSON(rawURL string, v any, cb Callback) Status {
	return e.sendJSON("PUT", rawURL, v, cb)
}

func (e *Engine[T]) sendJSON(method, rawURL string, v any, cb Callback) Status {
	data, err := json.Marshal(v)
	if err != nil {
		e.logger.Warn("cannot serialize request body", "url", rawURL, "error", err)
		return e.reject(method, rawURL, StatusFailedUnableToSerializeBody)
	}
	body := string(data)
	return e.Send(method, rawURL, typedBodyHeaders(ContentTypeJSON, body), body, cb)
}

// PostForm sends an already encoded form string
func (e *Engine[T]) PostForm(rawURL, form string, cb Callback) Status {
	return e.Send("POST", rawURL, typedBodyHeaders(ContentTypeForm, form), form, cb)
}

// PostValues url-encodes values and sends them as a form
func (e *Engine[T]) PostValues(rawURL string, values url.Values, cb Callback) Status {
	return e.PostForm(rawURL, values.Encode(), cb)
}

// Do sends a prepared Request
func (e *Engine[T]) Do(req *Request, cb Callback) Status {
	return e.Send(req.Method, req.URL, req.Headers, req.Body, cb)
}
