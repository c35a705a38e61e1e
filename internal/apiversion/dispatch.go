package apiversion

import (
	"fmt"
	"net/http"

	"sociable/internal/httputil"
)

// Result is a raw, not-yet-serialized handler outcome. The dispatcher
// serializes Body as JSON; handlers never write to the ResponseWriter.
type Result struct {
	Status int
	Body   interface{}
}

// OK builds a 200 result.
func OK(body interface{}) *Result {
	return &Result{Status: http.StatusOK, Body: body}
}

// Created builds a 201 result.
func Created(body interface{}) *Result {
	return &Result{Status: http.StatusCreated, Body: body}
}

// NoContent builds a 204 result with an empty body.
func NoContent() *Result {
	return &Result{Status: http.StatusNoContent}
}

// Handler is one behavioral version of an endpoint.
type Handler interface {
	Handle(r *http.Request) (*Result, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(r *http.Request) (*Result, error)

func (f HandlerFunc) Handle(r *http.Request) (*Result, error) {
	return f(r)
}

// Dispatcher routes a request to the handler registered for its resolved
// version tag. It carries no per-resource knowledge: every endpoint family
// constructs one from its own tag -> implementation map. Handler errors are
// not swallowed here; they are handed to the ErrorWriter collaborator.
type Dispatcher struct {
	handlers map[string]Handler
	errors   httputil.ErrorWriter
}

// NewDispatcher builds a dispatcher over a version registry.
func NewDispatcher(handlers map[string]Handler, errors httputil.ErrorWriter) *Dispatcher {
	return &Dispatcher{handlers: handlers, errors: errors}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	version := FromContext(r.Context())

	handler, ok := d.handlers[version]
	if !ok {
		httputil.WriteBadRequest(w, fmt.Sprintf("API version %s not implemented", version))
		return
	}

	result, err := handler.Handle(r)
	if err != nil {
		d.errors.WriteError(w, err)
		return
	}

	if result.Status == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	httputil.WriteJSON(w, result.Status, result.Body)
}
