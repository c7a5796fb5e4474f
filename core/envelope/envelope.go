// Package envelope defines the wire format exchanged between a master
// process and its pool of long-lived worker processes: tagged,
// self-describing records distinguished by Type, carrying a correlation
// ID, an action name, a JSON payload, and an HTTP-like status/error pair.
package envelope

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type distinguishes the five envelope shapes that cross the channel.
type Type string

const (
	TypeInit      Type = "INIT"
	TypeRequest   Type = "REQUEST"
	TypeResponse  Type = "RESPONSE"
	TypeHeartbeat Type = "HEARTBEAT"
	TypeShutdown  Type = "SHUTDOWN"
)

// Mode names the worker-side execution mode announced in an INIT envelope.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeConcurrent Mode = "concurrent"
)

// ErrorPayload carries structured failure detail, mirroring the shape a
// thrown handler error produces on the wire.
type ErrorPayload struct {
	Name    string `json:"name,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// Envelope is the single tagged record transferred in both directions
// over the channel. Not every field is meaningful for every Type; see the
// per-Type constructors below for the fields each one populates.
type Envelope struct {
	Type Type `json:"type"`

	// REQUEST / RESPONSE correlation identifier.
	ID string `json:"id,omitempty"`

	// REQUEST fields.
	Action    string          `json:"action,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	TimeoutMs int64           `json:"timeout,omitempty"`

	// Nested REQUEST compatibility shape: {type:"REQUEST", request:{id,action,data}, timeout}.
	// The codec folds this into the flat fields above on decode; peepsy never emits it.
	Request *nestedRequest `json:"request,omitempty"`

	// RESPONSE fields.
	Status       int           `json:"status,omitempty"`
	Error        string        `json:"error,omitempty"`
	ErrorPayload *ErrorPayload `json:"errorPayload,omitempty"`

	// INIT fields.
	Mode Mode `json:"mode,omitempty"`

	// HEARTBEAT fields.
	PID            int   `json:"pid,omitempty"`
	Timestamp      int64 `json:"timestamp,omitempty"`
	RequestsActive int   `json:"requestsActive,omitempty"`
}

type nestedRequest struct {
	ID     string          `json:"id"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// NewID returns an opaque, globally-unique-enough correlation identifier.
// A UUIDv4 supplies the 128 bits of randomness the wire format calls for.
func NewID() string {
	return uuid.NewString()
}

// NewInit builds the envelope a worker sends once at startup to announce
// its execution mode.
func NewInit(mode Mode) Envelope {
	return Envelope{Type: TypeInit, Mode: mode}
}

// NewRequest builds a flat REQUEST envelope. Either side of the channel
// may originate one.
func NewRequest(id, action string, data json.RawMessage, timeout time.Duration) Envelope {
	return Envelope{
		Type:      TypeRequest,
		ID:        id,
		Action:    action,
		Data:      data,
		TimeoutMs: timeout.Milliseconds(),
	}
}

// NewResponse builds a successful RESPONSE envelope.
func NewResponse(id string, status int, data json.RawMessage) Envelope {
	return Envelope{Type: TypeResponse, ID: id, Status: status, Data: data}
}

// NewErrorResponse builds a failing RESPONSE envelope. status must be >= 400.
func NewErrorResponse(id string, status int, errMsg string, payload *ErrorPayload) Envelope {
	return Envelope{Type: TypeResponse, ID: id, Status: status, Error: errMsg, ErrorPayload: payload}
}

// NewHeartbeat builds the periodic child->master liveness envelope.
func NewHeartbeat(pid int, requestsActive int) Envelope {
	return Envelope{
		Type:           TypeHeartbeat,
		PID:            pid,
		Timestamp:      time.Now().UnixMilli(),
		RequestsActive: requestsActive,
	}
}

// NewShutdown builds the graceful-stop envelope the master sends a child.
func NewShutdown() Envelope {
	return Envelope{Type: TypeShutdown}
}

// Timeout returns TimeoutMs as a time.Duration.
func (e Envelope) Timeout() time.Duration {
	return time.Duration(e.TimeoutMs) * time.Millisecond
}

// IsError reports whether a RESPONSE envelope represents a failure.
func (e Envelope) IsError() bool {
	return e.Status >= 400
}

// ErrorMessage returns the human-readable error string for a failing
// RESPONSE: the legacy error field when set, otherwise
// error_payload.message. It does not modify the envelope. This keeps
// callers on both sides reading one value regardless of which field the
// sender filled.
func (e Envelope) ErrorMessage() string {
	if e.Error != "" {
		return e.Error
	}
	if e.ErrorPayload != nil {
		return e.ErrorPayload.Message
	}
	return ""
}

// Normalize folds the nested REQUEST compatibility shape into the flat
// fields, and backfills Error from ErrorPayload.Message. Call this once
// after decoding an envelope that may have originated from a peer using
// the nested REQUEST shape.
func (e Envelope) Normalize() Envelope {
	if e.Type == TypeRequest && e.Request != nil {
		if e.ID == "" {
			e.ID = e.Request.ID
		}
		if e.Action == "" {
			e.Action = e.Request.Action
		}
		if e.Data == nil {
			e.Data = e.Request.Data
		}
		e.Request = nil
	}
	if e.Type == TypeResponse && e.Error == "" && e.ErrorPayload != nil {
		e.Error = e.ErrorPayload.Message
	}
	return e
}
