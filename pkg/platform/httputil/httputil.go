// Package httputil implements the uniform response envelope.
//
// Every endpoint, success or failure, responds with
//
//	{ "data": ..., "meta": {...} }    or
//	{ "error": {...}, "meta": {...} }
//
// Exactly one of data/error is present; meta always carries the request id
// and an ISO-8601 timestamp for log correlation.
package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	dErrors "gestora/pkg/domain-errors"
	"gestora/pkg/requestcontext"
)

// Meta is attached to every envelope.
type Meta struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// ErrorBody is the caller-visible error shape. Message is always safe to
// expose; internal causes never reach it.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the wire shape of every response.
type Envelope struct {
	Data  any        `json:"data,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
	Meta  Meta       `json:"meta"`
}

func meta(ctx context.Context) Meta {
	return Meta{
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx).UTC().Format(time.RFC3339Nano),
	}
}

// WriteData writes a success envelope with the given status.
func WriteData(w http.ResponseWriter, ctx context.Context, status int, data any) {
	if data == nil {
		// Keep envelope exclusivity: a success always carries a data member.
		data = struct{}{}
	}
	write(w, status, Envelope{Data: data, Meta: meta(ctx)})
}

// WriteError maps err to its fixed HTTP status and writes an error envelope.
// Non-domain errors collapse to an opaque INTERNAL_ERROR body.
func WriteError(w http.ResponseWriter, ctx context.Context, err error) {
	body := &ErrorBody{
		Code:    string(dErrors.CodeInternal),
		Message: "an internal error occurred",
	}
	var de *dErrors.Error
	if dErrors.AsDomain(err, &de) {
		body.Code = string(de.Code)
		body.Message = de.Message
		body.Details = de.Details
		if de.Code == dErrors.CodeInternal {
			// Internal messages may describe infrastructure; mask them.
			body.Message = "an internal error occurred"
			body.Details = nil
		}
	}
	write(w, dErrors.ToHTTPStatus(dErrors.Code(body.Code)), Envelope{Error: body, Meta: meta(ctx)})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
