// Package httputil renders the JSON envelopes shared by every endpoint:
//
//	{"status":"success", ...}
//	{"status":"error","message":"...","errors":{"field":"reason"}}
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "courier/pkg/domain-errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Fixed messages for errors whose detail must not reach the caller.
const (
	MessageInternal    = "Internal server error."
	MessageUpstream    = "An external service is unavailable, please try again later."
	MessageTimeout     = "An external service did not respond in time, please try again later."
	MessageNotFound    = "Requested resource was not found."
	MessageNotAllowed  = "Method is not allowed for requested resource."
	MessageBadJSONBody = "Request body is not valid JSON."
)

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into the error envelope. Only client-facing codes
// echo their message; everything else gets a fixed generic message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Status: StatusError}

	switch {
	case code == dErrors.CodeUpstreamUnavailable && dErrors.HasCode(err, dErrors.CodeTimeout):
		code = dErrors.CodeTimeout
		resp.Message = MessageTimeout
	case code == dErrors.CodeUpstreamUnavailable:
		resp.Message = MessageUpstream
	case code == dErrors.CodeTimeout:
		resp.Message = MessageTimeout
	case dErrors.IsClientFacing(code):
		de, _ := dErrors.As(err)
		resp.Message = de.Message
		resp.Errors = de.Fields
	default:
		resp.Message = MessageInternal
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// DecodeJSON decodes the body into T. An empty body decodes to the zero value
// so field validation can report every missing field.
func DecodeJSON[T any](r *http.Request) (*T, error) {
	var req T
	if r.Body == nil {
		return &req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, MessageBadJSONBody)
	}
	return &req, nil
}
