// Package envelope renders the uniform {success, message, data, errors}
// response wrapper used by every API endpoint.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wolfman30/lead-manager/internal/validation"
)

const maxBodyBytes = 1 << 20

// Envelope is the response body shape.
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Summary any               `json:"summary,omitempty"`
	Errors  validation.Errors `json:"errors,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Write encodes env with the given status.
func Write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// OK writes a successful envelope.
func OK(w http.ResponseWriter, status int, message string, data any) {
	Write(w, status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failed envelope with optional field errors.
func Fail(w http.ResponseWriter, status int, message string, errs validation.Errors) {
	Write(w, status, Envelope{Success: false, Message: message, Errors: errs})
}

// Invalid writes a 400 envelope from a validation error.
func Invalid(w http.ResponseWriter, fallback string, verr *validation.Error) {
	msg := verr.Message
	if msg == "" {
		msg = fallback
	}
	Fail(w, http.StatusBadRequest, msg, verr.Fields)
}

// ErrEmptyBody is returned by Decode when the request carries no body.
var ErrEmptyBody = errors.New("request body is empty")

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// MalformedBody writes the 400 envelope for undecodable JSON.
func MalformedBody(w http.ResponseWriter, err error) {
	Write(w, http.StatusBadRequest, Envelope{
		Success: false,
		Message: "Malformed request body",
		Error:   err.Error(),
	})
}
