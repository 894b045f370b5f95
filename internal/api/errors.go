package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is any failed call: a non-2xx response, or Status 0 when the server
// could not be reached.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// IsStatus reports whether err is an *Error with the given status
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsUnauthorized reports whether the backend rejected the bearer token
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// errorFromResponse extracts the backend's message. Validation failures
// arrive as {"detail": [{"msg": ...}]}, other failures as {"detail": "..."}
// or {"message": "..."}.
func errorFromResponse(status int, body []byte) *Error {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	msg := ""
	if json.Unmarshal(body, &payload) == nil {
		msg = detailMessage(payload.Detail)
		if msg == "" {
			msg = payload.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" || len(msg) > 200 {
		msg = http.StatusText(status)
	}
	return &Error{Status: status, Message: msg}
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
