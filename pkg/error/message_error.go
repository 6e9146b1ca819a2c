package error

import (
	"fmt"
	"net/http"
)

type InvalidPresenceError string

func (err InvalidPresenceError) Error() string {
	return fmt.Sprintf("invalid presence %q: must be one of available, unavailable, composing, recording, paused", string(err))
}

func (err InvalidPresenceError) ErrCode() string {
	return "INVALID_PRESENCE_VALUE"
}

func (err InvalidPresenceError) StatusCode() int {
	return http.StatusBadRequest
}

// MalformedMessageError marks one inbound record that could not be decoded or
// lacks the fields ingestion needs.
type MalformedMessageError string

func (err MalformedMessageError) Error() string {
	return "malformed inbound message: " + string(err)
}

func (err MalformedMessageError) ErrCode() string {
	return "MALFORMED_INBOUND_MESSAGE"
}

func (err MalformedMessageError) StatusCode() int {
	return http.StatusUnprocessableEntity
}
