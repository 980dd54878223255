package client

import (
	"errors"
	"fmt"
)

// FallbackMessage is shown when the store refuses a call without saying why.
const FallbackMessage = "Something went wrong, please try again."

var ErrBadResponse = errors.New("bad store response")

// StoreError is an application-level refusal ({"success": false}).
type StoreError struct {
	Op      string
	Message string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.UserMessage())
}

// UserMessage is the text to put next to the comment composer.
func (e *StoreError) UserMessage() string {
	if e.Message == "" {
		return FallbackMessage
	}
	return e.Message
}

// UserMessage extracts a user-facing message from any client error.
func UserMessage(err error) string {
	var se *StoreError
	if errors.As(err, &se) {
		return se.UserMessage()
	}
	return FallbackMessage
}
