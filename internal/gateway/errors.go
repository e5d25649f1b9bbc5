package gateway

import (
	"errors"
	"fmt"
)

// ErrRequestFailed matches every error returned by Client.Do.
var ErrRequestFailed = errors.New("request failed")

// Error is the single failure type of the gateway: transport errors, non-2xx
// statuses and undecodable bodies. StatusCode is 0 when no response arrived.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.Path, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrRequestFailed }
