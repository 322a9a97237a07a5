package coreaudio

import (
	"errors"
	"fmt"
)

// Error carries the raw OSStatus code from a failed property call.
// The platform defines no taxonomy beyond the number, so neither do we.
type Error struct {
	Status Status
}

func (e *Error) Error() string {
	return fmt.Sprintf("core audio status %d", int32(e.Status))
}

// IsStatus reports whether err is a platform error with the given
// status code.
func IsStatus(err error, status Status) bool {
	var caErr *Error
	return errors.As(err, &caErr) && caErr.Status == status
}

// ErrNoChannels is returned by volume operations on a device whose
// channel scan found no addressable channels. The alternative is a
// division by zero when averaging, so the condition is surfaced
// explicitly instead.
var ErrNoChannels = errors.New("device has no addressable output channels")
