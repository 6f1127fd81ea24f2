package nuvo

import (
	"errors"
	"fmt"
)

// Sentinel errors for driver operations.
var (
	// ErrNotConnected indicates the driver connection has not been
	// established or has been lost.
	ErrNotConnected = errors.New("nuvo: not connected to driver service")

	// ErrTimeout indicates the driver did not answer within the request
	// timeout.
	ErrTimeout = errors.New("nuvo: request timed out")

	// ErrCommandRejected indicates the amplifier answered with an explicit
	// error response. Use errors.As with *CommandError for the message.
	ErrCommandRejected = errors.New("nuvo: command rejected by amplifier")

	// ErrClosed indicates the client has been disconnected.
	ErrClosed = errors.New("nuvo: client closed")
)

// CommandError wraps an amplifier ErrorResponse so callers can surface the
// amplifier's own message. It matches ErrCommandRejected with errors.Is.
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("nuvo: command rejected by amplifier: %s", e.Message)
}

// Is reports whether target is ErrCommandRejected.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandRejected
}
