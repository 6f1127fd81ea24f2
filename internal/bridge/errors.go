package bridge

import "errors"

// Bridge errors.
var (
	// ErrUnknownCommand indicates a command name the bridge does not handle.
	ErrUnknownCommand = errors.New("bridge: unknown command")

	// ErrMissingParameter indicates a command arrived without a required
	// parameter, or with one of the wrong type.
	ErrMissingParameter = errors.New("bridge: missing or invalid parameter")

	// ErrUnknownZone indicates a command topic named a zone that is not
	// configured.
	ErrUnknownZone = errors.New("bridge: unknown zone")
)
