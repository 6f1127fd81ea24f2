package controls

import "errors"

var (
	// ErrUnknownControl is returned when no control matches the requested
	// entity, id and name.
	ErrUnknownControl = errors.New("controls: unknown control")

	// ErrOutOfRange is returned when a number set falls outside the
	// control's value range.
	ErrOutOfRange = errors.New("controls: value out of range")
)
