package plants

import "errors"

var (
	// ErrInvalidArgument marks bad caller input such as an empty plant name.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound means the plant id does not match any stored profile.
	ErrNotFound = errors.New("plant not found")
	// ErrSlotEmpty is returned by a Slot that has never been written.
	ErrSlotEmpty = errors.New("storage slot is empty")
)
