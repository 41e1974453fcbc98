package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
	// ErrRoomClosed is returned for sends into a deactivated room.
	ErrRoomClosed = errors.New("chat room is read-only")
)

// ModerationError carries the moderation collaborator's veto back to the
// sender. It aborts persistence but is not an infrastructure failure.
type ModerationError struct {
	Reason     string
	Suggestion string
	Severity   string
}

func (e *ModerationError) Error() string {
	return fmt.Sprintf("message blocked: %s", e.Reason)
}
