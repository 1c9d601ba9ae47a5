package convo

import (
	"errors"
	"fmt"

	"github.com/parleybot/parley/internal/kind"
)

// ErrStopped is returned by Push and Check once the engine loop has
// exited.
var ErrStopped = errors.New("context engine stopped")

// UnknownKindError indicates a push named a kind with no registered
// comparator.
type UnknownKindError struct {
	Kind kind.Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown kind %q", e.Kind)
}

// IsUnknownKind reports whether the error is an UnknownKindError.
// Uses errors.As to handle wrapped errors.
func IsUnknownKind(err error) bool {
	var ke *UnknownKindError
	return errors.As(err, &ke)
}

// DeliveryError indicates the adapter could not deliver a prompt.
// The push failed synchronously: nothing was queued or persisted.
type DeliveryError struct {
	User    string
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver prompt to %s in %s: %v", e.User, e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsDelivery reports whether the error is a DeliveryError.
// Uses errors.As to handle wrapped errors.
func IsDelivery(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
