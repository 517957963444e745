package errprocess

import (
	"errors"
	"fmt"

	"rental_messaging_service/pkg/logger"
)

// Error taxonomy shared by the thread store, the gateway and the REST facade.
// Callers branch with errors.Is; the REST layer maps each sentinel to a status code.
var (
	// ErrInvalidArgument malformed or self-referential input
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrThreadNotFound referenced conversation thread does not exist
	ErrThreadNotFound = errors.New("conversation not found")
	// ErrUserNotFound referenced user does not exist
	ErrUserNotFound = errors.New("user not found")
	// ErrForbidden caller is not a participant of the referenced thread
	ErrForbidden = errors.New("forbidden")
	// ErrAuth credential missing or invalid
	ErrAuth = errors.New("authentication failed")
	// ErrStorageUnavailable transient backing-store failure, not retried internally
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Wrap logs the cause and returns it wrapped under one of the sentinels above
func Wrap(sentinel error, cause error) error {
	logger.Log.Errorf(sentinel.Error(), cause)
	return fmt.Errorf("%w: %v", sentinel, cause)
}
