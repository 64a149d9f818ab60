package relationships

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by Service for an expected outcome
// wraps exactly one of them.
var (
	// ErrNotFound indicates a user taking part in the operation does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the operation does not apply to the current state of the pair.
	ErrConflict = errors.New("conflict")
)

var (
	ErrTargetNotFound    = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrRequesterNotFound = fmt.Errorf("%w: requesting user not found", ErrNotFound)
	ErrCallerNotFound    = fmt.Errorf("%w: account not found", ErrNotFound)

	ErrAlreadyFriends   = fmt.Errorf("%w: already friends", ErrConflict)
	ErrRequestPending   = fmt.Errorf("%w: friend request already pending", ErrConflict)
	ErrNoPendingRequest = fmt.Errorf("%w: no pending friend request", ErrConflict)
	ErrSelfRequest      = fmt.Errorf("%w: cannot send a friend request to yourself", ErrConflict)
	ErrInvalidID        = fmt.Errorf("%w: invalid user id", ErrConflict)
)

// Message returns the user-facing text for an expected error, without the
// category prefix.
func Message(err error) string {
	for _, known := range []error{
		ErrTargetNotFound, ErrRequesterNotFound, ErrCallerNotFound,
		ErrAlreadyFriends, ErrRequestPending, ErrNoPendingRequest, ErrSelfRequest, ErrInvalidID,
	} {
		if errors.Is(err, known) {
			return messages[known]
		}
	}
	return ""
}

var messages = map[error]string{
	ErrTargetNotFound:    "User not found",
	ErrRequesterNotFound: "User not found",
	ErrCallerNotFound:    "Account not found",
	ErrAlreadyFriends:    "You are already friends with this user",
	ErrRequestPending:    "A friend request between you and this user is already pending",
	ErrNoPendingRequest:  "No pending friend request from this user",
	ErrSelfRequest:       "You cannot send a friend request to yourself",
	ErrInvalidID:         "Invalid user id",
}
