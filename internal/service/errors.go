package service

import "errors"

// Domain errors returned by the services. Handlers map these onto HTTP
// statuses: not-found errors become 404, everything else 422.
var (
	ErrMachineNotFound = errors.New("machine does not exist")
	ErrQueueNotFound   = errors.New("queue does not exist")

	ErrQueueFull          = errors.New("a queue may only have 10 queued items")
	ErrPositionOutOfRange = errors.New("position cannot be negative")
	ErrPositionGap        = errors.New("position would leave a gap in the queue")
	ErrUnknownTask        = errors.New("task does not belong to this queue")
	ErrNothingToSkip      = errors.New("no fields can be skipped")
	ErrNoItemsLeft        = errors.New("no items left in queue")
	ErrActiveQueueExists  = errors.New("machine already has an active queue")

	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
