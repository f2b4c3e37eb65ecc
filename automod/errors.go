package automod

import (
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	// the caller is not permitted to perform the operation
	ErrUnauthorized = errors.New("not authorized")
	ErrInvalidInput = errors.New("invalid input")
	// a one-shot review was attempted on a log which was already reviewed
	ErrAlreadyReviewed = errors.New("moderation log already reviewed")
	// the message contains blocked content and must not be accepted at all
	ErrBlockedContent = errors.New("message contains blocked content")
)
