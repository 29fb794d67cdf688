package errors

import "errors"

var (
	BadRequestError        = errors.New("Bad request")
	RatelimitExceededError = errors.New("Ratelimit exceeded")
)
