package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoJSONFound means generator output contained no {...} span.
	ErrNoJSONFound = errors.New("no json object found")
	// ErrMalformedJSON means the cleaned span still failed to parse.
	ErrMalformedJSON = errors.New("malformed json")
	// ErrInvalidArgument marks a precondition violation on caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthorized marks a rejected credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstreamUnavailable marks network/service failures from the
	// embedding, index, or text-generation capability.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrQuestionTimeout means one question did not finish before its deadline.
	ErrQuestionTimeout = errors.New("question processing timed out")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
