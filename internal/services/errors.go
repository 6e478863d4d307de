package services

import (
	"errors"

	"rcnpulse/internal/sources"
)

// ErrUnknownNamespace is returned when invalidating a namespace the
// pipeline does not use
var ErrUnknownNamespace = errors.New("unknown cache namespace")

// unavailableError carries an Unavailable adapter result through the
// cache so degraded results are never stored
type unavailableError struct {
	reason string
}

func (e *unavailableError) Error() string {
	return "source unavailable: " + e.reason
}

// resultFromError maps a cache error back to an Unavailable result
func resultFromError[T any](err error) sources.Result[T] {
	var ue *unavailableError
	if errors.As(err, &ue) {
		return sources.UnavailableResult[T](ue.reason)
	}
	return sources.UnavailableResult[T](sources.ReasonTransport)
}
