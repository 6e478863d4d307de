package sources

// Status tells callers whether an adapter produced data
type Status int

const (
	// NotAttempted is the zero value: the adapter has not been called
	NotAttempted Status = iota
	Available
	Unavailable
)

func (s Status) String() string {
	switch s {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "not_attempted"
	}
}

// Reasons attached to Unavailable results
const (
	ReasonDisabled      = "disabled"
	ReasonUnknownOrigin = "unknown_origin"
	ReasonTransport     = "transport_error"
	ReasonHTTPStatus    = "http_status"
	ReasonMalformed     = "malformed_payload"
	ReasonNoData        = "no_data"
)

// Result is the outcome of one adapter call. Adapters never return an
// error; a failed fetch is an Unavailable result with a Reason.
type Result[T any] struct {
	Status Status `json:"status"`
	Value  T      `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// OK reports whether Value holds data
func (r Result[T]) OK() bool {
	return r.Status == Available
}

// Get returns Value and whether it is available
func (r Result[T]) Get() (T, bool) {
	return r.Value, r.Status == Available
}

// ValueOr returns Value when available and fallback otherwise
func (r Result[T]) ValueOr(fallback T) T {
	if r.Status == Available {
		return r.Value
	}
	return fallback
}

// AvailableResult wraps v as an Available result
func AvailableResult[T any](v T) Result[T] {
	return Result[T]{Status: Available, Value: v}
}

// UnavailableResult is an Unavailable result with the given reason
func UnavailableResult[T any](reason string) Result[T] {
	return Result[T]{Status: Unavailable, Reason: reason}
}
