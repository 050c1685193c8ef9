package datasource

// FetchStatus tags the outcome of one provider call.
type FetchStatus int

const (
	// StatusSkipped means the call was never attempted.
	StatusSkipped FetchStatus = iota
	// StatusOK means the provider returned usable data.
	StatusOK
	// StatusEmpty means the provider answered but had nothing for us
	// (no data, or the feature is not part of the plan).
	StatusEmpty
	// StatusFailed means the call failed: transport error, bad status or
	// undecodable body.
	StatusFailed
)

// -----------------------------------------------------------------------------

func (s FetchStatus) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------

// FetchResult carries a provider value together with how it was obtained.
type FetchResult[T any] struct {
	Status FetchStatus
	Value  *T
	Err    error
}

// -----------------------------------------------------------------------------

func OK[T any](v T) FetchResult[T] {
	return FetchResult[T]{Status: StatusOK, Value: &v}
}

func Empty[T any]() FetchResult[T] {
	return FetchResult[T]{Status: StatusEmpty}
}

func Skipped[T any]() FetchResult[T] {
	return FetchResult[T]{Status: StatusSkipped}
}

func Failed[T any](err error) FetchResult[T] {
	return FetchResult[T]{Status: StatusFailed, Err: err}
}

// -----------------------------------------------------------------------------

// ValueOrNil returns the value when the fetch succeeded.
func (r FetchResult[T]) ValueOrNil() *T {
	if r.Status != StatusOK {
		return nil
	}
	return r.Value
}
