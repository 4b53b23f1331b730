package event

import (
	stderrors "errors"
	"strconv"
)

// ErrLagged matches any *LagError.
var ErrLagged = stderrors.New("event: receiver lagged")

// LagError reports that a receiver fell behind and Missed events were
// overwritten before it read them. The receiver has already been moved to
// the oldest retained event.
type LagError struct {
	Missed uint64
}

func (e *LagError) Error() string {
	return "event: receiver lagged, missed " + strconv.FormatUint(e.Missed, 10) + " events"
}

func (e *LagError) Is(target error) bool {
	if target == ErrLagged {
		return true
	}
	_, ok := target.(*LagError)
	return ok
}
