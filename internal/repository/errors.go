package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStaleTransition is returned when a batch status transition touches
// fewer rows than expected: some lot changed state outside the reservation
// flow between read and write. The enclosing transaction is rolled back.
var ErrStaleTransition = errors.New("lot state changed concurrently")

// LotConflictError reports the lots that were not available when a batch
// reservation was attempted. The whole batch is rolled back; the caller must
// re-select lots.
type LotConflictError struct {
	LotIDs []uint
}

func (e *LotConflictError) Error() string {
	parts := make([]string, len(e.LotIDs))
	for i, id := range e.LotIDs {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "lots not available: " + strings.Join(parts, ", ")
}

// DuplicateNumberError reports a lot number already taken within a map.
type DuplicateNumberError struct {
	MapID  uint
	Number string
}

func (e *DuplicateNumberError) Error() string {
	return fmt.Sprintf("lot number %q already exists in map %d", e.Number, e.MapID)
}
