package core

import (
	"fmt"
	"sync/atomic"
)

// CallBudget counts down the reasoning calls one request may still issue.
// It is shared by every handler invocation of the request.
type CallBudget struct {
	max  int64
	used atomic.Int64
}

// NewCallBudget allows max calls; max <= 0 means unlimited.
func NewCallBudget(max int) *CallBudget {
	return &CallBudget{max: int64(max)}
}

// Take consumes one call. Once the budget is spent every further call fails
// with ErrCallBudgetExhausted.
func (b *CallBudget) Take() error {
	n := b.used.Add(1)
	if b.max > 0 && n > b.max {
		return fmt.Errorf("%w: limit %d per request", ErrCallBudgetExhausted, b.max)
	}
	return nil
}

// Remaining reports the calls left, or -1 when the budget is unlimited.
func (b *CallBudget) Remaining() int {
	if b.max <= 0 {
		return -1
	}
	return int(max(b.max-b.used.Load(), 0))
}
