package ledger

import (
	"errors"
	"fmt"
)

// Business-rule rejections. Handlers map these to 4xx responses; anything
// else that comes out of a ledger operation is a storage fault and rolls
// the whole transaction back.
var (
	ErrNotFound           = errors.New("not found")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrAlreadyCompleted   = errors.New("task already completed today")
	ErrAlreadyPending     = errors.New("task already pending approval")
	ErrAlreadyResolved    = errors.New("approval already resolved")
	ErrAlreadyRedeemed    = errors.New("reward already redeemed today")
	ErrNotCompleted       = errors.New("task was not completed")
	ErrNotScheduled       = errors.New("task is not scheduled for this day")
	ErrApprovalRequired   = errors.New("tasks requiring approval cannot be uncompleted")
	ErrInsufficientPoints = errors.New("insufficient points")
)

// InsufficientPointsError carries the amounts so the response can say how
// short the child is. errors.Is(err, ErrInsufficientPoints) matches it.
type InsufficientPointsError struct {
	Required  int
	Available int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("not enough points: need %d, have %d", e.Required, e.Available)
}

func (e *InsufficientPointsError) Is(target error) bool {
	return target == ErrInsufficientPoints
}
