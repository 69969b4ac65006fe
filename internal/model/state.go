package model

// Status is the lifecycle phase of one unit of pipeline work.
type Status string

const (
	// StatusPending marks an item that has not failed yet.
	StatusPending Status = "pending"

	// StatusRetrying marks an item whose last attempt failed and that
	// still has attempt budget left.
	StatusRetrying Status = "retrying"

	// StatusSucceeded marks a finished item.
	StatusSucceeded Status = "succeeded"

	// StatusFailed marks an item that gave up, with a reason.
	StatusFailed Status = "failed"
)

// Terminal returns true for statuses no attempt may follow.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// ItemState tracks one in-flight item through its retry loop.
//
// The zero value is not valid; use NewItemState. A typical loop:
//
//	state := model.NewItemState()
//	for state.Next(maxAttempts) {
//		err := attempt()
//		if err == nil {
//			state.Succeed()
//			break
//		}
//		if !retryable(err) {
//			state.FailNow(err)
//			break
//		}
//		state.Fail(err, maxAttempts)
//	}
type ItemState struct {
	// Status is the current phase.
	Status Status

	// Attempts counts attempts started so far.
	Attempts int

	// Reason holds the failure cause once Status is StatusFailed.
	Reason error
}

// NewItemState returns a pending state with no attempts recorded.
func NewItemState() ItemState {
	return ItemState{Status: StatusPending}
}

// Next reports whether another attempt may start and records it.
// It returns false once the state is terminal or maxAttempts attempts
// have been started.
func (s *ItemState) Next(maxAttempts int) bool {
	if s.Status.Terminal() || s.Attempts >= maxAttempts {
		return false
	}
	s.Attempts++
	return true
}

// Succeed marks the item as finished.
func (s *ItemState) Succeed() {
	s.Status = StatusSucceeded
}

// Fail records a failed attempt. With budget left the item moves to
// StatusRetrying, otherwise it becomes StatusFailed with reason err.
func (s *ItemState) Fail(err error, maxAttempts int) {
	if s.Attempts < maxAttempts {
		s.Status = StatusRetrying
		return
	}
	s.FailNow(err)
}

// FailNow marks the item as failed regardless of remaining budget.
// Used for errors that must not be retried.
func (s *ItemState) FailNow(err error) {
	s.Status = StatusFailed
	s.Reason = err
}

// Retries returns the number of retries spent, which is one less than
// the number of attempts started.
func (s *ItemState) Retries() int {
	if s.Attempts <= 1 {
		return 0
	}
	return s.Attempts - 1
}
