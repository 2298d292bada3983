package service

import (
	"sync"
	"time"
)

// Timer is a pending one-shot callback.
type Timer interface {
	Stop() bool
}

// Clock hides wall time and one-shot timers from the delivery pipeline.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock returns the real clock.
func SystemClock() Clock { return systemClock{} }

// RetryPolicy bounds redelivery of a reminder after a failed send.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 5 * time.Minute}
}

type retryState struct {
	attempts  int
	dueAt     time.Time
	timer     Timer
	exhausted bool
}

// DeliveryTracker keeps per-task retry bookkeeping. A task with an entry here is
// owned by its retry job and is skipped by the regular poll.
type DeliveryTracker struct {
	policy RetryPolicy
	clock  Clock

	mu      sync.Mutex
	states  map[uint]*retryState
	stopped bool
}

func NewDeliveryTracker(policy RetryPolicy, clock Clock) *DeliveryTracker {
	if clock == nil {
		clock = SystemClock()
	}
	return &DeliveryTracker{
		policy: policy,
		clock:  clock,
		states: make(map[uint]*retryState),
	}
}

// ScheduleRetry records a failed attempt for taskID and arms a one-shot retry
// at now+Backoff. It returns false once the attempt budget is spent or the
// tracker is stopped; the task then stays blocked until Forget is called.
func (t *DeliveryTracker) ScheduleRetry(taskID uint, retry func()) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return time.Time{}, false
	}

	st, ok := t.states[taskID]
	if !ok {
		st = &retryState{}
		t.states[taskID] = st
	}
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}

	if st.attempts >= t.policy.MaxAttempts {
		st.exhausted = true
		return time.Time{}, false
	}

	st.attempts++
	st.dueAt = t.clock.Now().Add(t.policy.Backoff)
	st.timer = t.clock.AfterFunc(t.policy.Backoff, retry)
	return st.dueAt, true
}

// Blocked reports whether the regular poll must leave taskID alone.
func (t *DeliveryTracker) Blocked(taskID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.states[taskID]
	return ok
}

// pending returns the time of the armed retry for taskID, if any.
func (t *DeliveryTracker) pending(taskID uint) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[taskID]
	if !ok || st.timer == nil {
		return time.Time{}, false
	}
	return st.dueAt, true
}

// Attempts returns how many retries were scheduled for taskID.
func (t *DeliveryTracker) Attempts(taskID uint) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[taskID]; ok {
		return st.attempts
	}
	return 0
}

// Exhausted reports whether taskID ran out of retries.
func (t *DeliveryTracker) Exhausted(taskID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[taskID]
	return ok && st.exhausted
}

// Fired clears the armed timer of taskID; the entry stays until Forget.
func (t *DeliveryTracker) Fired(taskID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[taskID]; ok {
		st.timer = nil
	}
}

// Forget drops all bookkeeping for taskID, e.g. after a successful delivery.
func (t *DeliveryTracker) Forget(taskID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[taskID]; ok {
		if st.timer != nil {
			st.timer.Stop()
		}
		delete(t.states, taskID)
	}
}

// Stop disarms every pending retry. Retries already running finish on their own.
func (t *DeliveryTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for _, st := range t.states {
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
	}
}
