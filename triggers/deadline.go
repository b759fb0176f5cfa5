package triggers

import (
	"fmt"
	"sync"
	"time"

	"github.com/cancelkit/cancelscope/scope"
)

// Deadline fires once its budget has elapsed. A Deadline may be armed into
// several Scopes concurrently (it is stateless with respect to any one
// arming); each gets its own independent countdown against the same
// deadline time.
type Deadline struct {
	deadline time.Time
	budget   time.Duration
}

// NewDeadline returns a Deadline that elapses budget from now. A
// non-positive budget produces a Deadline that has already elapsed —
// Check reports it true immediately, so a Scope holding it records the
// reason on Enter and schedules its interruption for the dispatcher's next
// tick; the body still runs until its first suspension point.
func NewDeadline(budget time.Duration) *Deadline {
	return &Deadline{deadline: time.Now().Add(budget), budget: budget}
}

// Remaining reports the time left until the deadline, floored at zero.
func (d *Deadline) Remaining() time.Duration {
	if r := time.Until(d.deadline); r > 0 {
		return r
	}
	return 0
}

func (d *Deadline) reason() scope.CancelReason {
	return scope.NewCancelReason(scope.KindDeadline,
		fmt.Sprintf("deadline of %.2fs elapsed", d.budget.Seconds()), "")
}

// Check implements scope.Trigger.
func (d *Deadline) Check() (scope.CancelReason, bool) {
	if time.Until(d.deadline) <= 0 {
		return d.reason(), true
	}
	return scope.CancelReason{}, false
}

// Arm implements scope.Trigger. It starts a timer for whatever budget
// remains and relays expiry through task.ScheduleSoon so delivery is
// always serialized on the Task's dispatcher, never synchronous with the
// timer's own goroutine.
func (d *Deadline) Arm(task *scope.Task, deliver func(scope.CancelReason)) (scope.TriggerHandle, error) {
	h := &deadlineHandle{}
	remaining := d.Remaining()
	h.timer = time.AfterFunc(remaining, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.disarmed {
			return
		}
		h.schedCancel = task.ScheduleSoon(func() { deliver(d.reason()) })
	})
	return h, nil
}

type deadlineHandle struct {
	mu          sync.Mutex
	timer       *time.Timer
	disarmed    bool
	schedCancel func()
}

// Disarm implements scope.TriggerHandle.
func (h *deadlineHandle) Disarm() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disarmed {
		return
	}
	h.disarmed = true
	h.timer.Stop()
	if h.schedCancel != nil {
		h.schedCancel()
	}
}
