//go:build !tinygo

package simhw

// Timer represents a scheduled simulation event
type Timer struct {
	WakeTime uint64 // Virtual nanoseconds
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// ScheduleTimer adds a timer to the schedule
func (c *Clock) ScheduleTimer(t *Timer) {
	c.insertTimer(t)
}

// insertTimer inserts a timer in sorted order by WakeTime.
// Timers with equal WakeTime keep insertion order.
func (c *Clock) insertTimer(t *Timer) {
	if c.timerList == nil || t.WakeTime < c.timerList.WakeTime {
		t.Next = c.timerList
		c.timerList = t
		return
	}

	current := c.timerList
	for current.Next != nil && current.Next.WakeTime <= t.WakeTime {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// removeTimer unlinks a timer if it is scheduled
func (c *Clock) removeTimer(t *Timer) {
	if c.timerList == t {
		c.timerList = t.Next
		t.Next = nil
		return
	}
	for current := c.timerList; current != nil; current = current.Next {
		if current.Next == t {
			current.Next = t.Next
			t.Next = nil
			return
		}
	}
}

// timerDispatch processes timers due at or before deadline.
// It stops early while interrupts are masked or an interrupt is running;
// the pending timers fire on a later advance.
func (c *Clock) timerDispatch(deadline uint64) {
	for c.timerList != nil && c.timerList.WakeTime <= deadline {
		if c.inISR || interruptsMasked() {
			return
		}
		timer := c.timerList
		c.timerList = timer.Next
		timer.Next = nil // Clear Next pointer to avoid circular references

		if timer.WakeTime > c.now {
			c.now = timer.WakeTime
		}

		c.inISR = true
		result := timer.Handler(timer)
		c.inISR = false

		// Reschedule if requested
		if result == SF_RESCHEDULE {
			c.insertTimer(timer)
		}
	}
}
