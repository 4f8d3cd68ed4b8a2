package job

import "time"

// LinearBackoff scales a base delay by the attempt number.
type LinearBackoff struct {
	Base time.Duration
	Max  time.Duration // zero means uncapped
}

// Delay returns the wait before the given attempt. Attempts start at 1.
func (b LinearBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(attempt) * b.Base
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// NextSchedule returns when a job retried for the given attempt becomes claimable.
func (b LinearBackoff) NextSchedule(now time.Time, attempt int) time.Time {
	return now.Add(b.Delay(attempt))
}
