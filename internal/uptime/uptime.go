// Package uptime turns a millisecond counter into the day/clock breakdown used
// as the prefix of every report line.
package uptime

import (
	"fmt"
	"time"
)

// Breakdown is an elapsed time split into stopwatch fields.
type Breakdown struct {
	Days         uint64
	Hours        uint64
	Minutes      uint64
	Seconds      uint64
	Milliseconds uint64
}

// Elapsed splits ms into days, hours, minutes, seconds and milliseconds.
func Elapsed(ms uint64) Breakdown {
	s := ms / 1000
	return Breakdown{
		Days:         s / 86400,
		Hours:        (s / 3600) % 24,
		Minutes:      (s / 60) % 60,
		Seconds:      s % 60,
		Milliseconds: ms % 1000,
	}
}

// String renders the breakdown as DDDDD|HH:MM:SS:mmm.
func (b Breakdown) String() string {
	return fmt.Sprintf("%05d|%02d:%02d:%02d:%03d", b.Days, b.Hours, b.Minutes, b.Seconds, b.Milliseconds)
}

// Clock reports time elapsed since it was started. It reads the monotonic clock,
// so wall-clock adjustments do not affect it.
type Clock struct {
	start time.Time
}

func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// Millis returns the milliseconds elapsed since the clock was created.
func (c *Clock) Millis() uint64 {
	d := time.Since(c.start)
	if d < 0 {
		return 0
	}
	return uint64(d / time.Millisecond)
}
