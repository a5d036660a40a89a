package util

import "time"

// Lap is one named interval measured by a Timer.
type Lap struct {
	Name     string
	Duration time.Duration
}

// Timer measures total elapsed time plus named stage laps.
// It is not safe for concurrent use.
type Timer struct {
	start time.Time
	mark  time.Time
	laps  []Lap
}

// StartTimer creates a new timer starting at current time.
func StartTimer() *Timer {
	now := time.Now()
	return &Timer{start: now, mark: now}
}

// Lap closes the interval since the previous lap (or start) under name.
func (t *Timer) Lap(name string) time.Duration {
	if t == nil || t.start.IsZero() {
		return 0
	}
	now := time.Now()
	d := now.Sub(t.mark)
	t.mark = now
	t.laps = append(t.laps, Lap{Name: name, Duration: d})
	return d
}

// Laps returns a copy of the recorded laps in order.
func (t *Timer) Laps() []Lap {
	if t == nil {
		return nil
	}
	return append([]Lap(nil), t.laps...)
}

// Elapsed returns the time since start.
func (t *Timer) Elapsed() time.Duration {
	if t == nil || t.start.IsZero() {
		return 0
	}
	return time.Since(t.start)
}

// ElapsedMs returns the elapsed milliseconds since start.
func (t *Timer) ElapsedMs() int64 {
	return t.Elapsed().Milliseconds()
}
