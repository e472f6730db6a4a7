package feed

import "time"

// Clock supplies the reference instant for one grouping or filtering call.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location, which defines the
// observer's calendar ("today", "tomorrow", the current week).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
