package clock

import "time"

// FakeClock is a Clock pinned to a fixed instant, moved only by Advance.
// Fixtures hand its Now to gorm's NowFunc so row timestamps and cutoffs
// computed by services share the same time source in tests.
type FakeClock struct {
	now time.Time
}

// NewFakeClock pins the clock at t, normalized to UTC.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by d. Not safe for concurrent use.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
