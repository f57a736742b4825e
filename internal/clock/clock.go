// Package clock injects time into code that would otherwise read the wall
// clock directly, so daily-reset logic is testable.
package clock

import "time"

// DateLayout is the calendar-date form stored with entitlements.
const DateLayout = "2006-01-02"

type Clock interface {
	Now() time.Time
}

// System reads the real wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Today formats the clock's current date in UTC. All daily quotas reset on
// the UTC day boundary regardless of where the user is.
func Today(c Clock) string {
	return c.Now().UTC().Format(DateLayout)
}

// Fake is a manual clock for tests.
type Fake struct {
	Current time.Time
}

func (f *Fake) Now() time.Time { return f.Current }

func (f *Fake) Advance(d time.Duration) { f.Current = f.Current.Add(d) }
