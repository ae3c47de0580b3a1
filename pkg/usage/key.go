package usage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DayLayout is the textual form of a Day.
const DayLayout = time.DateOnly

// Day is a calendar day in the service's reference timezone, formatted as YYYY-MM-DD.
type Day string

// Time returns the start of the day in loc.
func (d Day) Time(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DayLayout, string(d), loc)
}

// Key identifies a single daily counter.
type Key struct {
	UserID  uuid.UUID
	Feature string
	Day     Day
}

// NewKey builds a key for the given user, feature and day.
func NewKey(userID uuid.UUID, feature string, day Day) Key {
	return Key{UserID: userID, Feature: feature, Day: day}
}

// Validate rejects keys that no backend could store.
func (k Key) Validate() error {
	if k.UserID == uuid.Nil {
		return errors.Join(ErrInvalidKey, errors.New("user id is required"))
	}
	if k.Feature == "" {
		return errors.Join(ErrInvalidKey, errors.New("feature is required"))
	}
	if _, err := time.Parse(DayLayout, string(k.Day)); err != nil {
		return errors.Join(ErrInvalidKey, fmt.Errorf("malformed day %q", k.Day))
	}
	return nil
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.UserID, k.Feature, k.Day)
}

// Clock derives day keys and reset times from wall-clock time in a single reference
// timezone. Storage always uses the day string; the timezone only decides where the
// boundary falls.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// ClockOption configures a Clock.
type ClockOption func(*Clock)

// WithNow replaces the wall-clock source. Intended for tests.
func WithNow(now func() time.Time) ClockOption {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClock returns a Clock for loc. A nil location means UTC.
func NewClock(loc *time.Location, opts ...ClockOption) Clock {
	if loc == nil {
		loc = time.UTC
	}
	c := Clock{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LoadLocation resolves a timezone name, defaulting to UTC when name is empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// Location returns the reference timezone.
func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Now returns the current time in the reference timezone.
func (c Clock) Now() time.Time {
	if c.now == nil {
		return time.Now().In(c.Location())
	}
	return c.now().In(c.Location())
}

// DayOf returns the calendar day containing t.
func (c Clock) DayOf(t time.Time) Day {
	return Day(t.In(c.Location()).Format(DayLayout))
}

// Today returns the current calendar day.
func (c Clock) Today() Day {
	return c.DayOf(c.Now())
}

// NextReset returns the start of the calendar day after the one containing t.
// time.Date normalizes the day overflow and handles DST shifts in the location.
func (c Clock) NextReset(t time.Time) time.Time {
	t = t.In(c.Location())
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, c.Location())
}
