package entity

import (
	"fmt"
	"time"
)

// ZonedDate is a local date-time plus its IANA time zone and the derived UTC
// instant. The UTC instant is always computed from the local wall clock, never
// stored independently, so the three parts cannot drift apart.
type ZonedDate struct {
	Local    time.Time `json:"local"`
	TimeZone string    `json:"time_zone"`
	UTC      time.Time `json:"utc"`
}

// NewZonedDate interprets the wall-clock fields of local in the given IANA
// zone and derives the UTC instant. The location attached to the local value
// is ignored; only its date and time-of-day fields matter.
func NewZonedDate(local time.Time, timeZone string) (ZonedDate, error) {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return ZonedDate{}, fmt.Errorf("invalid time zone %q: %w", timeZone, err)
	}
	wall := time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), loc)
	return ZonedDate{
		Local:    wall,
		TimeZone: timeZone,
		UTC:      wall.UTC(),
	}, nil
}

// ZonedDateFromUTC projects a UTC instant into the given zone.
func ZonedDateFromUTC(utc time.Time, timeZone string) (ZonedDate, error) {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return ZonedDate{}, fmt.Errorf("invalid time zone %q: %w", timeZone, err)
	}
	return ZonedDate{
		Local:    utc.In(loc),
		TimeZone: timeZone,
		UTC:      utc.UTC(),
	}, nil
}

// Adjusted returns the same instant projected into a display time zone.
func (z ZonedDate) Adjusted(displayTimeZone string) (ZonedDate, error) {
	return ZonedDateFromUTC(z.UTC, displayTimeZone)
}

func (z ZonedDate) IsZero() bool {
	return z.UTC.IsZero()
}

func (z ZonedDate) Before(other ZonedDate) bool {
	return z.UTC.Before(other.UTC)
}

func (z ZonedDate) After(other ZonedDate) bool {
	return z.UTC.After(other.UTC)
}
