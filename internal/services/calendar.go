package services

import (
	"fmt"
	"time"
)

// CalendarDay is a date bucket in the bucketer's fixed zone. It keeps the
// instant it was built from so the original time of a photo is not lost.
type CalendarDay struct {
	t time.Time
}

// Time returns the instant the day was bucketed from
func (d CalendarDay) Time() time.Time { return d.t }

// Year returns the calendar year
func (d CalendarDay) Year() int { return d.t.Year() }

// YearDay returns the ordinal day within the year, 1..366
func (d CalendarDay) YearDay() int { return d.t.YearDay() }

// Start returns midnight of the day in the same zone
func (d CalendarDay) Start() CalendarDay {
	y, m, day := d.t.Date()
	return CalendarDay{t: time.Date(y, m, day, 0, 0, 0, 0, d.t.Location())}
}

// Next returns midnight of the following day
func (d CalendarDay) Next() CalendarDay {
	y, m, day := d.t.Date()
	return CalendarDay{t: time.Date(y, m, day+1, 0, 0, 0, 0, d.t.Location())}
}

// Compare orders days by date only: -1, 0 or +1.
func (d CalendarDay) Compare(other CalendarDay) int {
	switch {
	case d.Year() < other.Year():
		return -1
	case d.Year() > other.Year():
		return 1
	case d.YearDay() < other.YearDay():
		return -1
	case d.YearDay() > other.YearDay():
		return 1
	}
	return 0
}

// Before reports whether d falls on an earlier date than other
func (d CalendarDay) Before(other CalendarDay) bool { return d.Compare(other) < 0 }

// After reports whether d falls on a later date than other
func (d CalendarDay) After(other CalendarDay) bool { return d.Compare(other) > 0 }

// SameDay reports whether both fall on the same date
func (d CalendarDay) SameDay(other CalendarDay) bool { return d.Compare(other) == 0 }

func (d CalendarDay) String() string {
	return fmt.Sprintf("%04d-%03d", d.Year(), d.YearDay())
}

// DayBucketer maps epoch timestamps to calendar days under one fixed UTC offset.
// The host timezone is never consulted.
type DayBucketer struct {
	loc *time.Location
}

// NewDayBucketer creates a bucketer for the given offset from UTC
func NewDayBucketer(offset time.Duration) *DayBucketer {
	return &DayBucketer{loc: time.FixedZone(FormatUTCOffset(offset), int(offset/time.Second))}
}

// Location returns the fixed zone days are computed in
func (b *DayBucketer) Location() *time.Location { return b.loc }

// Bucket converts epoch seconds to the calendar day they fall on
func (b *DayBucketer) Bucket(raw int64) CalendarDay {
	return CalendarDay{t: time.Unix(raw, 0).In(b.loc)}
}

// At buckets an arbitrary instant
func (b *DayBucketer) At(t time.Time) CalendarDay {
	return CalendarDay{t: t.In(b.loc)}
}

// FirstDayOfYear returns midnight of January 1st
func (b *DayBucketer) FirstDayOfYear(year int) CalendarDay {
	return CalendarDay{t: time.Date(year, time.January, 1, 0, 0, 0, 0, b.loc)}
}

// Today returns the day now falls on
func (b *DayBucketer) Today(now time.Time) CalendarDay {
	return b.At(now).Start()
}

// StartOfTomorrow returns midnight after now
func (b *DayBucketer) StartOfTomorrow(now time.Time) CalendarDay {
	return b.At(now).Next()
}

// FormatUTCOffset renders an offset as "UTC+01:00"
func FormatUTCOffset(offset time.Duration) string {
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	h := int(offset / time.Hour)
	m := int((offset % time.Hour) / time.Minute)
	return fmt.Sprintf("UTC%c%02d:%02d", sign, h, m)
}
