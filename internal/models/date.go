package models

import (
	"errors"
	"strconv"
	"time"
)

// DateLayout is the wire and storage layout of a calendar date.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a date is not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("invalid date")

// Date is a calendar day with no time-of-day or zone component.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
