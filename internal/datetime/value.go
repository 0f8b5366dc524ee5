// Package datetime normalizes temporal values for templates. Coerce is the only
// place where the configured locale and timezone are applied.
package datetime

import (
	"time"
)

const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Value is a canonical datetime: an instant with a zone and a locale.
// Values are immutable; every method returns a new Value.
type Value struct {
	t      time.Time
	locale string
}

// FromTime wraps t without applying any localization.
func FromTime(t time.Time) Value {
	return Value{t: t}
}

// Time returns the instant in the value's zone.
func (v Value) Time() time.Time {
	return v.t
}

// Locale returns the BCP 47 locale tag, or "" when none was applied.
func (v Value) Locale() string {
	return v.locale
}

// Zone returns the IANA name of the value's zone.
func (v Value) Zone() string {
	return v.t.Location().String()
}

// UnixMilli returns the instant as milliseconds since the epoch.
func (v Value) UnixMilli() int64 {
	return v.t.UnixMilli()
}

// Equal reports whether both values denote the same instant.
func (v Value) Equal(o Value) bool {
	return v.t.Equal(o.t)
}

// IsZero reports whether v holds the zero instant.
func (v Value) IsZero() bool {
	return v.t.IsZero()
}

// StartOfDay truncates to midnight of the calendar day in the value's zone.
func (v Value) StartOfDay() Value {
	y, m, d := v.t.Date()
	return Value{t: time.Date(y, m, d, 0, 0, 0, 0, v.t.Location()), locale: v.locale}
}

// String renders ISO 8601 with millisecond precision.
func (v Value) String() string {
	return v.t.Format(isoLayout)
}

// Format renders v with an LDML pattern ("yyyy-MM-dd") or, when the pattern
// contains '%', a strftime format.
func (v Value) Format(pattern string) (string, error) {
	if isStrftime(pattern) {
		return formatStrftime(v, pattern), nil
	}
	tokens, err := tokenize(pattern)
	if err != nil {
		return "", err
	}
	return formatTokens(v, tokens), nil
}
