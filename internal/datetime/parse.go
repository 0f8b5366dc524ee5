package datetime

import (
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/starford/temple/internal/apperr"
)

const (
	ReasonUnparsable    = "unparsable"
	ReasonOutOfRange    = "unit out of range"
	ReasonInvalidFormat = "invalid format"
)

// Parse reads input strictly according to pattern, interpreting wall-clock
// fields in the zone of loc (or the local zone when none is configured).
// Failures are DateTimeParsingError values.
func Parse(input, pattern string, loc Localization) (Value, error) {
	zone, err := loc.Location()
	if err != nil {
		return Value{}, err
	}
	if zone == nil {
		zone = time.Local
	}

	fail := func(reason string, err error) (Value, error) {
		return Value{}, &apperr.DateTimeParsingError{
			Input:       input,
			Format:      pattern,
			Reason:      reason,
			Explanation: err.Error(),
		}
	}

	if isStrftime(pattern) {
		t, err := strftime.Parse(pattern, input)
		if err != nil {
			return fail(classify(err), err)
		}
		if !strings.Contains(pattern, "%z") && !strings.Contains(pattern, "%Z") {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), zone)
		}
		return loc.apply(Value{t: t})
	}

	tokens, err := tokenize(pattern)
	if err != nil {
		return fail(ReasonInvalidFormat, err)
	}
	layout, err := layoutFor(tokens)
	if err != nil {
		return fail(ReasonInvalidFormat, err)
	}
	t, err := time.ParseInLocation(layout, input, zone)
	if err != nil {
		return fail(classify(err), err)
	}
	return loc.apply(Value{t: t})
}

func classify(err error) string {
	if strings.Contains(err.Error(), "out of range") {
		return ReasonOutOfRange
	}
	return ReasonUnparsable
}
