package datetime

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/starford/temple/internal/apperr"
)

// Localization is the locale and zone override applied by Coerce. Empty fields
// leave the corresponding part of the value untouched.
type Localization struct {
	Locale string
	Zone   string
}

var locations sync.Map // zone name -> *time.Location

// Location resolves the configured zone, or returns nil when none is set.
func (l Localization) Location() (*time.Location, error) {
	if l.Zone == "" {
		return nil, nil
	}
	if cached, ok := locations.Load(l.Zone); ok {
		return cached.(*time.Location), nil
	}
	loc, err := time.LoadLocation(l.Zone)
	if err != nil {
		return nil, &apperr.ConfigurationError{Key: "datetime.timezone", Err: err}
	}
	locations.Store(l.Zone, loc)
	return loc, nil
}

func (l Localization) apply(v Value) (Value, error) {
	if l.Locale != "" {
		tag, err := language.Parse(l.Locale)
		if err != nil {
			return Value{}, &apperr.ConfigurationError{Key: "datetime.locale", Err: err}
		}
		v.locale = tag.String()
	}
	loc, err := l.Location()
	if err != nil {
		return Value{}, err
	}
	if loc != nil {
		v.t = v.t.In(loc)
	}
	return v, nil
}

// Coerce converts an epoch-millisecond number, a time.Time or a Value into a
// Value and applies loc. Any other input is an InvalidInputTypeError.
func Coerce(input any, loc Localization) (Value, error) {
	v, ok := toValue(input)
	if !ok {
		slog.Warn("datetime: rejected value",
			slog.String("type", fmt.Sprintf("%T", input)),
			slog.String("value", fmt.Sprintf("%v", input)))
		return Value{}, &apperr.InvalidInputTypeError{Value: input}
	}
	return loc.apply(v)
}

func toValue(input any) (Value, bool) {
	switch x := input.(type) {
	case Value:
		return x, true
	case *Value:
		if x == nil {
			return Value{}, false
		}
		return *x, true
	case time.Time:
		return Value{t: x}, true
	case *time.Time:
		if x == nil {
			return Value{}, false
		}
		return Value{t: *x}, true
	case int:
		return fromMillis(int64(x)), true
	case int8:
		return fromMillis(int64(x)), true
	case int16:
		return fromMillis(int64(x)), true
	case int32:
		return fromMillis(int64(x)), true
	case int64:
		return fromMillis(x), true
	case uint:
		return fromMillis(int64(x)), true
	case uint8:
		return fromMillis(int64(x)), true
	case uint16:
		return fromMillis(int64(x)), true
	case uint32:
		return fromMillis(int64(x)), true
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, false
		}
		return fromMillis(int64(x)), true
	case float32:
		return fromFloatMillis(float64(x))
	case float64:
		return fromFloatMillis(x)
	}
	return Value{}, false
}

func fromMillis(ms int64) Value {
	return Value{t: time.UnixMilli(ms)}
}

func fromFloatMillis(ms float64) (Value, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > float64(math.MaxInt64/int64(time.Millisecond)) {
		return Value{}, false
	}
	whole, frac := math.Modf(ms)
	return Value{t: time.UnixMilli(int64(whole)).Add(time.Duration(frac * float64(time.Millisecond)))}, true
}
