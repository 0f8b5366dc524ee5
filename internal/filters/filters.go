// Package filters holds the date filters exposed to templates. Each filter is a
// pure function of its arguments and an explicit Env; FuncMap binds the table
// for a single render on top of Sprig's text functions.
package filters

import (
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/starford/temple/internal/apperr"
	"github.com/starford/temple/internal/datetime"
	"github.com/starford/temple/internal/settings"
)

// Env is the per-render environment of the filters.
type Env struct {
	Localization  datetime.Localization
	DefaultFormat string
	Clock         func() time.Time
}

// EnvFor builds an Env from the datetime settings. A nil clock means time.Now.
func EnvFor(dt settings.DateTimeSettings, clock func() time.Time) Env {
	return Env{
		Localization:  datetime.Localization{Locale: dt.Locale, Zone: dt.Timezone},
		DefaultFormat: dt.DefaultFormat,
		Clock:         clock,
	}
}

func (e Env) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}

// Func is a filter. In a pipeline the piped value is the last argument.
type Func func(env Env, args []any) (any, error)

// Table lists every filter by the name templates call it with.
var Table = map[string]Func{
	"now":        Now,
	"today":      Today,
	"parseDate":  ParseDate,
	"formatDate": FormatDate,
}

// FuncMap returns Sprig's text functions overlaid with Table bound to env.
func FuncMap(env Env) template.FuncMap {
	fm := template.FuncMap(sprig.TxtFuncMap())
	for name, fn := range Table {
		fm[name] = bind(env, fn)
	}
	return fm
}

func bind(env Env, fn Func) func(...any) (any, error) {
	return func(args ...any) (any, error) {
		return fn(env, args)
	}
}

// Now returns the current instant, localized.
func Now(env Env, _ []any) (any, error) {
	return datetime.Coerce(env.now(), env.Localization)
}

// Today returns midnight of the current day in the configured zone.
func Today(env Env, _ []any) (any, error) {
	v, err := datetime.Coerce(env.now(), env.Localization)
	if err != nil {
		return nil, err
	}
	return v.StartOfDay(), nil
}

// ParseDate strictly parses its input: parseDate FORMAT INPUT.
func ParseDate(env Env, args []any) (any, error) {
	switch len(args) {
	case 0:
		return nil, &apperr.MissingArgumentError{Filter: "parseDate", Argument: "format"}
	case 1:
		return nil, &apperr.MissingArgumentError{Filter: "parseDate", Argument: "input"}
	}
	format, err := stringArg("parseDate", args[0])
	if err != nil {
		return nil, err
	}
	if format == "" {
		return nil, &apperr.MissingArgumentError{Filter: "parseDate", Argument: "format"}
	}
	input, ok := args[len(args)-1].(string)
	if !ok {
		return nil, &apperr.InvalidInputTypeError{Value: args[len(args)-1]}
	}
	return datetime.Parse(input, format, env.Localization)
}

// FormatDate renders a datetime: formatDate [FORMAT] VALUE. An empty or
// absent FORMAT falls back to the configured default.
func FormatDate(env Env, args []any) (any, error) {
	if len(args) == 0 {
		return nil, &apperr.MissingArgumentError{Filter: "formatDate", Argument: "value"}
	}
	format := ""
	if len(args) > 1 {
		var err error
		if format, err = stringArg("formatDate", args[0]); err != nil {
			return nil, err
		}
	}
	if format == "" {
		format = env.DefaultFormat
	}
	v, err := datetime.Coerce(args[len(args)-1], env.Localization)
	if err != nil {
		return nil, err
	}
	return v.Format(format)
}

func stringArg(filter string, arg any) (string, error) {
	if arg == nil {
		return "", nil
	}
	s, ok := arg.(string)
	if !ok {
		return "", fmt.Errorf("%s: format must be a string, got %T", filter, arg)
	}
	return s, nil
}
