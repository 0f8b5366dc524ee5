package settings

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/starford/temple/internal/apperr"
)

// Field is one editable setting exposed to settings surfaces (CLI, HTTP).
type Field struct {
	Key         string `json:"key"`
	Description string `json:"description"`

	get func(*Settings) string
	set func(*Settings, string) error
}

// Get returns the field's current value as text.
func (f Field) Get(s Settings) string {
	return f.get(&s)
}

var fields = []Field{
	{
		Key:         "core.template_directory",
		Description: "Files in this directory are available as templates.",
		get:         func(s *Settings) string { return s.Core.TemplateDirectory },
		set:         func(s *Settings, v string) error { s.Core.TemplateDirectory = v; return nil },
	},
	{
		Key:         "core.filter_template_select.enable",
		Description: "Hide templates whose name matches the exclusion regex.",
		get:         func(s *Settings) string { return strconv.FormatBool(s.Core.FilterTemplateSelect.Enable) },
		set:         boolSetter(func(s *Settings) *bool { return &s.Core.FilterTemplateSelect.Enable }),
	},
	{
		Key:         "core.filter_template_select.regex",
		Description: "Templates matching this regex are excluded from selection (default: names starting with _).",
		get:         func(s *Settings) string { return s.Core.FilterTemplateSelect.Regex },
		set:         func(s *Settings, v string) error { s.Core.FilterTemplateSelect.Regex = v; return nil },
	},
	{
		Key:         "core.auto_render.enable",
		Description: "Render newly created documents in place.",
		get:         func(s *Settings) string { return strconv.FormatBool(s.Core.AutoRender.Enable) },
		set:         boolSetter(func(s *Settings) *bool { return &s.Core.AutoRender.Enable }),
	},
	{
		Key:         "core.auto_render.settle_delay",
		Description: "Quiet period a created document needs before auto-render runs.",
		get:         func(s *Settings) string { return s.Core.AutoRender.SettleDelay.String() },
		set: func(s *Settings, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			s.Core.AutoRender.SettleDelay = d
			return nil
		},
	},
	{
		Key:         "core.auto_render.include",
		Description: "Glob of vault paths eligible for auto-render.",
		get:         func(s *Settings) string { return s.Core.AutoRender.Include },
		set:         func(s *Settings, v string) error { s.Core.AutoRender.Include = v; return nil },
	},
	{
		Key:         "datetime.default_format",
		Description: "Format used by formatDate when no format is given.",
		get:         func(s *Settings) string { return s.DateTime.DefaultFormat },
		set:         func(s *Settings, v string) error { s.DateTime.DefaultFormat = v; return nil },
	},
	{
		Key:         "datetime.locale",
		Description: "Locale applied to every datetime value (empty keeps the value's locale).",
		get:         func(s *Settings) string { return s.DateTime.Locale },
		set:         func(s *Settings, v string) error { s.DateTime.Locale = v; return nil },
	},
	{
		Key:         "datetime.timezone",
		Description: "IANA timezone applied to every datetime value (empty keeps the value's zone).",
		get:         func(s *Settings) string { return s.DateTime.Timezone },
		set:         func(s *Settings, v string) error { s.DateTime.Timezone = v; return nil },
	},
	{
		Key:         "structured.pattern",
		Description: "Regular expression with named groups applied to file names.",
		get:         func(s *Settings) string { return s.Structured.Pattern },
		set:         func(s *Settings, v string) error { s.Structured.Pattern = v; return nil },
	},
}

func boolSetter(target func(*Settings) *bool) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*target(s) = b
		return nil
	}
}

// Fields returns every editable field sorted by key.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Lookup finds a field by key.
func Lookup(key string) (Field, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Get returns the value of key in s.
func Get(s Settings, key string) (string, error) {
	f, ok := Lookup(key)
	if !ok {
		return "", fmt.Errorf("settings: unknown key %q: %w", key, apperr.ErrNotFound)
	}
	return f.Get(s), nil
}

// Set parses value into the field key of s.
func Set(s *Settings, key, value string) error {
	f, ok := Lookup(key)
	if !ok {
		return fmt.Errorf("settings: unknown key %q: %w", key, apperr.ErrNotFound)
	}
	if err := f.set(s, value); err != nil {
		return &apperr.ConfigurationError{Key: key, Err: err}
	}
	return nil
}
