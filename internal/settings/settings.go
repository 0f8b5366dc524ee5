// Package settings holds the render settings: typed defaults, the merge of a
// persisted blob over those defaults, validation and field accessors.
package settings

import (
	"bytes"
	"regexp"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/starford/temple/internal/apperr"
)

// DefaultStructuredPattern captures a leading numeric uid and an optional trailing title,
// e.g. "42 - My Title".
const DefaultStructuredPattern = `^(?P<uid>\d+)(?:\s*-\s*(?P<title>.+?))?\s*$`

// Settings is the full render configuration.
type Settings struct {
	Core       CoreSettings       `yaml:"core" json:"core"`
	DateTime   DateTimeSettings   `yaml:"datetime" json:"datetime"`
	Structured StructuredSettings `yaml:"structured" json:"structured"`
}

// CoreSettings controls template lookup and the render-on-create hook.
type CoreSettings struct {
	TemplateDirectory    string               `yaml:"template_directory" json:"template_directory"`
	FilterTemplateSelect FilterTemplateSelect `yaml:"filter_template_select" json:"filter_template_select"`
	AutoRender           AutoRenderSettings   `yaml:"auto_render" json:"auto_render"`
}

// FilterTemplateSelect excludes templates whose base name matches Regex.
type FilterTemplateSelect struct {
	Enable bool   `yaml:"enable" json:"enable"`
	Regex  string `yaml:"regex" json:"regex"`
}

// AutoRenderSettings configures rendering of newly created documents.
//
// SettleDelay is how long a created document must go without further changes
// before it is rendered. Zero renders on the creation event.
type AutoRenderSettings struct {
	Enable      bool          `yaml:"enable" json:"enable"`
	SettleDelay time.Duration `yaml:"settle_delay" json:"settle_delay"`
	Include     string        `yaml:"include" json:"include"`
}

// DateTimeSettings is applied by the datetime normalizer.
type DateTimeSettings struct {
	DefaultFormat string `yaml:"default_format" json:"default_format"`
	Locale        string `yaml:"locale" json:"locale"`
	Timezone      string `yaml:"timezone" json:"timezone"`
}

// StructuredSettings holds the user pattern for structured filenames.
type StructuredSettings struct {
	Pattern string `yaml:"pattern" json:"pattern"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Core: CoreSettings{
			TemplateDirectory: "_templates",
			FilterTemplateSelect: FilterTemplateSelect{
				Enable: true,
				Regex:  "^_",
			},
			AutoRender: AutoRenderSettings{
				Enable:      false,
				SettleDelay: 300 * time.Millisecond,
				Include:     "**/*.md",
			},
		},
		DateTime: DateTimeSettings{
			DefaultFormat: "yyyy-MM-dd HH:mm",
		},
		Structured: StructuredSettings{
			Pattern: DefaultStructuredPattern,
		},
	}
}

// Merge decodes a persisted blob on top of base. Keys missing from the blob keep
// the base value, so partial and legacy blobs stay valid. A blob that cannot be
// decoded yields base unchanged and a ConfigurationError.
func Merge(base Settings, blob []byte) (Settings, error) {
	if len(bytes.TrimSpace(blob)) == 0 {
		return base, nil
	}
	merged := base
	if err := yaml.Unmarshal(blob, &merged); err != nil {
		return base, &apperr.ConfigurationError{Err: err}
	}
	return merged, nil
}

// Validate checks every section.
func (s *Settings) Validate() error {
	if err := s.Core.Validate(); err != nil {
		return err
	}
	if err := s.DateTime.Validate(); err != nil {
		return err
	}
	return s.Structured.Validate()
}

// Validate checks the core settings.
func (c *CoreSettings) Validate() error {
	if err := validation.ValidateStruct(&c.FilterTemplateSelect,
		validation.Field(&c.FilterTemplateSelect.Regex, validation.By(validRegexp)),
	); err != nil {
		return &apperr.ConfigurationError{Key: "core.filter_template_select", Err: err}
	}
	if err := validation.ValidateStruct(&c.AutoRender,
		validation.Field(&c.AutoRender.SettleDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.AutoRender.Include, validation.Required, validation.By(validGlob)),
	); err != nil {
		return &apperr.ConfigurationError{Key: "core.auto_render", Err: err}
	}
	return nil
}

// Validate checks the datetime settings.
func (d *DateTimeSettings) Validate() error {
	if err := validation.ValidateStruct(d,
		validation.Field(&d.DefaultFormat, validation.Required),
		validation.Field(&d.Locale, validation.By(validLocale)),
		validation.Field(&d.Timezone, validation.By(validTimezone)),
	); err != nil {
		return &apperr.ConfigurationError{Key: "datetime", Err: err}
	}
	return nil
}

// Validate checks the structured-filename settings.
func (s *StructuredSettings) Validate() error {
	if err := validation.ValidateStruct(s,
		validation.Field(&s.Pattern, validation.By(validRegexp)),
	); err != nil {
		return &apperr.ConfigurationError{Key: "structured", Err: err}
	}
	return nil
}

func validRegexp(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := regexp.Compile(s)
	return err
}

func validGlob(value any) error {
	s, _ := value.(string)
	if s != "" && !doublestar.ValidatePattern(s) {
		return validation.NewError("validation_glob", "must be a valid glob pattern")
	}
	return nil
}

func validLocale(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := language.Parse(s)
	return err
}

func validTimezone(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := time.LoadLocation(s)
	return err
}
