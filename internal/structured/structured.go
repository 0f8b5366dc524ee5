// Package structured extracts named fields from a document's base name using
// layered regular expressions.
package structured

import (
	"regexp"

	"github.com/starford/temple/internal/apperr"
	"github.com/starford/temple/internal/settings"
)

// Fields are the named captures of a base name.
type Fields map[string]string

// Captures is what one layer extracted; nil when the layer did not match.
type Captures map[string]string

// Layer is one pattern in precedence order.
type Layer struct {
	Name    string
	Pattern *regexp.Regexp
}

// Layers compiles the built-in pattern followed by the custom one. An empty
// custom pattern yields the default layer only.
func Layers(custom string) ([]Layer, error) {
	layers := []Layer{{Name: "default", Pattern: defaultPattern}}
	if custom == "" || custom == settings.DefaultStructuredPattern {
		return layers, nil
	}
	re, err := regexp.Compile(custom)
	if err != nil {
		return nil, &apperr.ConfigurationError{Key: "structured.pattern", Err: err}
	}
	return append(layers, Layer{Name: "custom", Pattern: re}), nil
}

var defaultPattern = regexp.MustCompile(settings.DefaultStructuredPattern)

// Capture matches one layer against name. Groups that did not participate in
// the match are left out.
func (l Layer) Capture(name string) Captures {
	idx := l.Pattern.FindStringSubmatchIndex(name)
	if idx == nil {
		return nil
	}
	out := Captures{}
	for i, group := range l.Pattern.SubexpNames() {
		if i == 0 || group == "" || idx[2*i] < 0 {
			continue
		}
		out[group] = name[idx[2*i]:idx[2*i+1]]
	}
	return out
}

// MergeCaptures folds captures in order; later entries win per key.
func MergeCaptures(all []Captures) Fields {
	out := Fields{}
	for _, c := range all {
		for k, v := range c {
			out[k] = v
		}
	}
	return out
}

// Parse runs every layer against baseName and merges the results.
func Parse(layers []Layer, baseName string) Fields {
	all := make([]Captures, 0, len(layers))
	for _, l := range layers {
		all = append(all, l.Capture(baseName))
	}
	return MergeCaptures(all)
}
