package render

import (
	"fmt"

	"github.com/starford/temple/internal/apperr"
)

// Span is a half-open byte range [Start, End) of a document. A zero-width
// span is a cursor position.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Empty reports whether the span selects nothing.
func (s Span) Empty() bool { return s.Start == s.End }

// Check validates the span against a document of size n.
func (s Span) Check(n int) error {
	if s.Start < 0 || s.End < s.Start || s.End > n {
		return fmt.Errorf("%w: [%d,%d) in document of %d bytes", apperr.ErrInvalidSpan, s.Start, s.End, n)
	}
	return nil
}

// Text returns the selected part of content.
func (s Span) Text(content []byte) ([]byte, error) {
	if err := s.Check(len(content)); err != nil {
		return nil, err
	}
	return content[s.Start:s.End], nil
}

// Replace substitutes the span in content with repl.
func (s Span) Replace(content []byte, repl string) ([]byte, error) {
	if err := s.Check(len(content)); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(content)-(s.End-s.Start)+len(repl))
	out = append(out, content[:s.Start]...)
	out = append(out, repl...)
	return append(out, content[s.End:]...), nil
}
