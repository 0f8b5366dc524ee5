package datetime

import (
	"strings"

	"github.com/goodsign/monday"
	"github.com/ncruces/go-strftime"
)

func isStrftime(pattern string) bool {
	return strings.Contains(pattern, "%")
}

// formatStrftime prefers the equivalent Go layout so month and weekday names
// follow the value's locale. Specifiers without a layout form are rendered
// by strftime directly, in English.
func formatStrftime(v Value, pattern string) string {
	if layout, err := strftime.Layout(pattern); err == nil {
		return monday.Format(v.t, layout, mondayLocale(v.locale))
	}
	return strftime.Format(pattern, v.t)
}
