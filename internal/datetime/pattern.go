package datetime

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"
)

// token is either a literal run or a run of one repeated pattern letter.
type token struct {
	literal bool
	text    string
}

type field struct {
	format func(t time.Time, loc monday.Locale) string
	layout string // Go layout used for parsing; "" when the token cannot be parsed
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

func named(layout string) func(time.Time, monday.Locale) string {
	return func(t time.Time, loc monday.Locale) string {
		return monday.Format(t, layout, loc)
	}
}

func hour12(t time.Time) int {
	h := t.Hour() % 12
	if h == 0 {
		return 12
	}
	return h
}

func offset(t time.Time, sep string, short bool) string {
	_, secs := t.Zone()
	sign := "+"
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	h, m := secs/3600, (secs%3600)/60
	if short {
		if m == 0 {
			return sign + strconv.Itoa(h)
		}
		return sign + strconv.Itoa(h) + ":" + pad(m, 2)
	}
	return sign + pad(h, 2) + sep + pad(m, 2)
}

// fields maps Luxon-style tokens to their rendering and parse layout.
var fields = map[string]field{
	"y":    {func(t time.Time, _ monday.Locale) string { return strconv.Itoa(t.Year()) }, "2006"},
	"yy":   {func(t time.Time, _ monday.Locale) string { return pad(t.Year()%100, 2) }, "06"},
	"yyyy": {func(t time.Time, _ monday.Locale) string { return pad(t.Year(), 4) }, "2006"},
	"M":    {func(t time.Time, _ monday.Locale) string { return strconv.Itoa(int(t.Month())) }, "1"},
	"MM":   {func(t time.Time, _ monday.Locale) string { return pad(int(t.Month()), 2) }, "01"},
	"MMM":  {named("Jan"), "Jan"},
	"MMMM": {named("January"), "January"},
	"L":    {func(t time.Time, _ monday.Locale) string { return strconv.Itoa(int(t.Month())) }, "1"},
	"LL":   {func(t time.Time, _ monday.Locale) string { return pad(int(t.Month()), 2) }, "01"},
	"LLL":  {named("Jan"), "Jan"},
	"LLLL": {named("January"), "January"},
	"d":    {func(t time.Time, _ monday.Locale) string { return strconv.Itoa(t.Day()) }, "2"},
	"dd":   {func(t time.Time, _ monday.Locale) string { return pad(t.Day(), 2) }, "02"},
	"o":    {func(t time.Time, _ monday.Locale) string { return strconv.Itoa(t.YearDay()) }, ""},
	"ooo":  {func(t time.Time, _ monday.Locale) string { return pad(t.YearDay(), 3) }, "002"},
	"E":    {func(t time.Time, _ monday.Locale) string { return strconv.Itoa(isoWeekday(t)) }, ""},
	"EEE":  {named("Mon"), "Mon"},
	"EEEE": {named("Monday"), "Monday"},
	"c":    {func(t time.Time, _ monday.Locale) string { return strconv.Itoa(isoWeekday(t)) }, ""},
	"ccc":  {named("Mon"), "Mon"},
	"cccc": {named("Monday"), "Monday"},
	"W":    {func(t time.Time, _ monday.Locale) string { _, w := t.ISOWeek(); return strconv.Itoa(w) }, ""},
	"WW":   {func(t time.Time, _ monday.Locale) string { _, w := t.ISOWeek(); return pad(w, 2) }, ""},
	"q":    {func(t time.Time, _ monday.Locale) string { return strconv.Itoa((int(t.Month())-1)/3 + 1) }, ""},
	"H":    {func(t time.Time, _ monday.Locale) string { return strconv.Itoa(t.Hour()) }, "15"},
	"HH":   {func(t time.Time, _ monday.Locale) string { return pad(t.Hour(), 2) }, "15"},
	"h":    {func(t time.Time, _ monday.Locale) string { return strconv.Itoa(hour12(t)) }, "3"},
	"hh":   {func(t time.Time, _ monday.Locale) string { return pad(hour12(t), 2) }, "03"},
	"m":    {func(t time.Time, _ monday.Locale) string { return strconv.Itoa(t.Minute()) }, "4"},
	"mm":   {func(t time.Time, _ monday.Locale) string { return pad(t.Minute(), 2) }, "04"},
	"s":    {func(t time.Time, _ monday.Locale) string { return strconv.Itoa(t.Second()) }, "5"},
	"ss":   {func(t time.Time, _ monday.Locale) string { return pad(t.Second(), 2) }, "05"},
	"S":    {func(t time.Time, _ monday.Locale) string { return strconv.Itoa(t.Nanosecond() / 1e6) }, ""},
	"SSS":  {func(t time.Time, _ monday.Locale) string { return pad(t.Nanosecond()/1e6, 3) }, "000"},
	"a":    {named("PM"), "PM"},
	"Z":    {func(t time.Time, _ monday.Locale) string { return offset(t, ":", true) }, ""},
	"ZZ":   {func(t time.Time, _ monday.Locale) string { return offset(t, ":", false) }, "-07:00"},
	"ZZZ":  {func(t time.Time, _ monday.Locale) string { return offset(t, "", false) }, "-0700"},
	"ZZZZ": {func(t time.Time, _ monday.Locale) string { return t.Format("MST") }, "MST"},
	"z":    {func(t time.Time, _ monday.Locale) string { return t.Location().String() }, ""},
	"X":    {func(t time.Time, _ monday.Locale) string { return strconv.FormatInt(t.Unix(), 10) }, ""},
	"x":    {func(t time.Time, _ monday.Locale) string { return strconv.FormatInt(t.UnixMilli(), 10) }, ""},
}

func isoWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}

func isPatternLetter(r byte) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// tokenize splits an LDML pattern. Text between single quotes is literal and
// a doubled quote is an escaped one. Letter runs without a known meaning stay literal.
func tokenize(pattern string) ([]token, error) {
	var out []token
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			out = append(out, token{literal: true, text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch {
		case c == '\'':
			if i+1 < len(pattern) && pattern[i+1] == '\'' {
				lit.WriteByte('\'')
				i += 2
				continue
			}
			i++
			for {
				if i >= len(pattern) {
					return nil, fmt.Errorf("unterminated quoted literal in %q", pattern)
				}
				if pattern[i] == '\'' {
					if i+1 < len(pattern) && pattern[i+1] == '\'' {
						lit.WriteByte('\'')
						i += 2
						continue
					}
					i++
					break
				}
				lit.WriteByte(pattern[i])
				i++
			}
		case isPatternLetter(c):
			j := i
			for j < len(pattern) && pattern[j] == c {
				j++
			}
			run := pattern[i:j]
			if _, ok := fields[run]; ok {
				flush()
				out = append(out, token{text: run})
			} else {
				lit.WriteString(run)
			}
			i = j
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return out, nil
}

func formatTokens(v Value, tokens []token) string {
	loc := mondayLocale(v.locale)
	var b strings.Builder
	for _, tk := range tokens {
		if tk.literal {
			b.WriteString(tk.text)
			continue
		}
		b.WriteString(fields[tk.text].format(v.t, loc))
	}
	return b.String()
}

// layoutFor translates tokens into a Go reference layout for strict parsing.
func layoutFor(tokens []token) (string, error) {
	var b strings.Builder
	for _, tk := range tokens {
		if tk.literal {
			if ambiguousLiteral(tk.text) {
				return "", fmt.Errorf("literal %q cannot be parsed unambiguously", tk.text)
			}
			b.WriteString(tk.text)
			continue
		}
		f := fields[tk.text]
		if f.layout == "" {
			return "", fmt.Errorf("token %q is not supported when parsing", tk.text)
		}
		b.WriteString(f.layout)
	}
	return b.String(), nil
}

var referenceWords = []string{"Jan", "Mon", "MST", "PM", "pm", "Z07", "_2", "__2"}

func ambiguousLiteral(s string) bool {
	if strings.ContainsAny(s, "0123456789") {
		return true
	}
	for _, w := range referenceWords {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var mondayLocales sync.Map // tag -> monday.Locale

// mondayLocale maps a BCP 47 tag to a monday locale ("fr" -> fr_FR). Unknown
// or empty tags fall back to English.
func mondayLocale(tag string) monday.Locale {
	if tag == "" {
		return monday.LocaleEnUS
	}
	if cached, ok := mondayLocales.Load(tag); ok {
		return cached.(monday.Locale)
	}
	var loc monday.Locale = monday.LocaleEnUS
	if t, err := language.Parse(tag); err == nil {
		base, _ := t.Base()
		region, _ := t.Region()
		loc = monday.Locale(base.String() + "_" + region.String())
	}
	mondayLocales.Store(tag, loc)
	return loc
}
