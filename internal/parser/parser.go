// Package parser reads the note metadata exposed to templates under "note":
// frontmatter, title, aliases, tags and wikilinks.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\[\]]*)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
	headingRe  = regexp.MustCompile(`(?m)^#\s+(.+?)\s*$`)
)

const fence = "---"

// Note is the metadata of one markdown document.
type Note struct {
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Title       string         `json:"title"`
	Aliases     []string       `json:"aliases,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Links       []string       `json:"links,omitempty"`
	Body        string         `json:"-"`
}

// Parse never fails on malformed frontmatter; the whole content is treated as body instead.
func Parse(data []byte) Note {
	fm, body := SplitFrontmatter(data)
	return Note{
		Frontmatter: fm,
		Title:       title(fm, body),
		Aliases:     stringList(fm["aliases"]),
		Tags:        tags(fm, body),
		Links:       links(body),
		Body:        body,
	}
}

// SplitFrontmatter separates a leading YAML block delimited by "---" lines.
func SplitFrontmatter(data []byte) (map[string]any, string) {
	trimmed := bytes.TrimLeft(data, "\r\n")
	if !bytes.HasPrefix(trimmed, []byte(fence)) {
		return nil, string(data)
	}
	rest := trimmed[len(fence):]
	end := bytes.Index(rest, []byte("\n"+fence))
	if end < 0 {
		return nil, string(data)
	}
	var fm map[string]any
	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return nil, string(data)
	}
	body := rest[end+1+len(fence):]
	return fm, strings.TrimLeft(string(body), "\r\n")
}

func links(body string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range wikilinkRe.FindAllStringSubmatch(body, -1) {
		target, _, _ := strings.Cut(m[1], "|")
		target, _, _ = strings.Cut(target, "#")
		target = strings.TrimSpace(target)
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		out = append(out, target)
	}
	return out
}

func tags(fm map[string]any, body string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(tag string) {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		out = append(out, tag)
	}
	for _, t := range stringList(fm["tags"]) {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// stringList accepts a YAML sequence or a single comma separated string.
func stringList(raw any) []string {
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func title(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	if m := headingRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}
