package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	n := Parse([]byte("---\ntitle: Hello\ntags:\n  - go\n  - temple\naliases: hi, hey\n---\n# Heading\nBody #extra text.\n"))
	assert.Equal(t, "Hello", n.Title)
	assert.Equal(t, []string{"go", "temple", "extra"}, n.Tags)
	assert.Equal(t, []string{"hi", "hey"}, n.Aliases)
	assert.Equal(t, "# Heading\nBody #extra text.\n", n.Body)
}

func TestParse_NoFrontmatter(t *testing.T) {
	n := Parse([]byte("# Just a heading\nSome text.\n"))
	assert.Nil(t, n.Frontmatter)
	assert.Equal(t, "Just a heading", n.Title)
}

func TestParse_InvalidYAMLIsBody(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	n := Parse([]byte(input))
	assert.Nil(t, n.Frontmatter)
	assert.Equal(t, input, n.Body)
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	fm, body := SplitFrontmatter([]byte("---\ntitle: x\nno end"))
	assert.Nil(t, fm)
	assert.Equal(t, "---\ntitle: x\nno end", body)
}

func TestLinks(t *testing.T) {
	got := links("See [[Note A]], [[Note B|alias]], [[Note C#Section]] and [[Note A]] again. [[ ]] [[|x]]")
	assert.Equal(t, []string{"Note A", "Note B", "Note C"}, got)
}

func TestTags_FrontmatterFirstAndDeduplicated(t *testing.T) {
	got := tags(map[string]any{"tags": []any{"alpha", "#gamma"}}, "Some text #beta and #alpha again.")
	assert.Equal(t, []string{"alpha", "gamma", "beta"}, got)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "FM Title", title(map[string]any{"title": "FM Title"}, "# H1 Title"))
	assert.Equal(t, "My Heading", title(nil, "some text\n# My Heading\nmore"))
	assert.Equal(t, "", title(nil, "##  not h1"))
}

func TestStringList(t *testing.T) {
	require.Nil(t, stringList(nil))
	assert.Equal(t, []string{"a", "b"}, stringList([]any{"a", 3, " b "}))
}
