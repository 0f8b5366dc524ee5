// Package resolver selects the candidate templates offered to the user.
package resolver

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"github.com/starford/temple/internal/apperr"
	"github.com/starford/temple/internal/models"
	"github.com/starford/temple/internal/settings"
	"github.com/starford/temple/internal/storage"
)

// ListCandidates returns the documents under the template directory, minus
// those whose base name matches the exclusion regex when it is enabled.
// An empty result, including a missing template directory, is not an error.
func ListCandidates(ctx context.Context, store storage.Provider, core settings.CoreSettings) ([]models.Document, error) {
	var exclude *regexp.Regexp
	if core.FilterTemplateSelect.Enable && core.FilterTemplateSelect.Regex != "" {
		re, err := regexp.Compile(core.FilterTemplateSelect.Regex)
		if err != nil {
			return nil, &apperr.ConfigurationError{Key: "core.filter_template_select.regex", Err: err}
		}
		exclude = re
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := cleanDir(core.TemplateDirectory)
	docs, err := store.List(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Document{}, nil
	}
	if err != nil {
		return nil, &apperr.DocumentIOError{Op: "list", Path: core.TemplateDirectory, Err: err}
	}
	out := make([]models.Document, 0)
	for _, d := range docs {
		if !InDirectory(d.Path, core.TemplateDirectory) {
			continue
		}
		if exclude != nil && exclude.MatchString(d.Basename) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// InDirectory reports whether p lies under dir, respecting path segment
// boundaries: "_templates-old/x.md" is not under "_templates".
func InDirectory(p, dir string) bool {
	dir = cleanDir(dir)
	if dir == "" {
		return true
	}
	return strings.HasPrefix(p, dir+"/")
}

// cleanDir normalises a vault directory to "a/b" form; "" is the vault root.
func cleanDir(dir string) string {
	return strings.Trim(path.Clean("/"+dir), "/")
}

// Label is the text shown for a candidate.
func Label(d models.Document) string {
	return d.Basename
}
