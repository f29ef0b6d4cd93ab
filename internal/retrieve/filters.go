package retrieve

import (
	"path/filepath"
	"strings"
)

// passesFilters applies the extension whitelist, path include substring,
// and OR-semantics path exclude list from the lexical retriever's filter
// step, shared by both the pure lexical path and hybrid fusion. It is
// idempotent: applying the same Options twice yields the same verdict,
// since it only inspects path and extensions, never mutates state.
func passesFilters(path string, opts Options) bool {
	if len(opts.FileExtensions) > 0 && !hasAnyExtension(path, opts.FileExtensions) {
		return false
	}
	if opts.PathFilter != "" && !strings.Contains(path, opts.PathFilter) {
		return false
	}
	for _, exclude := range opts.ExcludePaths {
		if exclude != "" && strings.Contains(path, exclude) {
			return false
		}
	}
	return true
}

func hasAnyExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
