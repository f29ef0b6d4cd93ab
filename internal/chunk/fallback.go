package chunk

import "strings"

// characterWindows splits source into fixed-size, non-overlapping windows
// (overlap 0, as the spec requires for the fallback path), each tagged
// metadata.fallback = true. Used for unknown languages, languages without
// an extractor, parse failures, and sources that yield no chunks; an
// oversized chunk that can't be split on its AST children goes through
// splitIntoWindows instead.
func characterWindows(source string, maxSize int, extra map[string]any) []Chunk {
	if source == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = defaultMaxChunkSize
	}

	lineOf := newLineIndex(source)

	var chunks []Chunk
	for start := 0; start < len(source); start += maxSize {
		end := start + maxSize
		if end > len(source) {
			end = len(source)
		}
		meta := map[string]any{"fallback": true}
		for k, v := range extra {
			meta[k] = v
		}
		chunks = append(chunks, Chunk{
			Content:   source[start:end],
			Type:      "fallback",
			StartLine: lineOf.lineAt(start),
			EndLine:   lineOf.lineAt(end - 1),
			Metadata:  meta,
		})
	}
	return chunks
}

// lineIndex maps a byte offset into a source string to its 1-based line
// number, by precomputing line-start offsets once.
type lineIndex struct {
	starts []int
}

func newLineIndex(source string) lineIndex {
	starts := []int{0}
	for i, r := range source {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{starts: starts}
}

func (li lineIndex) lineAt(offset int) int {
	if offset < 0 {
		offset = 0
	}
	// binary search over starts for the last start <= offset
	lo, hi := 0, len(li.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
