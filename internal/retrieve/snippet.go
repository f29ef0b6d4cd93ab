package retrieve

import (
	"fmt"
	"strconv"
	"strings"
)

// BuildSnippet renders content (one chunk's full text, whose first line is
// startLine) as a line-numbered, context-expanded snippet around the
// lines that contain any of matchedTerms, coalesced into at most
// maxBlocks contiguous blocks, then truncated to maxChars if the
// assembled text still runs long.
func BuildSnippet(content string, startLine, contextLines, maxChars, maxBlocks int, matchedTerms []string) string {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return ""
	}

	matchedIdx := matchingLineIndexes(lines, matchedTerms)
	if len(matchedIdx) == 0 {
		// No term-level match (e.g. a pure vector hit): show from the top.
		matchedIdx = []int{0}
	}

	windows := expandWindows(matchedIdx, len(lines), contextLines)
	blocks := coalesce(windows)
	if len(blocks) > maxBlocks {
		blocks = blocks[:maxBlocks]
	}

	var parts []string
	for _, b := range blocks {
		parts = append(parts, renderBlock(lines, b, startLine))
	}
	rendered := strings.Join(parts, "\n...\n")

	return truncate(rendered, maxChars)
}

type window struct{ start, end int } // inclusive, 0-based line indexes

func matchingLineIndexes(lines []string, terms []string) []int {
	if len(terms) == 0 {
		return nil
	}
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}
	var idx []int
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, t := range lowered {
			if t != "" && strings.Contains(lower, t) {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}

func expandWindows(matched []int, lineCount, contextLines int) []window {
	windows := make([]window, 0, len(matched))
	for _, idx := range matched {
		start := idx - contextLines
		if start < 0 {
			start = 0
		}
		end := idx + contextLines
		if end > lineCount-1 {
			end = lineCount - 1
		}
		windows = append(windows, window{start: start, end: end})
	}
	return windows
}

// coalesce merges overlapping or adjacent windows into contiguous blocks,
// returned in ascending start-line order.
func coalesce(windows []window) []window {
	if len(windows) == 0 {
		return nil
	}
	sorted := append([]window{}, windows...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].start < sorted[j-1].start; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	merged := []window{sorted[0]}
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if w.start <= last.end+1 {
			if w.end > last.end {
				last.end = w.end
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

func renderBlock(lines []string, b window, startLine int) string {
	var sb strings.Builder
	for i := b.start; i <= b.end; i++ {
		fmt.Fprintf(&sb, "%d: %s\n", startLine+i, lines[i])
	}
	return strings.TrimRight(sb.String(), "\n")
}

// truncate applies the head(70%)+tail(20%) rule when s exceeds maxChars:
// the hidden middle is replaced by a "[N chars truncated]" marker, N being
// the exact count of characters dropped.
func truncate(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	head := int(float64(maxChars) * 0.7)
	tail := int(float64(maxChars) * 0.2)
	if head+tail >= len(s) {
		return s
	}
	dropped := len(s) - head - tail
	marker := "[" + strconv.Itoa(dropped) + " chars truncated]"
	return s[:head] + marker + s[len(s)-tail:]
}
