package chunk

import (
	"bytes"
	"regexp"
	"strings"
)

var (
	headingPattern = regexp.MustCompile(`^#{1,6}\s+`)
	fencePattern   = regexp.MustCompile("^```")
)

// extractMarkdownNodes hand-scans a markdown document into a flat,
// document-ordered node list: headings and fenced code blocks are
// boundaries, everything else is a leaf fragment the generic merge step
// folds together. No markdown grammar exists in the retrieval pack, so
// this mirrors the teacher's own line-scanning documentation chunker
// (internal/indexer/chunker.go) instead of reaching for a tree-sitter
// binding that was never wired.
func extractMarkdownNodes(source []byte) (extraction, error) {
	lines := strings.Split(string(source), "\n")

	var nodes []node
	byteOffset := 0
	lineStart := make([]int, len(lines)+1)
	for i, l := range lines {
		lineStart[i] = byteOffset
		byteOffset += len(l) + 1 // +1 for the newline we split away
	}
	lineStart[len(lines)] = byteOffset

	inFence := false
	fenceStartLine := 0
	fenceInfo := ""

	for i, line := range lines {
		lineNum := i + 1

		if fencePattern.MatchString(strings.TrimSpace(line)) {
			if !inFence {
				inFence = true
				fenceStartLine = lineNum
				fenceInfo = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
				continue
			}
			// closing fence
			inFence = false
			nodes = append(nodes, node{
				kind:         "code_block",
				startLine:    fenceStartLine,
				endLine:      lineNum,
				startByte:    lineStart[fenceStartLine-1],
				endByte:      lineEndByte(lineStart, lines, lineNum),
				embeddedLang: fenceInfo,
			})
			continue
		}

		if inFence {
			continue
		}

		if headingPattern.MatchString(line) {
			nodes = append(nodes, node{
				kind:      "heading",
				startLine: lineNum,
				endLine:   lineNum,
				startByte: lineStart[lineNum-1],
				endByte:   lineEndByte(lineStart, lines, lineNum),
			})
			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		// Leaf paragraph text: coalesce into the previous leaf node if it
		// is immediately adjacent, otherwise start a new one. Blank lines
		// above already broke adjacency.
		if n := len(nodes); n > 0 && nodes[n-1].kind == "text" && nodes[n-1].endLine == lineNum-1 {
			nodes[n-1].endLine = lineNum
			nodes[n-1].endByte = lineEndByte(lineStart, lines, lineNum)
			continue
		}

		nodes = append(nodes, node{
			kind:      "text",
			startLine: lineNum,
			endLine:   lineNum,
			startByte: lineStart[lineNum-1],
			endByte:   lineEndByte(lineStart, lines, lineNum),
		})
	}

	return extraction{nodes: nodes, source: bytes.Join([][]byte{[]byte(strings.Join(lines, "\n"))}, nil)}, nil
}

func lineEndByte(lineStart []int, lines []string, lineNum int) int {
	// lineNum is 1-based; end byte excludes the trailing newline we
	// stripped when splitting, i.e. start-of-line + line length.
	return lineStart[lineNum-1] + len(lines[lineNum-1])
}
