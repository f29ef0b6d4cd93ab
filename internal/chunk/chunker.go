package chunk

import (
	"context"
	"errors"
	"strings"

	"github.com/matperez/coderag/internal/lang"
)

var errParseFailed = errors.New("chunk: parse failed")

// extractors maps a language name to the function that turns its source
// bytes into the generic top-level node list the traversal understands.
var extractors = map[string]sourceExtractor{
	"go": extractGoNodes,
	"markdown": extractMarkdownNodes,
}

func init() {
	for name := range treeSitterLanguages {
		name := name
		extractors[name] = treeSitterExtractor(name)
	}
}

// Chunk parses source according to the language detected from path and
// emits size-bounded semantic chunks. It is a pure function of its
// inputs: identical (source, path, options) always yields an identical,
// identically ordered chunk sequence.
func Chunk(ctx context.Context, source string, path string, opts Options) ([]Chunk, error) {
	opts = opts.withDefaults()

	if strings.TrimSpace(source) == "" {
		return []Chunk{}, nil
	}

	descriptor, ok := lang.Detect(path)
	if !ok {
		return characterWindows(source, opts.MaxChunkSize, nil), nil
	}

	chunks, err := chunkWithDescriptor(ctx, []byte(source), descriptor, opts, 0)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// chunkWithDescriptor runs the generic boundary/leaf/merge/split algorithm
// for one language descriptor. depth tracks embedded-language recursion
// so a pathological input (a markdown file whose fences contain markdown
// whose fences contain markdown...) can't recurse unboundedly.
func chunkWithDescriptor(ctx context.Context, source []byte, descriptor *lang.Descriptor, opts Options, depth int) ([]Chunk, error) {
	extractor, ok := extractors[descriptor.Name]
	if !ok {
		return characterWindows(string(source), opts.MaxChunkSize, nil), nil
	}

	ext, err := extractor(source)
	if err != nil {
		return characterWindows(string(source), opts.MaxChunkSize, map[string]any{"parse_error": err.Error()}), nil
	}

	boundaries := opts.NodeTypes
	if boundaries == nil {
		boundaries = descriptor.Boundaries
	}

	contextPrefix := ""
	if opts.PreserveContext {
		var parts []string
		for _, n := range ext.nodes {
			if descriptor.Context[n.kind] {
				if text := strings.TrimSpace(n.text(ext.source)); text != "" {
					parts = append(parts, text)
				}
			}
		}
		contextPrefix = strings.Join(parts, "\n")
	}

	var chunks []Chunk
	var leafBuf []node
	lastBoundaryEnd := 0

	flushLeaf := func() {
		if len(leafBuf) == 0 {
			return
		}
		text := joinNodes(leafBuf, ext.source)
		start := leafBuf[0].startLine
		if len(text) > opts.MaxChunkSize {
			for _, c := range splitIntoWindows(text, opts.MaxChunkSize, start) {
				chunks = append(chunks, applyContext(c, contextPrefix, opts))
			}
		} else {
			chunks = append(chunks, applyContext(Chunk{
				Content:   text,
				Type:      "text",
				StartLine: start,
				EndLine:   leafBuf[len(leafBuf)-1].endLine,
				Metadata:  map[string]any{},
			}, contextPrefix, opts))
		}
		leafBuf = nil
	}

	for _, n := range ext.nodes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if descriptor.Context[n.kind] {
			continue
		}

		if !boundaries[n.kind] {
			leafBuf = append(leafBuf, n)
			if len(joinNodes(leafBuf, ext.source)) >= opts.MinChunkSize {
				flushLeaf()
			}
			continue
		}

		// Boundary node. Spans already covered by a previously emitted
		// boundary are absorbed, never emitted twice.
		if n.startLine <= lastBoundaryEnd {
			continue
		}

		flushLeaf() // leaf fragments never absorb across a boundary

		emitted, err := emitBoundary(ctx, n, ext.source, descriptor, opts, depth, contextPrefix)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, emitted...)
		lastBoundaryEnd = n.endLine
	}
	flushLeaf()

	if len(chunks) == 0 {
		return characterWindows(string(source), opts.MaxChunkSize, nil), nil
	}

	return chunks, nil
}

// emitBoundary produces the final chunk(s) for one boundary node: either
// a recursively-chunked embedded block, a single chunk, or a split series
// when the node's own text exceeds MaxChunkSize. Returned chunks already
// have context applied (embedded sub-chunks resolve their own language's
// context internally and are only tagged, not re-wrapped).
func emitBoundary(ctx context.Context, n node, source []byte, descriptor *lang.Descriptor, opts Options, depth int, contextPrefix string) ([]Chunk, error) {
	if rule, ok := descriptor.EmbeddedRuleFor(n.kind); ok && opts.ParseEmbedded && depth < opts.maxEmbedDepth {
		return emitEmbedded(ctx, n, source, descriptor, rule, opts, depth, contextPrefix)
	}

	content := n.text(source)
	ctype := descriptor.ChunkType(n.kind)

	if len(content) > opts.MaxChunkSize {
		windows := splitOversizedBoundary(n, content, descriptor, opts)
		out := make([]Chunk, 0, len(windows))
		for _, c := range windows {
			out = append(out, applyContext(c, contextPrefix, opts))
		}
		return out, nil
	}

	return []Chunk{applyContext(Chunk{
		Content:   content,
		Type:      ctype,
		StartLine: n.startLine,
		EndLine:   n.endLine,
		Metadata:  map[string]any{},
	}, contextPrefix, opts)}, nil
}

// emitEmbedded recursively chunks an embedded-language block (e.g. a
// markdown fenced code block) and remaps the resulting line numbers back
// into the host document's coordinate space. If recursion yields no
// sub-chunks the container itself is emitted as one chunk carrying the
// raw body and the resolved embedded language.
func emitEmbedded(ctx context.Context, n node, source []byte, descriptor *lang.Descriptor, rule lang.EmbeddedRule, opts Options, depth int, contextPrefix string) ([]Chunk, error) {
	resolvedLang := n.embeddedLang
	if resolvedLang == "" {
		resolvedLang = rule.DefaultLanguage
	}

	body := embeddedBody(n, source)
	embeddedDescriptor, known := lang.DescriptorByName(resolvedLang)

	if known && strings.TrimSpace(body) != "" {
		sub, err := chunkWithDescriptor(ctx, []byte(body), embeddedDescriptor, opts, depth+1)
		if err == nil && len(sub) > 0 {
			for i := range sub {
				sub[i].StartLine += n.startLine
				sub[i].EndLine += n.startLine
				if sub[i].Metadata == nil {
					sub[i].Metadata = map[string]any{}
				}
				sub[i].Metadata["embedded_in"] = n.kind
				sub[i].Metadata["embedded_language"] = resolvedLang
			}
			return sub, nil
		}
	}

	return []Chunk{applyContext(Chunk{
		Content:   body,
		Type:      descriptor.ChunkType(n.kind),
		StartLine: n.startLine,
		EndLine:   n.endLine,
		Metadata: map[string]any{
			"embedded_language": resolvedLang,
		},
	}, contextPrefix, opts)}, nil
}

// embeddedBody strips the delimiter lines (e.g. the opening/closing
// fence) from a boundary node's text, returning just the nested source.
func embeddedBody(n node, source []byte) string {
	full := n.text(source)
	lines := strings.Split(full, "\n")
	if len(lines) <= 2 {
		return ""
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// splitOversizedBoundary implements "recursively split on its own
// children if present; otherwise character windows": for grammars we
// re-parse with tree-sitter, the node's own content is re-parsed to find
// its named children, which become the split units; anything left over
// (or a language without a re-parseable grammar, like Go) falls back to
// fixed character windows.
func splitOversizedBoundary(n node, content string, descriptor *lang.Descriptor, opts Options) []Chunk {
	ctype := descriptor.ChunkType(n.kind)

	if _, ok := treeSitterLanguages[descriptor.Name]; ok {
		children := treeSitterChildren(descriptor.Name, []byte(content))
		if len(children) > 1 {
			var out []Chunk
			for _, child := range children {
				childContent := child.text([]byte(content))
				if childContent == "" {
					continue
				}
				if len(childContent) > opts.MaxChunkSize {
					out = append(out, splitIntoWindows(childContent, opts.MaxChunkSize, n.startLine+child.startLine-1)...)
					continue
				}
				out = append(out, Chunk{
					Content:   childContent,
					Type:      ctype,
					StartLine: n.startLine + child.startLine - 1,
					EndLine:   n.startLine + child.endLine - 1,
					Metadata:  map[string]any{"split": true},
				})
			}
			if len(out) > 0 {
				return out
			}
		}
	}

	return splitIntoWindows(content, opts.MaxChunkSize, n.startLine)
}

// splitIntoWindows breaks content into fixed-size, non-overlapping
// character windows tagged metadata.split = true (distinct from the
// unknown-language/parse-failure metadata.fallback case), with line
// numbers offset by baseLine so they stay meaningful in the original
// file's coordinate space.
func splitIntoWindows(content string, maxSize int, baseLine int) []Chunk {
	if content == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = defaultMaxChunkSize
	}
	li := newLineIndex(content)

	var out []Chunk
	for start := 0; start < len(content); start += maxSize {
		end := start + maxSize
		if end > len(content) {
			end = len(content)
		}
		out = append(out, Chunk{
			Content:   content[start:end],
			Type:      "fallback",
			StartLine: baseLine + li.lineAt(start) - 1,
			EndLine:   baseLine + li.lineAt(end-1) - 1,
			Metadata:  map[string]any{"split": true},
		})
	}
	return out
}

// joinNodes concatenates a run of leaf-fragment nodes' original text,
// preserving the newlines between them by slicing the shared source
// range from the first node's start to the last node's end.
func joinNodes(nodes []node, source []byte) string {
	if len(nodes) == 0 {
		return ""
	}
	start := nodes[0].startByte
	end := nodes[len(nodes)-1].endByte
	if start < 0 || end > len(source) || start > end {
		return ""
	}
	return string(source[start:end])
}

// applyContext prepends the context prefix to a chunk's content when
// context preservation is enabled and a prefix was built; start/end lines
// continue to refer to the original span, never the prefixed content.
func applyContext(c Chunk, contextPrefix string, opts Options) Chunk {
	if opts.PreserveContext && contextPrefix != "" {
		c.Content = contextPrefix + "\n" + c.Content
	}
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	return c
}
