package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matperez/coderag/internal/chunk"
	"github.com/matperez/coderag/internal/lang"
	"github.com/matperez/coderag/internal/store"
	"github.com/matperez/coderag/internal/token"
)

// preparedFile is the CPU/IO work product for one added/changed file:
// everything apply needs before it touches the store.
type preparedFile struct {
	path        string
	language    string
	contentHash string
	size        int64
	mtime       time.Time
	chunks      []chunk.Chunk
	skipped     bool // non-text or over size cap; not an error
}

// prepareFiles reads, chunks, and tokenizes a group of files concurrently
// across a bounded worker pool, the "per-file chunking and tokenization
// within a group run concurrently" granularity from the concurrency
// model. A read failure for one file is logged and skipped; it never
// aborts the group.
func (e *Engine) prepareFiles(ctx context.Context, paths []string) ([]preparedFile, error) {
	results := make([]preparedFile, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, rel := range paths {
		i, rel := i, rel
		g.Go(func() error {
			pf, err := e.prepareOne(gctx, rel)
			if err != nil {
				e.logf("engine: skip %s: %v", rel, err)
				results[i] = preparedFile{path: rel, skipped: true}
				return nil
			}
			results[i] = pf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) prepareOne(ctx context.Context, rel string) (preparedFile, error) {
	abs := filepath.Join(e.root, rel)

	info, err := os.Stat(abs)
	if err != nil {
		return preparedFile{}, fmt.Errorf("stat: %w", err)
	}
	if info.Size() > e.maxFileSize {
		return preparedFile{path: rel, skipped: true}, nil
	}

	binary, err := looksBinary(abs)
	if err != nil {
		return preparedFile{}, fmt.Errorf("probe: %w", err)
	}
	if binary {
		return preparedFile{path: rel, skipped: true}, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return preparedFile{}, fmt.Errorf("read: %w", err)
	}

	chunks, err := chunk.Chunk(ctx, string(data), rel, e.chunkOptions)
	if err != nil {
		return preparedFile{}, fmt.Errorf("chunk: %w", err)
	}

	languageName := "unknown"
	if descriptor, ok := lang.Detect(rel); ok {
		languageName = descriptor.Name
	}

	return preparedFile{
		path:        rel,
		language:    languageName,
		contentHash: sha256Hex(data),
		size:        info.Size(),
		mtime:       info.ModTime().Truncate(time.Second),
		chunks:      chunks,
	}, nil
}

// applyGroup performs Phase B for one batch: for each file, atomically
// upsert its row, replace its chunks, and write their chunk_terms (so a
// crash never leaves a committed content_hash pointing at missing or
// stale chunks), then Phase B's deletions.
func (e *Engine) applyGroup(ctx context.Context, prepared []preparedFile, deleted []string) ([]string, error) {
	var touchedPaths []string

	for _, pf := range prepared {
		if pf.skipped {
			continue
		}

		storeChunks := make([]store.Chunk, len(pf.chunks))
		chunkTerms := make([][]store.ChunkTerms, len(pf.chunks))
		for i, c := range pf.chunks {
			tokens := token.Tokenize(c.Content)
			storeChunks[i] = store.Chunk{
				Content:    c.Content,
				Type:       c.Type,
				StartLine:  c.StartLine,
				EndLine:    c.EndLine,
				Metadata:   c.Metadata,
				TokenCount: len(tokens),
			}
			if len(tokens) == 0 {
				continue
			}
			counts := termCounts(tokens)
			terms := make([]store.ChunkTerms, 0, len(counts))
			for term, raw := range counts {
				terms = append(terms, store.ChunkTerms{
					Term:    term,
					RawFreq: raw,
					TF:      float64(raw) / float64(len(tokens)),
				})
			}
			chunkTerms[i] = terms
		}

		if e.vectors != nil {
			if existingID, err := e.store.GetFileID(ctx, pf.path); err == nil {
				if oldChunks, err := e.store.GetChunksByFile(ctx, existingID); err == nil {
					for _, oc := range oldChunks {
						_ = e.vectors.Delete(ctx, oc.ID)
					}
				}
			}
		}

		_, ids, err := e.store.ApplyFile(ctx, store.File{
			Path:        pf.path,
			ContentHash: pf.contentHash,
			Size:        pf.size,
			Mtime:       pf.mtime,
			Language:    pf.language,
			IndexedAt:   time.Now().UTC(),
		}, storeChunks, chunkTerms)
		if err != nil {
			return nil, fmt.Errorf("engine: apply file %s: %w", pf.path, err)
		}

		if e.embedder != nil && e.vectors != nil && len(pf.chunks) > 0 {
			if err := e.embedAndStore(ctx, pf.chunks, ids); err != nil {
				e.logf("engine: embed chunks for %s: %v", pf.path, err)
			}
		}

		touchedPaths = append(touchedPaths, pf.path)
	}

	for _, path := range deleted {
		if e.vectors != nil {
			if fileID, err := e.store.GetFileID(ctx, path); err == nil {
				if chunks, err := e.store.GetChunksByFile(ctx, fileID); err == nil {
					for _, c := range chunks {
						_ = e.vectors.Delete(ctx, c.ID)
					}
				}
			}
		}
		if err := e.store.DeleteFile(ctx, path); err != nil {
			return nil, fmt.Errorf("engine: delete file %s: %w", path, err)
		}
		touchedPaths = append(touchedPaths, path)
	}

	return touchedPaths, nil
}

// embedAndStore embeds a file's chunk contents in one batch (passage
// mode) and upserts each embedding into the vector store keyed by its
// freshly assigned chunk id.
func (e *Engine) embedAndStore(ctx context.Context, chunks []chunk.Chunk, ids []int64) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := e.embedder.Embed(ctx, texts, "passage")
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	for i, emb := range embeddings {
		if i >= len(ids) || emb == nil {
			continue
		}
		if err := e.vectors.Upsert(ctx, ids[i], emb); err != nil {
			return fmt.Errorf("upsert vector for chunk %d: %w", ids[i], err)
		}
	}
	return nil
}

func termCounts(terms []string) map[string]int {
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	return counts
}
