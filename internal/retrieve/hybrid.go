package retrieve

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/matperez/coderag/internal/store"
)

// Engine ties the lexical and vector retrievers together behind a single
// Search call that performs fusion, filtering, and snippet construction,
// the C9 hybrid-fusion entry point.
type Engine struct {
	lexical LexicalSource
	vector  *VectorRetriever
	byID    ChunkLookup
}

// ChunkLookup resolves a chunk id to its full row, needed for vector-only
// hits that never went through SearchCandidates and so never picked up a
// Candidate.
type ChunkLookup interface {
	GetChunk(ctx context.Context, chunkID int64) (store.Candidate, error)
}

func NewEngine(lexical LexicalSource, vector *VectorRetriever, byID ChunkLookup) *Engine {
	return &Engine{lexical: lexical, vector: vector, byID: byID}
}

// Search runs the lexical and vector sub-queries concurrently, fuses
// them by weighted max normalization (each side divided by its own top
// score), applies filters, and builds snippets for the final page of
// results.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Hit, error) {
	var lexResults []Scored
	var vecResults []VectorMatch

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexResults, err = BM25Search(gctx, e.lexical, query, opts.Limit, opts.CandidateLimit)
		return err
	})
	g.Go(func() error {
		if opts.VectorWeight > 0.01 && e.vector != nil && e.vector.Available() {
			vecResults = e.vector.Search(gctx, query, opts.Limit)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	fused, err := e.fuse(ctx, lexResults, vecResults, opts.VectorWeight)
	if err != nil {
		return nil, err
	}

	filtered := fused[:0]
	for _, h := range fused {
		if passesFilters(h.Path, opts) {
			filtered = append(filtered, h)
		}
	}

	if len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}

	for i := range filtered {
		if opts.IncludeContent {
			filtered[i].Snippet = BuildSnippet(filtered[i].Content, filtered[i].StartLine, opts.ContextLines, opts.MaxSnippetChars, opts.MaxSnippetBlocks, filtered[i].MatchedTerms)
		}
		filtered[i].Content = ""
	}
	return filtered, nil
}

type fusedEntry struct {
	lex *Scored
	vec *VectorMatch
}

// fuse implements §4.9: normalize each side to [0,1] by its own max,
// union by chunk_id with a missing side contributing 0, blend by weight,
// then tag method by which sides actually contributed.
func (e *Engine) fuse(ctx context.Context, lex []Scored, vec []VectorMatch, weight float64) ([]Hit, error) {
	byChunk := map[int64]*fusedEntry{}
	var order []int64

	maxLex := 0.0
	for i := range lex {
		if lex[i].Score > maxLex {
			maxLex = lex[i].Score
		}
		id := lex[i].Candidate.ChunkID
		if _, ok := byChunk[id]; !ok {
			order = append(order, id)
		}
		entry := byChunk[id]
		if entry == nil {
			entry = &fusedEntry{}
			byChunk[id] = entry
		}
		entry.lex = &lex[i]
	}

	maxVec := 0.0
	for i := range vec {
		if vec[i].Similarity > maxVec {
			maxVec = vec[i].Similarity
		}
		id := vec[i].ChunkID
		if _, ok := byChunk[id]; !ok {
			order = append(order, id)
		}
		entry := byChunk[id]
		if entry == nil {
			entry = &fusedEntry{}
			byChunk[id] = entry
		}
		entry.vec = &vec[i]
	}

	pureVector := weight >= 0.99
	pureLexical := weight <= 0.01

	hits := make([]Hit, 0, len(order))
	for _, id := range order {
		entry := byChunk[id]

		lexNorm, vecNorm := 0.0, 0.0
		if entry.lex != nil && maxLex > 0 {
			lexNorm = entry.lex.Score / maxLex
		}
		if entry.vec != nil && maxVec > 0 {
			vecNorm = entry.vec.Similarity / maxVec
		}

		var final float64
		switch {
		case pureVector:
			final = vecNorm
		case pureLexical:
			final = lexNorm
		default:
			final = weight*vecNorm + (1-weight)*lexNorm
		}

		method := fusionMethod(entry, pureVector, pureLexical)

		hit, err := e.buildHit(ctx, id, entry, final, method)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Path != hits[j].Path {
			return hits[i].Path < hits[j].Path
		}
		return hits[i].StartLine < hits[j].StartLine
	})
	return hits, nil
}

func fusionMethod(entry *fusedEntry, pureVector, pureLexical bool) string {
	switch {
	case pureVector:
		return "vector"
	case pureLexical:
		return "lexical"
	case entry.lex != nil && entry.vec != nil:
		return "hybrid"
	case entry.vec != nil:
		return "vector"
	default:
		return "lexical"
	}
}

func (e *Engine) buildHit(ctx context.Context, chunkID int64, entry *fusedEntry, score float64, method string) (Hit, error) {
	var candidate store.Candidate
	var matched []string

	if entry.lex != nil {
		candidate = entry.lex.Candidate
		matched = entry.lex.MatchedTerms
	} else {
		var err error
		candidate, err = e.byID.GetChunk(ctx, chunkID)
		if err != nil {
			return Hit{}, err
		}
	}

	hit := Hit{
		ChunkID:      chunkID,
		Path:         candidate.FilePath,
		Score:        score,
		Method:       method,
		MatchedTerms: matched,
		Language:     candidate.Language,
		ChunkType:    candidate.Type,
		StartLine:    candidate.StartLine,
		EndLine:      candidate.EndLine,
		Content:      candidate.Content,
	}
	if entry.vec != nil {
		sim := entry.vec.Similarity
		hit.Similarity = &sim
	}
	return hit, nil
}
