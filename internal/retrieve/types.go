// Package retrieve answers search queries over the store: BM25 lexical
// ranking, optional vector similarity, weighted fusion of the two, result
// filtering, and snippet construction. It is grounded in the teacher's
// mcp package (sqliteSearcher, chromemSearcher, SearcherCoordinator),
// generalized from its five-table code-graph schema down to this
// design's chunk/term/idf schema and its simpler chunk_id-keyed fusion.
package retrieve

// Hit is one ranked search result, the shape returned to the collaborator
// shell described by the external search-result interface.
type Hit struct {
	ChunkID      int64
	Path         string
	Score        float64
	Method       string // "lexical" | "vector" | "hybrid"
	MatchedTerms []string
	Similarity   *float64
	Language     string
	ChunkType    string
	StartLine    int
	EndLine      int
	Content      string // raw chunk content; Engine.Search builds Snippet from it and clears it before returning
	Snippet      string
}

// Options controls one search call. Zero-value Options is invalid; use
// DefaultOptions to get spec-conformant defaults.
type Options struct {
	Limit            int
	IncludeContent   bool
	FileExtensions   []string
	PathFilter       string
	ExcludePaths     []string
	ContextLines     int
	MaxSnippetChars  int
	MaxSnippetBlocks int
	VectorWeight     float64
	CandidateLimit   int // number of lexical candidates to fetch before BM25 ranking
}

// DefaultOptions returns the spec's documented defaults. vectorAvailable
// controls the default vector_weight (0.7 when a provider is configured,
// 0 otherwise).
func DefaultOptions(vectorAvailable bool) Options {
	weight := 0.0
	if vectorAvailable {
		weight = 0.7
	}
	return Options{
		Limit:            10,
		IncludeContent:   true,
		ContextLines:     3,
		MaxSnippetChars:  2000,
		MaxSnippetBlocks: 4,
		VectorWeight:     weight,
		CandidateLimit:   0, // resolved by the caller; 0 means "use BM25's default multiplier"
	}
}
