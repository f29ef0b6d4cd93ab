// Package vectorstore wraps chromem-go as the chunk-embedding index used
// by the design's vector retriever. The index lives in memory only: it
// is not written to disk, and its embeddings are lost when the process
// exits. It is grounded in
// the teacher's chromemSearcher (internal/mcp/chromem_searcher.go):
// same atomic-swap-on-reload collection pattern, narrowed from a
// document/tag/chunk-type filtering search to a plain chunk_id-keyed
// nearest-neighbor lookup, since filtering here happens after fusion in
// internal/retrieve.
package vectorstore

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/matperez/coderag/internal/retrieve"
)

const collectionName = "coderag-chunks"

// Store persists chunk embeddings in an in-memory chromem-go collection
// and answers nearest-neighbor queries by cosine similarity. It
// implements retrieve.VectorStore.
type Store struct {
	db *chromem.DB

	mu         sync.RWMutex
	collection *chromem.Collection
}

// New creates an empty vector store.
func New() (*Store, error) {
	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: create collection: %w", err)
	}
	return &Store{db: db, collection: collection}, nil
}

// Upsert writes or replaces the embedding for chunkID.
func (s *Store) Upsert(ctx context.Context, chunkID int64, embedding []float32) error {
	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()

	doc := chromem.Document{ID: strconv.FormatInt(chunkID, 10), Embedding: embedding}
	if err := collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("vectorstore: upsert chunk %d: %w", chunkID, err)
	}
	return nil
}

// Delete removes chunkID's embedding, if present.
func (s *Store) Delete(ctx context.Context, chunkID int64) error {
	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()

	id := strconv.FormatInt(chunkID, 10)
	if err := collection.Delete(ctx, nil, nil, id); err != nil {
		// A delete for an id that was never embedded is not an error at
		// this layer: the caller (Phase B) deletes chunks unconditionally.
		return nil
	}
	return nil
}

// Query returns the topK nearest chunk ids to embedding by cosine
// similarity, satisfying retrieve.VectorStore.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]retrieve.VectorMatch, error) {
	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()

	if collection == nil || collection.Count() == 0 {
		return nil, nil
	}
	if topK > collection.Count() {
		topK = collection.Count()
	}

	docs, err := collection.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query: %w", err)
	}

	matches := make([]retrieve.VectorMatch, 0, len(docs))
	for _, doc := range docs {
		id, err := strconv.ParseInt(doc.ID, 10, 64)
		if err != nil {
			continue
		}
		matches = append(matches, retrieve.VectorMatch{ChunkID: id, Similarity: float64(doc.Similarity)})
	}
	return matches, nil
}

// Reset atomically swaps in a fresh, empty collection, used when the
// caller wants to rebuild the store from scratch rather than upsert
// incrementally.
func (s *Store) Reset(ctx context.Context) error {
	collection, err := s.db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("vectorstore: reset collection: %w", err)
	}
	s.mu.Lock()
	s.collection = collection
	s.mu.Unlock()
	return nil
}

// Count reports how many embeddings are currently stored.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return 0
	}
	return s.collection.Count()
}
