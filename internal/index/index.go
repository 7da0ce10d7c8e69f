// Package index implements the in-memory semantic index over schema
// documents. The corpus is small (one document per table) so vectors are
// held in a slice and searched by exhaustive cosine similarity.
package index

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/edstats/schema-chat/internal/errors"
	"github.com/edstats/schema-chat/internal/schema"
)

// Embedder is the subset of the embedding provider the index needs
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Match pairs a document with its similarity score for one query
type Match struct {
	Document schema.Document
	Score    float64
}

type entry struct {
	doc    schema.Document
	vector []float32
}

// Index holds embedded schema documents. Build is one-shot per session;
// Search fails until Build has succeeded.
type Index struct {
	embedder Embedder

	mu      sync.RWMutex
	entries []entry
	built   bool
}

// New creates an empty index backed by the given embedder
func New(embedder Embedder) *Index {
	return &Index{embedder: embedder}
}

// Build embeds every document and replaces the index contents. A failure on
// any document fails the whole build and leaves the index unbuilt.
func (idx *Index) Build(ctx context.Context, docs []schema.Document) error {
	if len(docs) == 0 {
		return errors.New(errors.ErrTypeEmbedding, "no schema documents to index").
			WithSuggestion("Check that the database contains at least one table")
	}

	entries := make([]entry, 0, len(docs))

	for _, doc := range docs {
		vector, err := idx.embedder.GenerateEmbedding(ctx, doc.Content)
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeEmbedding,
				"failed to embed document for table %s", doc.TableName)
		}

		entries = append(entries, entry{doc: doc, vector: vector})
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries = entries
	idx.built = true

	return nil
}

// IsBuilt reports whether the index has been successfully built
func (idx *Index) IsBuilt() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.built
}

// Len returns the number of indexed documents
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.entries)
}

// Search embeds the query and returns the top k documents by cosine
// similarity, highest first. k is capped at the corpus size.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]Match, error) {
	idx.mu.RLock()
	built := idx.built
	idx.mu.RUnlock()

	if !built {
		return nil, errors.New(errors.ErrTypeEmbedding, "semantic index has not been built")
	}

	if k <= 0 {
		return nil, nil
	}

	queryVec, err := idx.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to embed search query")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := make([]Match, 0, len(idx.entries))
	for _, e := range idx.entries {
		matches = append(matches, Match{
			Document: e.doc,
			Score:    cosineSimilarity(queryVec, e.vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k > len(matches) {
		k = len(matches)
	}

	return matches[:k], nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
