package memory

import (
	"context"
	"errors"
	"time"
)

// Kind classifies what a memory entry records.
type Kind string

const (
	// KindEpisodic records something that happened (a task outcome, an
	// observation).
	KindEpisodic Kind = "episodic"

	// KindSemantic records a fact.
	KindSemantic Kind = "semantic"

	// KindProcedural records how to do something.
	KindProcedural Kind = "procedural"
)

// Entry is one memory record. Entries are created by Store.Store and
// move through a lifecycle: short-term on creation, promoted to
// long-term by consolidation, pruned once importance and access count
// fall below the floor, or merged into a synthetic compressed entry.
//
// Associations are weak references: IDs of related entries, not
// ownership. An associated entry may have been pruned since.
type Entry struct {
	ID           string                 `json:"id"`
	Content      string                 `json:"content"`
	Embedding    []float32              `json:"embedding,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	Kind         Kind                   `json:"kind"`
	Importance   float64                `json:"importance"`
	AccessCount  int                    `json:"access_count"`
	LastAccessed time.Time              `json:"last_accessed"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Associations []string               `json:"associations,omitempty"`
}

// clone returns a deep-enough copy so callers never alias store state.
func (e *Entry) clone() *Entry {
	c := *e
	if e.Embedding != nil {
		c.Embedding = append([]float32(nil), e.Embedding...)
	}
	if e.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	if e.Associations != nil {
		c.Associations = append([]string(nil), e.Associations...)
	}
	return &c
}

// SearchResult pairs an entry with its similarity to the query and the
// combined relevance score used for ranking.
type SearchResult struct {
	Entry      *Entry
	Similarity float64
	Relevance  float64
}

// Snapshot is a plain copy of both memory tiers, the only persistence
// hook. The storage medium is the caller's business.
type Snapshot struct {
	ShortTerm  []*Entry  `json:"short_term"`
	LongTerm   []*Entry  `json:"long_term"`
	ExportedAt time.Time `json:"exported_at"`
}

// ConsolidationStats reports what one consolidation pass did.
type ConsolidationStats struct {
	Consolidated int // entries promoted short-term -> long-term
	Pruned       int // entries deleted outright
	Compressed   int // entries merged away by compression
}

// Embedder converts text to a fixed-length vector. Implementations:
// mock (testing, deterministic), onnx (local all-MiniLM model).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Archiver receives entries the store is about to delete (evictions,
// prunes, compression originals). Archive failures are logged and
// otherwise ignored; the store never blocks its lifecycle on the
// archive. Implementations: archive/chromem.
type Archiver interface {
	Archive(ctx context.Context, entries []*Entry) error
}

// ErrNotFound is returned by Retrieve for an unknown entry ID.
var ErrNotFound = errors.New("memory: entry not found")

// Config holds store tuning knobs.
type Config struct {
	// MaxShortTerm caps the short-term tier. On overflow the
	// lowest-importance entries are evicted. Default: 100.
	MaxShortTerm int

	// MaxLongTerm caps the long-term tier. Compression triggers at 90%
	// occupancy. Default: 1000.
	MaxLongTerm int

	// MaxWorking bounds the working-memory sequence. Default: 10.
	MaxWorking int

	// SimilarityThreshold is the minimum cosine similarity for search
	// hits and association linking [0.0-1.0]. Default: 0.5.
	// Tiny models (all-MiniLM-L6-v2) produce lower scores than
	// production embedders, so tune per embedder.
	SimilarityThreshold float64

	// ConsolidationThreshold is the decayed importance at or above
	// which a short-term entry is promoted to long-term. Default: 0.6.
	ConsolidationThreshold float64

	// DecayRate scales exponential importance decay per elapsed hour.
	// Default: 0.05.
	DecayRate float64

	// ConsolidationInterval drives the background consolidation loop
	// started by Start. Zero disables the loop; Consolidate can still
	// be called manually.
	ConsolidationInterval time.Duration
}

// DefaultConfig returns store defaults suitable for a single agent.
func DefaultConfig() *Config {
	return &Config{
		MaxShortTerm:           100,
		MaxLongTerm:            1000,
		MaxWorking:             10,
		SimilarityThreshold:    0.5,
		ConsolidationThreshold: 0.6,
		DecayRate:              0.05,
	}
}
