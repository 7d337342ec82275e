// Package chromem archives memory entries into chromem-go, a pure Go
// embedded vector database. The memory store deletes entries when it
// evicts, prunes or compresses; handing them to this archive first
// keeps them searchable by embedding after they leave the live tiers.
package chromem

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/forgeline/pursuit/memory"
)

const collectionName = "archived_memories"

// Archive implements memory.Archiver on a chromem collection.
type Archive struct {
	mu  sync.Mutex
	col *chromem.Collection
}

// New creates an in-memory archive.
func New() (*Archive, error) {
	return fromDB(chromem.NewDB())
}

// NewPersistent creates an archive backed by files under path.
func NewPersistent(path string) (*Archive, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open persistent db: %w", err)
	}
	return fromDB(db)
}

func fromDB(db *chromem.DB) (*Archive, error) {
	// No embedding func: the store supplies embeddings.
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Archive{col: col}, nil
}

// Archive stores the entries with their embeddings. Entries without an
// embedding are skipped; the live store always embeds before deleting.
func (a *Archive) Archive(ctx context.Context, entries []*memory.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, entry := range entries {
		if len(entry.Embedding) == 0 {
			continue
		}
		doc := chromem.Document{
			ID:        entry.ID,
			Content:   entry.Content,
			Embedding: entry.Embedding,
			Metadata: map[string]string{
				"kind":        string(entry.Kind),
				"importance":  strconv.FormatFloat(entry.Importance, 'f', 4, 64),
				"created_at":  entry.CreatedAt.Format(time.RFC3339),
				"archived_at": time.Now().Format(time.RFC3339),
			},
		}
		if err := a.col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("archive entry %s: %w", entry.ID, err)
		}
	}
	return nil
}

// Hit is one archive search result.
type Hit struct {
	ID         string
	Content    string
	Kind       memory.Kind
	Similarity float32
}

// Search returns the archived entries most similar to the embedding.
func (a *Archive) Search(ctx context.Context, embedding []float32, limit int) ([]Hit, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// chromem rejects nResults larger than the collection.
	if count := a.col.Count(); limit > count {
		limit = count
	}
	if limit == 0 {
		return nil, nil
	}

	results, err := a.col.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		hits = append(hits, Hit{
			ID:         res.ID,
			Content:    res.Content,
			Kind:       memory.Kind(res.Metadata["kind"]),
			Similarity: res.Similarity,
		})
	}
	return hits, nil
}

// Count reports how many entries the archive holds.
func (a *Archive) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.col.Count()
}
