package chromem_test

import (
	"context"
	"testing"
	"time"

	"github.com/forgeline/pursuit/memory"
	"github.com/forgeline/pursuit/memory/archive/chromem"
)

func entry(id, content string, vec []float32, kind memory.Kind) *memory.Entry {
	now := time.Now()
	return &memory.Entry{
		ID:           id,
		Content:      content,
		Embedding:    vec,
		CreatedAt:    now,
		Kind:         kind,
		Importance:   0.4,
		LastAccessed: now,
	}
}

func TestArchive_RoundTrip(t *testing.T) {
	arch, err := chromem.New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	err = arch.Archive(ctx, []*memory.Entry{
		entry("near", "deploy finished cleanly", []float32{1, 0, 0}, memory.KindEpisodic),
		entry("far", "unrelated trivia", []float32{0, 0, 1}, memory.KindSemantic),
	})
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if got := arch.Count(); got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}

	hits, err := arch.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].ID != "near" || hits[0].Content != "deploy finished cleanly" {
		t.Errorf("wrong hit: %+v", hits[0])
	}
	if hits[0].Kind != memory.KindEpisodic {
		t.Errorf("kind should survive the round trip, got %s", hits[0].Kind)
	}

	// A limit past the collection size is capped, not an error.
	hits, err = arch.Search(ctx, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Search with oversized limit failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "near" {
		t.Errorf("most similar hit should rank first, got %s", hits[0].ID)
	}
}

func TestArchive_SearchEmpty(t *testing.T) {
	arch, err := chromem.New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	hits, err := arch.Search(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search on empty archive failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestArchive_SkipsEntriesWithoutEmbedding(t *testing.T) {
	arch, err := chromem.New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = arch.Archive(context.Background(), []*memory.Entry{
		{ID: "bare", Content: "no vector"},
	})
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if got := arch.Count(); got != 0 {
		t.Errorf("entry without embedding should be skipped, Count = %d", got)
	}
}

func TestArchive_PersistentReopen(t *testing.T) {
	dir := t.TempDir()

	arch, err := chromem.NewPersistent(dir)
	if err != nil {
		t.Fatalf("NewPersistent failed: %v", err)
	}
	err = arch.Archive(context.Background(), []*memory.Entry{
		entry("kept", "survives restarts", []float32{0, 1, 0}, memory.KindProcedural),
	})
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	reopened, err := chromem.NewPersistent(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if got := reopened.Count(); got != 1 {
		t.Fatalf("reopened Count = %d, want 1", got)
	}
	hits, err := reopened.Search(context.Background(), []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("Search after reopen failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "kept" {
		t.Fatalf("archived entry should survive reopen, got %+v", hits)
	}
}
