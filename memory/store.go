package memory

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
)

// Store owns the short-term, long-term and working memory tiers.
// All operations serialize on a single mutex; the background
// consolidation loop and alert-style callers share the same
// collections, so nothing here is safe to touch without the lock.
type Store struct {
	mu       sync.Mutex
	embedder Embedder
	archive  Archiver
	config   *Config

	shortTerm map[string]*Entry
	longTerm  map[string]*Entry
	working   []*Entry

	// embedCache memoizes content -> embedding so repeated stores and
	// searches over the same text skip the embedder.
	embedCache *ristretto.Cache

	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option configures the store.
type Option func(*Store)

// WithArchive hands evicted, pruned and compressed-away entries to an
// archive before deletion.
func WithArchive(a Archiver) Option {
	return func(s *Store) {
		s.archive = a
	}
}

// NewStore creates a memory store over the given embedder.
func NewStore(embedder Embedder, config *Config, opts ...Option) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     32 << 20, // embeddings are small; 32MB is generous
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	s := &Store{
		embedder:   embedder,
		config:     config,
		shortTerm:  make(map[string]*Entry),
		longTerm:   make(map[string]*Entry),
		embedCache: cache,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the background consolidation loop. It is a no-op when
// ConsolidationInterval is zero.
func (s *Store) Start() {
	if s.config.ConsolidationInterval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.config.ConsolidationInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats := s.Consolidate()
				log.Printf("[MEMORY] Consolidation pass: promoted=%d pruned=%d compressed=%d",
					stats.Consolidated, stats.Pruned, stats.Compressed)
			case <-s.stop:
				return
			}
		}
	}()
}

// Close stops the background loop and clears all collections. Calling
// it more than once is safe.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()

		s.mu.Lock()
		s.shortTerm = make(map[string]*Entry)
		s.longTerm = make(map[string]*Entry)
		s.working = nil
		s.mu.Unlock()

		s.embedCache.Close()
	})
}

// Store embeds the content, scores its initial importance from lexical
// cues, links up to three sufficiently-similar existing entries as
// associations, and inserts the entry into short-term memory. The
// short-term cap is enforced immediately by evicting the
// lowest-importance entries.
func (s *Store) Store(ctx context.Context, content string, kind Kind, metadata map[string]interface{}) (*Entry, error) {
	embedding, err := s.embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	// Detach from the caller's map so later mutations cannot reach
	// store state.
	var meta map[string]interface{}
	if metadata != nil {
		meta = make(map[string]interface{}, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}

	now := time.Now()
	entry := &Entry{
		ID:           uuid.New().String(),
		Content:      content,
		Embedding:    embedding,
		CreatedAt:    now,
		Kind:         kind,
		Importance:   scoreImportance(content),
		LastAccessed: now,
		Metadata:     meta,
	}

	s.mu.Lock()
	entry.Associations = s.findAssociationsLocked(embedding, 3)
	s.shortTerm[entry.ID] = entry
	evicted := s.enforceShortTermCapLocked()
	result := entry.clone()
	s.mu.Unlock()

	if len(evicted) > 0 {
		log.Printf("[MEMORY] Evicted %d low-importance entries from short-term", len(evicted))
		s.offerToArchive(ctx, evicted)
	}

	return result, nil
}

// Search embeds the query, scans both tiers, keeps entries meeting the
// similarity threshold, and ranks them by relevance:
//
//	0.6*similarity + 0.2*importance + 0.1*recency + 0.1*frequency
//
// where recency = exp(-hoursSinceAccess/24) and frequency =
// min(1, accessCount/10).
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	queryVec, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	now := time.Now()

	s.mu.Lock()
	results := make([]SearchResult, 0, limit)
	scan := func(entries map[string]*Entry) {
		for _, entry := range entries {
			sim := CosineSimilarity(queryVec, entry.Embedding)
			if sim < s.config.SimilarityThreshold {
				continue
			}
			recency := math.Exp(-now.Sub(entry.LastAccessed).Hours() / 24)
			frequency := math.Min(1, float64(entry.AccessCount)/10)
			relevance := 0.6*sim + 0.2*entry.Importance + 0.1*recency + 0.1*frequency
			results = append(results, SearchResult{
				Entry:      entry.clone(),
				Similarity: sim,
				Relevance:  relevance,
			})
		}
	}
	scan(s.shortTerm)
	scan(s.longTerm)
	s.mu.Unlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Retrieve looks up an entry by ID in either tier. A successful lookup
// counts as an access: the count goes up, the last-accessed timestamp
// refreshes, and importance gets a small nudge.
func (s *Store) Retrieve(id string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.shortTerm[id]
	if !ok {
		entry, ok = s.longTerm[id]
	}
	if !ok {
		return nil, ErrNotFound
	}

	entry.AccessCount++
	entry.LastAccessed = time.Now()
	entry.Importance = math.Min(1.0, entry.Importance+0.05)

	return entry.clone(), nil
}

// AddToWorkingMemory pushes an entry to the front of the bounded
// working-memory sequence, dropping the oldest when full.
func (s *Store) AddToWorkingMemory(entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	max := s.config.MaxWorking
	if max <= 0 {
		max = 10
	}
	s.working = append([]*Entry{entry.clone()}, s.working...)
	if len(s.working) > max {
		s.working = s.working[:max]
	}
}

// WorkingMemory returns a copy of the working-memory sequence, newest
// first.
func (s *Store) WorkingMemory() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry, len(s.working))
	for i, e := range s.working {
		out[i] = e.clone()
	}
	return out
}

// Counts reports the current tier sizes.
func (s *Store) Counts() (shortTerm, longTerm, working int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shortTerm), len(s.longTerm), len(s.working)
}

// Consolidate runs one promotion/decay/prune pass over short-term
// memory. Importance decays exponentially with hours since last
// access; what survives at or above the consolidation threshold moves
// to long-term, what falls below the prune floor with fewer than two
// accesses is deleted, everything else stays put with its decayed
// score. Compression kicks in when long-term occupancy crosses 90%.
func (s *Store) Consolidate() ConsolidationStats {
	now := time.Now()
	var stats ConsolidationStats
	var discarded []*Entry

	s.mu.Lock()
	for id, entry := range s.shortTerm {
		hours := now.Sub(entry.LastAccessed).Hours()
		if hours < 0 {
			hours = 0
		}
		entry.Importance *= math.Exp(-s.config.DecayRate * hours)

		switch {
		case entry.Importance >= s.config.ConsolidationThreshold:
			delete(s.shortTerm, id)
			s.longTerm[id] = entry
			stats.Consolidated++
		case entry.Importance < 0.1 && entry.AccessCount < 2:
			delete(s.shortTerm, id)
			discarded = append(discarded, entry)
			stats.Pruned++
		}
	}

	if len(s.longTerm) > s.config.MaxLongTerm*9/10 {
		merged, originals := s.compressLocked()
		stats.Compressed = merged
		discarded = append(discarded, originals...)
	}
	s.mu.Unlock()

	if len(discarded) > 0 {
		s.offerToArchive(context.Background(), discarded)
	}
	return stats
}

// compressLocked merges the lowest-importance 10% of long-term entries
// into synthetic compressed entries. Entries are greedily grouped into
// clusters whose pairwise cosine similarity exceeds 0.9; each cluster
// of size > 1 is replaced by one merged entry carrying the group's max
// importance, summed access count and unioned associations. Returns
// the number of entries merged away and the removed originals.
func (s *Store) compressLocked() (int, []*Entry) {
	candidates := make([]*Entry, 0, len(s.longTerm))
	for _, entry := range s.longTerm {
		candidates = append(candidates, entry)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Importance < candidates[j].Importance
	})

	n := len(candidates) / 10
	if n < 2 {
		return 0, nil
	}
	candidates = candidates[:n]

	used := make(map[string]bool)
	var removed []*Entry
	mergedAway := 0

	for i, seed := range candidates {
		if used[seed.ID] {
			continue
		}
		cluster := []*Entry{seed}
		for _, other := range candidates[i+1:] {
			if used[other.ID] {
				continue
			}
			similar := true
			for _, member := range cluster {
				if CosineSimilarity(member.Embedding, other.Embedding) <= 0.9 {
					similar = false
					break
				}
			}
			if similar {
				cluster = append(cluster, other)
			}
		}
		if len(cluster) < 2 {
			continue
		}

		merged := mergeCluster(cluster)
		for _, member := range cluster {
			used[member.ID] = true
			delete(s.longTerm, member.ID)
			removed = append(removed, member)
		}
		s.longTerm[merged.ID] = merged
		mergedAway += len(cluster)
	}

	return mergedAway, removed
}

// mergeCluster builds the synthetic compressed entry for one cluster.
func mergeCluster(cluster []*Entry) *Entry {
	var contents []string
	var maxImportance float64
	accessSum := 0
	assocSet := make(map[string]bool)
	oldest := cluster[0].CreatedAt

	for _, member := range cluster {
		contents = append(contents, member.Content)
		if member.Importance > maxImportance {
			maxImportance = member.Importance
		}
		accessSum += member.AccessCount
		for _, a := range member.Associations {
			assocSet[a] = true
		}
		if member.CreatedAt.Before(oldest) {
			oldest = member.CreatedAt
		}
	}

	assocs := make([]string, 0, len(assocSet))
	for a := range assocSet {
		assocs = append(assocs, a)
	}
	sort.Strings(assocs)

	content := strings.Join(contents, " | ")
	if len(content) > 500 {
		content = content[:500]
	}

	return &Entry{
		ID:           uuid.New().String(),
		Content:      content,
		Embedding:    cluster[0].Embedding,
		CreatedAt:    oldest,
		Kind:         cluster[0].Kind,
		Importance:   maxImportance,
		AccessCount:  accessSum,
		LastAccessed: time.Now(),
		Metadata:     map[string]interface{}{"compressed": true, "merged_count": len(cluster)},
		Associations: assocs,
	}
}

// Export returns a plain snapshot of both tiers.
func (s *Store) Export() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{ExportedAt: time.Now()}
	for _, entry := range s.shortTerm {
		snap.ShortTerm = append(snap.ShortTerm, entry.clone())
	}
	for _, entry := range s.longTerm {
		snap.LongTerm = append(snap.LongTerm, entry.clone())
	}
	return snap
}

// Import replaces both tiers with the snapshot's contents.
func (s *Store) Import(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shortTerm = make(map[string]*Entry, len(snap.ShortTerm))
	for _, entry := range snap.ShortTerm {
		s.shortTerm[entry.ID] = entry.clone()
	}
	s.longTerm = make(map[string]*Entry, len(snap.LongTerm))
	for _, entry := range snap.LongTerm {
		s.longTerm[entry.ID] = entry.clone()
	}
}

// embed returns the embedding for text, hitting the cache first.
func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := s.embedCache.Get(text); ok {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.embedCache.Set(text, vec, int64(len(vec)*4))
	return vec, nil
}

// findAssociationsLocked returns the IDs of up to max existing entries
// whose similarity to the embedding exceeds the threshold, best first.
func (s *Store) findAssociationsLocked(embedding []float32, max int) []string {
	type scored struct {
		id  string
		sim float64
	}
	var hits []scored
	scan := func(entries map[string]*Entry) {
		for id, entry := range entries {
			if sim := CosineSimilarity(embedding, entry.Embedding); sim > s.config.SimilarityThreshold {
				hits = append(hits, scored{id, sim})
			}
		}
	}
	scan(s.shortTerm)
	scan(s.longTerm)

	sort.Slice(hits, func(i, j int) bool { return hits[i].sim > hits[j].sim })
	if len(hits) > max {
		hits = hits[:max]
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids
}

// enforceShortTermCapLocked evicts the lowest-importance entries until
// the short-term tier fits its cap, returning what was removed.
func (s *Store) enforceShortTermCapLocked() []*Entry {
	if len(s.shortTerm) <= s.config.MaxShortTerm {
		return nil
	}
	entries := make([]*Entry, 0, len(s.shortTerm))
	for _, entry := range s.shortTerm {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Importance < entries[j].Importance
	})

	excess := len(s.shortTerm) - s.config.MaxShortTerm
	evicted := entries[:excess]
	for _, entry := range evicted {
		delete(s.shortTerm, entry.ID)
	}
	return evicted
}

// offerToArchive hands entries to the archive, if one is configured.
func (s *Store) offerToArchive(ctx context.Context, entries []*Entry) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Archive(ctx, entries); err != nil {
		log.Printf("[MEMORY] Archive failed for %d entries: %v", len(entries), err)
	}
}

// urgencyWords and actionWords are the lexical cues that raise an
// entry's initial importance.
var urgencyWords = []string{"urgent", "critical", "immediately", "asap", "deadline", "must", "error", "failed", "failure"}

var actionWords = []string{"do", "execute", "complete", "finish", "fix", "create", "write", "build", "deploy"}

// scoreImportance computes initial importance from lexical cues:
// base 0.5, +0.2 when urgency wording is present, +0.1 for action
// wording, capped at 1.0.
func scoreImportance(content string) float64 {
	importance := 0.5
	lower := strings.ToLower(content)

	for _, w := range urgencyWords {
		if strings.Contains(lower, w) {
			importance += 0.2
			break
		}
	}
	for _, w := range actionWords {
		if strings.Contains(lower, w) {
			importance += 0.1
			break
		}
	}

	return math.Min(1.0, importance)
}
