// Package memory provides a tiered, in-process memory store for agent
// runs.
//
// Entries enter short-term memory with a lexically-scored importance
// and decay over time. A consolidation pass promotes what stays
// important to long-term memory, prunes what nobody looked at, and —
// once long-term memory nears its cap — compresses clusters of
// near-duplicate low-importance entries into single merged entries.
// A small working-memory window keeps the most recently touched
// entries at hand.
//
// Architecture:
//   - Store: owns the tiers; one mutex serializes all access so the
//     background consolidation loop and callers can share it
//   - Embedder: text-to-vector conversion (mock for tests, onnx for a
//     local model)
//   - Archiver: optional sink for entries the store deletes
//     (archive/chromem keeps them searchable)
//
// Search ranks by a relevance score blending cosine similarity,
// importance, recency and access frequency. Export/Import hand plain
// snapshots of both tiers to whatever persistence layer the host
// application uses.
package memory
