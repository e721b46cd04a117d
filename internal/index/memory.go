package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/54b3r/rockybot-go/internal/rag"
	"github.com/54b3r/rockybot-go/internal/store"
)

// snapshotVersion is bumped whenever the snapshot layout changes.
const snapshotVersion = 1

// snapshot is the persisted form of a MemoryIndex.
type snapshot struct {
	Version    int     `json:"version"`
	Embedder   string  `json:"embedder"`
	Dimensions int     `json:"dimensions"`
	Entries    []entry `json:"entries"`
}

// entry is one indexed chunk.
type entry struct {
	Chunk  rag.Chunk `json:"chunk"`
	Vector []float32 `json:"vector"`
}

// MemoryIndex keeps every vector in memory and scores queries by brute-force
// cosine similarity. Its state is persisted as one JSON snapshot blob.
type MemoryIndex struct {
	// mu guards every field below.
	mu sync.RWMutex

	// store persists the snapshot.
	store store.Store

	// key is the storage key of the snapshot.
	key string

	// batchSize is the number of chunks embedded per call.
	batchSize int

	// embedder is the identity of the provider that built the index.
	embedder string

	// dims is the vector dimensionality, 0 when empty.
	dims int

	// entries are kept in insertion order, which breaks score ties.
	entries []entry
}

// MemoryConfig configures a MemoryIndex.
type MemoryConfig struct {
	// Key is the storage key. Defaults to DefaultKey.
	Key string
	// BatchSize is the embedding batch size. Defaults to DefaultBatchSize.
	BatchSize int
}

// NewMemory returns an empty MemoryIndex persisted through s.
func NewMemory(s store.Store, cfg MemoryConfig) (*MemoryIndex, error) {
	if s == nil {
		return nil, fmt.Errorf("index: store must not be nil")
	}
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &MemoryIndex{store: s, key: cfg.Key, batchSize: cfg.BatchSize}, nil
}

// Len returns the number of entries.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// EmbedderName returns the recorded embedding provider identity.
func (m *MemoryIndex) EmbedderName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.embedder
}

// CreateOrRebuild replaces the index with chunks.
func (m *MemoryIndex) CreateOrRebuild(ctx context.Context, chunks []rag.Chunk, emb rag.TextEmbedding) (int, error) {
	if len(chunks) == 0 {
		return 0, fmt.Errorf("index: create: %w", rag.ErrEmptyInput)
	}
	vectors, err := embedChunks(ctx, chunks, emb, m.batchSize, 0)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prevEmbedder, prevDims, prevEntries := m.embedder, m.dims, m.entries
	m.embedder, m.dims = emb.Name(), len(vectors[0])
	m.entries = make([]entry, len(chunks))
	for i := range chunks {
		m.entries[i] = entry{Chunk: chunks[i], Vector: vectors[i]}
	}

	if err := m.persistLocked(ctx); err != nil {
		m.embedder, m.dims, m.entries = prevEmbedder, prevDims, prevEntries
		return 0, err
	}
	return len(m.entries), nil
}

// Add appends chunks to the index.
func (m *MemoryIndex) Add(ctx context.Context, chunks []rag.Chunk, emb rag.TextEmbedding) (int, error) {
	if len(chunks) == 0 {
		return 0, fmt.Errorf("index: add: %w", rag.ErrEmptyInput)
	}

	m.mu.RLock()
	recorded, dims := m.embedder, m.dims
	m.mu.RUnlock()
	if err := checkEmbedder(recorded, emb); err != nil {
		return 0, err
	}

	vectors, err := embedChunks(ctx, chunks, emb, m.batchSize, dims)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check under the write lock: a concurrent Clear or rebuild may have
	// changed the recorded provider while we were embedding.
	if err := checkEmbedder(m.embedder, emb); err != nil {
		return 0, err
	}
	if m.dims != 0 && m.dims != len(vectors[0]) {
		return 0, fmt.Errorf("index: vectors have %d dimensions, index uses %d", len(vectors[0]), m.dims)
	}

	prevLen, prevEmbedder, prevDims := len(m.entries), m.embedder, m.dims
	m.embedder, m.dims = emb.Name(), len(vectors[0])
	for i := range chunks {
		m.entries = append(m.entries, entry{Chunk: chunks[i], Vector: vectors[i]})
	}

	if err := m.persistLocked(ctx); err != nil {
		m.entries = m.entries[:prevLen]
		m.embedder, m.dims = prevEmbedder, prevDims
		return 0, err
	}
	return len(m.entries), nil
}

// Query returns the k entries most similar to vector, best first. Equal
// scores keep insertion order.
func (m *MemoryIndex) Query(_ context.Context, vector []float32, k int) ([]rag.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	if len(vector) != m.dims {
		return nil, fmt.Errorf("index: query vector has %d dimensions, index uses %d", len(vector), m.dims)
	}

	matches := make([]rag.Match, len(m.entries))
	for i, e := range m.entries {
		matches[i] = rag.Match{Chunk: e.Chunk, Score: cosine(vector, e.Vector)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Persist writes the snapshot to the store.
func (m *MemoryIndex) Persist(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.persistLocked(ctx)
}

func (m *MemoryIndex) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(snapshot{
		Version:    snapshotVersion,
		Embedder:   m.embedder,
		Dimensions: m.dims,
		Entries:    m.entries,
	})
	if err != nil {
		return &rag.PersistenceError{Op: "encode", Key: m.key, Err: err}
	}
	if err := m.store.Save(ctx, m.key, data); err != nil {
		return &rag.PersistenceError{Op: "save", Key: m.key, Err: err}
	}
	return nil
}

// Load replaces the in-memory state with the persisted snapshot.
func (m *MemoryIndex) Load(ctx context.Context) error {
	data, err := m.store.Load(ctx, m.key)
	if errors.Is(err, store.ErrNotFound) {
		return rag.ErrNotFound
	}
	if err != nil {
		return &rag.PersistenceError{Op: "load", Key: m.key, Err: err}
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return &rag.PersistenceError{Op: "decode", Key: m.key, Err: err}
	}
	if snap.Version != snapshotVersion {
		return &rag.PersistenceError{Op: "decode", Key: m.key,
			Err: fmt.Errorf("unsupported snapshot version %d", snap.Version)}
	}
	for i, e := range snap.Entries {
		if len(e.Vector) != snap.Dimensions {
			return &rag.PersistenceError{Op: "decode", Key: m.key,
				Err: fmt.Errorf("entry %d has %d dimensions, snapshot declares %d", i, len(e.Vector), snap.Dimensions)}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedder, m.dims, m.entries = snap.Embedder, snap.Dimensions, snap.Entries
	return nil
}

// Clear deletes the snapshot and empties the index. The in-memory state is
// kept when the durable delete fails so the two never disagree.
func (m *MemoryIndex) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(ctx, m.key); err != nil {
		return &rag.PersistenceError{Op: "delete", Key: m.key, Err: err}
	}
	m.embedder, m.dims, m.entries = "", 0, nil
	return nil
}

// Close closes the underlying store.
func (m *MemoryIndex) Close() error {
	return m.store.Close()
}

// cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector.
func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
