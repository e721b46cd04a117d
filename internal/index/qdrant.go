package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/rockybot-go/internal/rag"
	"github.com/54b3r/rockybot-go/internal/store"
)

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name (default: rockybot).
	Collection string

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// BatchSize is the embedding and upsert batch size.
	BatchSize int

	// MetaKey is the store key holding the index metadata.
	MetaKey string
}

// qdrantMeta is the small record kept next to the collection so the index
// can answer Len and EmbedderName without a round trip.
type qdrantMeta struct {
	Embedder   string `json:"embedder"`
	Dimensions int    `json:"dimensions"`
	Count      int    `json:"count"`
}

// Payload field names.
const (
	fieldContent = "content"
	fieldSource  = "source"
	fieldChunkID = "chunk_id"
	fieldSeq     = "seq"
	fieldStart   = "start"
	fieldEnd     = "end"
	fieldOrder   = "order"
)

// QdrantIndex implements Index backed by a Qdrant collection.
type QdrantIndex struct {
	// mu guards meta and serialises mutations.
	mu sync.RWMutex

	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this index.
	cfg QdrantConfig

	// store persists meta.
	store store.Store

	// meta mirrors the persisted metadata.
	meta qdrantMeta
}

// NewQdrant connects to Qdrant. The collection is created lazily on the
// first write, once the vector size is known.
func NewQdrant(cfg QdrantConfig, s store.Store) (*QdrantIndex, error) {
	if s == nil {
		return nil, fmt.Errorf("qdrant: store must not be nil")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "rockybot"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MetaKey == "" {
		cfg.MetaKey = DefaultKey + "/qdrant"
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}
	return &QdrantIndex{client: client, cfg: cfg, store: s}, nil
}

// Client exposes the gRPC client for health checks.
func (q *QdrantIndex) Client() *qdrant.Client { return q.client }

// Len returns the number of points written through this index.
func (q *QdrantIndex) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.meta.Count
}

// EmbedderName returns the recorded embedding provider identity.
func (q *QdrantIndex) EmbedderName() string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.meta.Embedder
}

// CreateOrRebuild drops the collection and fills a new one with chunks.
func (q *QdrantIndex) CreateOrRebuild(ctx context.Context, chunks []rag.Chunk, emb rag.TextEmbedding) (int, error) {
	if len(chunks) == 0 {
		return 0, fmt.Errorf("index: create: %w", rag.ErrEmptyInput)
	}
	vectors, err := embedChunks(ctx, chunks, emb, q.cfg.BatchSize, 0)
	if err != nil {
		return 0, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.dropCollection(ctx); err != nil {
		return 0, err
	}
	q.meta = qdrantMeta{}
	if err := q.createCollection(ctx, len(vectors[0])); err != nil {
		return 0, err
	}
	if _, err := q.upsert(ctx, chunks, vectors, 0); err != nil {
		_ = q.dropCollection(ctx)
		return 0, err
	}

	next := qdrantMeta{Embedder: emb.Name(), Dimensions: len(vectors[0]), Count: len(chunks)}
	if err := q.saveMeta(ctx, next); err != nil {
		_ = q.dropCollection(ctx)
		return 0, err
	}
	q.meta = next
	return next.Count, nil
}

// Add appends chunks to the collection.
func (q *QdrantIndex) Add(ctx context.Context, chunks []rag.Chunk, emb rag.TextEmbedding) (int, error) {
	if len(chunks) == 0 {
		return 0, fmt.Errorf("index: add: %w", rag.ErrEmptyInput)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := checkEmbedder(q.meta.Embedder, emb); err != nil {
		return 0, err
	}
	vectors, err := embedChunks(ctx, chunks, emb, q.cfg.BatchSize, q.meta.Dimensions)
	if err != nil {
		return 0, err
	}
	if q.meta.Count == 0 {
		if err := q.dropCollection(ctx); err != nil {
			return 0, err
		}
		if err := q.createCollection(ctx, len(vectors[0])); err != nil {
			return 0, err
		}
	}

	ids, err := q.upsert(ctx, chunks, vectors, q.meta.Count)
	if err != nil {
		return 0, err
	}

	next := qdrantMeta{Embedder: emb.Name(), Dimensions: len(vectors[0]), Count: q.meta.Count + len(chunks)}
	if err := q.saveMeta(ctx, next); err != nil {
		q.deletePoints(ctx, ids)
		return 0, err
	}
	q.meta = next
	return next.Count, nil
}

// Query returns the k closest points, best first, ties by insertion order.
//
// Qdrant breaks score ties arbitrarily, so a first search finds the k-th
// score and a second one fetches every point at or above it; the merged
// set is then ranked locally.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, k int) ([]rag.Match, error) {
	q.mu.RLock()
	meta := q.meta
	q.mu.RUnlock()

	if k <= 0 || meta.Count == 0 {
		return nil, nil
	}
	if len(vector) != meta.Dimensions {
		return nil, fmt.Errorf("index: query vector has %d dimensions, index uses %d", len(vector), meta.Dimensions)
	}

	results, err := q.search(ctx, vector, uint64(k), nil)
	if err != nil {
		return nil, err
	}
	if len(results) == k && meta.Count > k {
		cutoff := results[len(results)-1].GetScore()
		results, err = q.search(ctx, vector, uint64(meta.Count), &cutoff)
		if err != nil {
			return nil, err
		}
	}
	return rankPoints(results, k), nil
}

// search runs a similarity query, optionally keeping only points scoring at
// least threshold.
func (q *QdrantIndex) search(ctx context.Context, vector []float32, limit uint64, threshold *float32) ([]*qdrant.ScoredPoint, error) {
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		ScoreThreshold: threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}
	return results, nil
}

// rankPoints converts scored points to matches ordered by score descending
// then insertion order ascending, and keeps the first k.
func rankPoints(points []*qdrant.ScoredPoint, k int) []rag.Match {
	type ranked struct {
		match rag.Match
		order int64
	}
	out := make([]ranked, 0, len(points))
	for _, r := range points {
		p := r.GetPayload()
		out = append(out, ranked{
			match: rag.Match{
				Chunk: rag.Chunk{
					ID:     p[fieldChunkID].GetStringValue(),
					Text:   p[fieldContent].GetStringValue(),
					Source: p[fieldSource].GetStringValue(),
					Seq:    int(p[fieldSeq].GetIntegerValue()),
					Start:  int(p[fieldStart].GetIntegerValue()),
					End:    int(p[fieldEnd].GetIntegerValue()),
				},
				Score: r.GetScore(),
			},
			order: p[fieldOrder].GetIntegerValue(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].match.Score != out[j].match.Score {
			return out[i].match.Score > out[j].match.Score
		}
		return out[i].order < out[j].order
	})
	if len(out) > k {
		out = out[:k]
	}

	matches := make([]rag.Match, len(out))
	for i, r := range out {
		matches[i] = r.match
	}
	return matches
}

// Persist re-writes the metadata record. Points are durable in Qdrant as
// soon as an upsert returns.
func (q *QdrantIndex) Persist(ctx context.Context) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.saveMeta(ctx, q.meta)
}

// Load reads the metadata record and verifies the collection still exists.
func (q *QdrantIndex) Load(ctx context.Context) error {
	data, err := q.store.Load(ctx, q.cfg.MetaKey)
	if errors.Is(err, store.ErrNotFound) {
		return rag.ErrNotFound
	}
	if err != nil {
		return &rag.PersistenceError{Op: "load", Key: q.cfg.MetaKey, Err: err}
	}
	var meta qdrantMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return &rag.PersistenceError{Op: "decode", Key: q.cfg.MetaKey, Err: err}
	}

	exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
	if err != nil {
		return &rag.PersistenceError{Op: "load", Key: q.cfg.Collection, Err: err}
	}
	if !exists {
		return rag.ErrNotFound
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.meta = meta
	return nil
}

// Clear drops the collection and the metadata record.
func (q *QdrantIndex) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.dropCollection(ctx); err != nil {
		return err
	}
	if err := q.store.Delete(ctx, q.cfg.MetaKey); err != nil {
		return &rag.PersistenceError{Op: "delete", Key: q.cfg.MetaKey, Err: err}
	}
	q.meta = qdrantMeta{}
	return nil
}

// Close closes the gRPC connection and the metadata store.
func (q *QdrantIndex) Close() error {
	return errors.Join(q.client.Close(), q.store.Close())
}

// createCollection creates the collection with cosine distance.
func (q *QdrantIndex) createCollection(ctx context.Context, dims int) error {
	err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return &rag.PersistenceError{Op: "create collection", Key: q.cfg.Collection, Err: err}
	}
	return nil
}

// dropCollection deletes the collection if it exists.
func (q *QdrantIndex) dropCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
	if err != nil {
		return &rag.PersistenceError{Op: "delete collection", Key: q.cfg.Collection, Err: err}
	}
	if !exists {
		return nil
	}
	if err := q.client.DeleteCollection(ctx, q.cfg.Collection); err != nil {
		return &rag.PersistenceError{Op: "delete collection", Key: q.cfg.Collection, Err: err}
	}
	return nil
}

// upsert writes chunks as points, numbering them from firstOrder, and
// returns the generated point IDs.
func (q *QdrantIndex) upsert(ctx context.Context, chunks []rag.Chunk, vectors [][]float32, firstOrder int) ([]*qdrant.PointId, error) {
	ids := make([]*qdrant.PointId, 0, len(chunks))
	for start := 0; start < len(chunks); start += q.cfg.BatchSize {
		end := min(start+q.cfg.BatchSize, len(chunks))
		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			c := chunks[i]
			id := qdrant.NewIDUUID(uuid.NewString())
			ids = append(ids, id)
			points = append(points, &qdrant.PointStruct{
				Id:      id,
				Vectors: qdrant.NewVectors(vectors[i]...),
				Payload: qdrant.NewValueMap(map[string]any{
					fieldContent: c.Text,
					fieldSource:  c.Source,
					fieldChunkID: c.ID,
					fieldSeq:     c.Seq,
					fieldStart:   c.Start,
					fieldEnd:     c.End,
					fieldOrder:   firstOrder + i,
				}),
			})
		}

		wait := true
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.cfg.Collection,
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			q.deletePoints(ctx, ids)
			return nil, &rag.PersistenceError{Op: "upsert", Key: q.cfg.Collection, Err: err}
		}
	}
	return ids, nil
}

// deletePoints removes points written by a failed mutation. Best effort.
func (q *QdrantIndex) deletePoints(ctx context.Context, ids []*qdrant.PointId) {
	if len(ids) == 0 {
		return
	}
	_, _ = q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.cfg.Collection,
		Points:         qdrant.NewPointsSelector(ids...),
	})
}

// saveMeta persists meta.
func (q *QdrantIndex) saveMeta(ctx context.Context, meta qdrantMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return &rag.PersistenceError{Op: "encode", Key: q.cfg.MetaKey, Err: err}
	}
	if err := q.store.Save(ctx, q.cfg.MetaKey, data); err != nil {
		return &rag.PersistenceError{Op: "save", Key: q.cfg.MetaKey, Err: err}
	}
	return nil
}
