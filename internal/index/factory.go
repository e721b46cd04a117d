package index

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/54b3r/rockybot-go/internal/store"
)

// Backend selects the index implementation.
type Backend string

const (
	// BackendMemory is the in-process brute-force index.
	BackendMemory Backend = "memory"
	// BackendQdrant stores vectors in Qdrant.
	BackendQdrant Backend = "qdrant"
)

// NewFromEnv builds the index selected by INDEX_BACKEND (memory | qdrant,
// default memory) persisting through s.
//
// Environment variables:
//
//	INDEX_BACKEND        = memory | qdrant
//	KB_KEY               = storage key (default: knowledge-base)
//	EMBEDDING_BATCH_SIZE = chunks per embedding call (default: 64)
//	QDRANT_HOST, QDRANT_PORT, QDRANT_COLLECTION, QDRANT_API_KEY, QDRANT_TLS
func NewFromEnv(s store.Store) (Index, error) {
	batch, err := envInt("EMBEDDING_BATCH_SIZE", DefaultBatchSize)
	if err != nil {
		return nil, err
	}
	key := getEnv("KB_KEY", DefaultKey)

	switch Backend(strings.ToLower(getEnv("INDEX_BACKEND", string(BackendMemory)))) {
	case BackendMemory:
		return NewMemory(s, MemoryConfig{Key: key, BatchSize: batch})
	case BackendQdrant:
		port, err := envInt("QDRANT_PORT", 6334)
		if err != nil {
			return nil, err
		}
		return NewQdrant(QdrantConfig{
			Host:       os.Getenv("QDRANT_HOST"),
			Port:       port,
			Collection: os.Getenv("QDRANT_COLLECTION"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
			BatchSize:  batch,
			MetaKey:    key + "/qdrant",
		}, s)
	default:
		return nil, fmt.Errorf("index: unsupported INDEX_BACKEND %q: must be one of memory, qdrant", os.Getenv("INDEX_BACKEND"))
	}
}

// getEnv returns the value of the environment variable key, or fallback if unset.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt parses an integer environment variable, returning fallback if unset.
func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("index: invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
