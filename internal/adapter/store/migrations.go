package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"pdfrag/config"
	"pdfrag/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyInfo          = []byte("info")
)

// Expectation describes the embedding setup a loaded index must match.
// Zero fields are not checked.
type Expectation struct {
	Dimension int
	Metric    domain.Metric
	Model     string
}

// ComputeConfigHash computes a hash of index-relevant configuration.
// Changes to this hash indicate the index should be rebuilt.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		ChunkMaxSize int    `json:"chunk_max_size"`
		ChunkOverlap int    `json:"chunk_overlap"`
		Metric       string `json:"metric"`
		EmbProvider  string `json:"emb_provider"`
		EmbModel     string `json:"emb_model"`
	}{
		ChunkMaxSize: cfg.Chunk.MaxSize,
		ChunkOverlap: cfg.Chunk.Overlap,
		Metric:       cfg.Index.Metric,
		EmbProvider:  cfg.Embedding.Provider,
		EmbModel:     cfg.Embedding.Model,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// CompatibilityResult describes whether a persisted index can be served.
type CompatibilityResult struct {
	NeedsRebuild bool   // the index cannot be searched with the current setup
	Stale        bool   // searchable, but built with different settings
	Reason       string
}

// CheckCompatibility compares what an index declares about itself with what
// the caller is about to query it with.
func CheckCompatibility(version int, info domain.IndexInfo, configHash string, expect Expectation) *CompatibilityResult {
	result := &CompatibilityResult{}

	switch {
	case version == 0:
		result.NeedsRebuild = true
		result.Reason = "missing schema version"
	case version > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("index created by newer version (v%d > v%d)", version, CurrentSchemaVersion)
	case version < CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", version, CurrentSchemaVersion)
	case expect.Dimension != 0 && info.Dimension != expect.Dimension:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("index dimension %d does not match embedding dimension %d", info.Dimension, expect.Dimension)
	case expect.Metric != "" && info.Metric != expect.Metric:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("index metric %q does not match configured metric %q", info.Metric, expect.Metric)
	case expect.Model != "" && info.EmbeddingModel != expect.Model:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("index embedded with %q, configured model is %q", info.EmbeddingModel, expect.Model)
	}
	if result.NeedsRebuild {
		return result
	}

	if configHash != "" && info.ConfigHash != "" && configHash != info.ConfigHash {
		result.Stale = true
		result.Reason = "index configuration changed"
	}
	return result
}
