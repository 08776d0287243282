package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"pdfrag/config"
	"pdfrag/internal/adapter/memstore"
	"pdfrag/internal/domain"
)

var (
	bucketMeta    = []byte("meta")
	bucketEntries = []byte("entries")
)

const openTimeout = 5 * time.Second

// BoltIndexStore persists a FlatIndex as a single bbolt file inside an index directory.
type BoltIndexStore struct {
	configHash string
	logger     *slog.Logger
}

// NewBoltIndexStore returns a store that stamps persisted indexes with
// configHash and warns when a loaded index carries a different one.
func NewBoltIndexStore(configHash string, logger *slog.Logger) *BoltIndexStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BoltIndexStore{configHash: configHash, logger: logger}
}

type storedEntry struct {
	Vector []float32    `json:"v"`
	Chunk  domain.Chunk `json:"chunk"`
}

// Persist writes idx to dir/index.db, replacing any previous index atomically.
func (s *BoltIndexStore) Persist(idx *memstore.FlatIndex, dir string) (err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*.db")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	db, err := bbolt.Open(tmpPath, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return fmt.Errorf("failed to open bolt db: %w", err)
	}

	info := idx.Info()
	info.SchemaVersion = CurrentSchemaVersion
	info.Entries = idx.Len()
	info.ConfigHash = s.configHash

	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketMeta, err)
		}
		versionData, err := json.Marshal(info.SchemaVersion)
		if err != nil {
			return err
		}
		if err := meta.Put(keySchemaVersion, versionData); err != nil {
			return err
		}
		infoData, err := json.Marshal(info)
		if err != nil {
			return err
		}
		if err := meta.Put(keyInfo, infoData); err != nil {
			return err
		}

		entries, err := tx.CreateBucket(bucketEntries)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketEntries, err)
		}
		entries.FillPercent = 1.0
		for i, e := range idx.Entries() {
			data, err := json.Marshal(storedEntry{Vector: e.Vector, Chunk: e.Chunk})
			if err != nil {
				return err
			}
			if err := entries.Put(sequenceKey(uint64(i)), data); err != nil {
				return err
			}
		}
		return nil
	})
	if cerr := db.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	final := config.IndexDBPath(dir)
	if err := os.Rename(tmpPath, final); err != nil {
		return fmt.Errorf("failed to move index into place: %w", err)
	}

	s.logger.Debug("persisted index", "path", final, "entries", info.Entries, "dimension", info.Dimension)
	return nil
}

// Load reads the index in dir and checks it against expect.
func (s *BoltIndexStore) Load(dir string, expect Expectation) (idx *memstore.FlatIndex, err error) {
	st, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s: run `pdfrag index` first", domain.ErrIndexNotFound, dir)
		}
		return nil, err
	}
	if !st.IsDir() {
		return nil, corrupt(dir, "%s is not a directory", dir)
	}

	path := config.IndexDBPath(dir)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, corrupt(dir, "missing %s", filepath.Base(path))
		}
		return nil, err
	}

	// bbolt panics on some kinds of page corruption.
	defer func() {
		if r := recover(); r != nil {
			idx = nil
			err = corrupt(dir, "%v", r)
		}
	}()

	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true, Timeout: openTimeout})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, fmt.Errorf("index at %s is locked by another process: %w", dir, err)
		}
		return nil, corrupt(dir, "%v", err)
	}
	defer db.Close()

	var (
		version int
		info    domain.IndexInfo
		entries []domain.IndexEntry
	)
	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return fmt.Errorf("missing %s bucket", bucketMeta)
		}
		if err := json.Unmarshal(meta.Get(keySchemaVersion), &version); err != nil {
			return fmt.Errorf("bad schema version: %w", err)
		}
		if err := json.Unmarshal(meta.Get(keyInfo), &info); err != nil {
			return fmt.Errorf("bad index info: %w", err)
		}

		b := tx.Bucket(bucketEntries)
		if b == nil {
			return fmt.Errorf("missing %s bucket", bucketEntries)
		}
		entries = make([]domain.IndexEntry, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("bad entry %x: %w", k, err)
			}
			entries = append(entries, domain.IndexEntry{Vector: stored.Vector, Chunk: stored.Chunk})
			return nil
		})
	})
	if err != nil {
		return nil, corrupt(dir, "%v", err)
	}

	if info.Entries != len(entries) {
		return nil, corrupt(dir, "index declares %d entries, found %d", info.Entries, len(entries))
	}

	compat := CheckCompatibility(version, info, s.configHash, expect)
	if compat.NeedsRebuild {
		return nil, corrupt(dir, "%s", compat.Reason)
	}
	if compat.Stale {
		s.logger.Warn("index was built with different settings; rebuild with `pdfrag index` to apply them",
			"path", dir, "reason", compat.Reason)
	}

	idx, err = memstore.Restore(info, entries)
	if err != nil {
		return nil, corrupt(dir, "%v", err)
	}

	s.logger.Debug("loaded index", "path", path, "entries", idx.Len(), "dimension", info.Dimension, "model", info.EmbeddingModel)
	return idx, nil
}

func corrupt(dir, format string, args ...any) error {
	return fmt.Errorf("%w at %s: %s; rebuild with `pdfrag index`", domain.ErrCorruptIndex, dir, fmt.Sprintf(format, args...))
}

func sequenceKey(i uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, i)
	return key
}
