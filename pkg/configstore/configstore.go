// Package configstore is the ConfigStore collaborator spec.md §1 carves out
// of the core ("persisted configuration storage, treated as a
// ConfigStore"): a bbolt-backed store that persists the node's current
// configuration plus a bounded history of prior revisions, so NM mutations
// survive a process restart.
//
// Adapted from the teacher's pkg/storage/storage.go, which wraps a BoltDB
// instance for run-history records; here the same open/bucket/JSON-record
// shape persists nodeconfig.Config snapshots instead of RunRecords.
package configstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/nodeconfig"
)

const (
	currentBucket = "current"
	historyBucket = "history"
	currentKey    = "config"
)

// Store wraps a BoltDB instance for persisting node configuration.
type Store struct {
	db *bbolt.DB
}

// Revision is one historical configuration snapshot.
type Revision struct {
	Sequence uint64            `json:"sequence"`
	SavedAt  time.Time         `json:"saved_at"`
	Config   nodeconfig.Config `json:"config"`
}

// Open opens (or creates) the config store database at path. Passing
// "disabled" or "" yields an error, matching the teacher's sentinel for
// "no persistence configured."
func Open(path string) (*Store, error) {
	if strings.EqualFold(path, "disabled") || path == "" {
		return nil, errors.New("configstore: disabled")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(currentBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(historyBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save persists cfg as the current configuration and appends a history
// revision, mirroring the "persisted on every mutation by NM commands"
// lifecycle of spec.md §3.
func (s *Store) Save(cfg *nodeconfig.Config) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		if err := tx.Bucket([]byte(currentBucket)).Put([]byte(currentKey), data); err != nil {
			return err
		}

		hist := tx.Bucket([]byte(historyBucket))
		seq, _ := hist.NextSequence()
		rev := Revision{Sequence: seq, SavedAt: time.Now(), Config: *cfg}
		revData, err := json.Marshal(rev)
		if err != nil {
			return err
		}
		return hist.Put(itob(seq), revData)
	})
}

// Load reads the current configuration. It returns (nil, nil) if none has
// ever been saved.
func (s *Store) Load() (*nodeconfig.Config, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("configstore: not initialised")
	}
	var cfg *nodeconfig.Config
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(currentBucket)).Get([]byte(currentKey))
		if data == nil {
			return nil
		}
		cfg = &nodeconfig.Config{}
		return json.Unmarshal(data, cfg)
	})
	return cfg, err
}

// History returns the most recent revisions, most recent first, up to
// limit entries.
func (s *Store) History(limit int) ([]Revision, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("configstore: not initialised")
	}
	if limit <= 0 {
		limit = 20
	}
	revisions := make([]Revision, 0, limit)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(historyBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(revisions) < limit; k, v = c.Prev() {
			var rev Revision
			if err := json.Unmarshal(v, &rev); err != nil {
				return err
			}
			revisions = append(revisions, rev)
		}
		return nil
	})
	return revisions, err
}

func itob(v uint64) []byte {
	var b [8]byte
	for i := uint(0); i < 8; i++ {
		b[7-i] = byte(v >> (i * 8))
	}
	return b[:]
}
