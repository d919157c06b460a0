// Package store persists pipeline exports and drift monitoring state in a
// single bbolt file. Values are JSON documents; exports are keyed by
// pipeline id and drift snapshots by monitor name.
package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/jmontanero23-design/iava.ai-sub006/pipeline"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/log"
	"github.com/jmontanero23-design/iava.ai-sub006/sklearn/drift"
)

var (
	pipelinesBucket = []byte("pipelines")
	driftBucket     = []byte("drift")
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

// Store wraps an open bbolt database.
type Store struct {
	db *bolt.DB
}

// Summary is the listing form of a stored export.
type Summary struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	NFeatures    int       `json:"n_features"`
	MeanAccuracy float64   `json:"mean_accuracy"`
	Calibration  string    `json:"calibration"`
}

// Open opens (or creates) the database file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open store %s", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{pipelinesBucket, driftBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "create bucket %s", name)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.GetLoggerWithName("store").Debug("store opened", "path", path)
	return &Store{db: db}, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "close store")
	}
	return nil
}

// SavePipeline stores exp under its id, replacing any previous value.
func (s *Store) SavePipeline(ctx context.Context, exp *pipeline.Export) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if exp == nil {
		return errors.NewValueError("SavePipeline", "export is nil")
	}
	id, err := uuid.Parse(exp.ID)
	if err != nil {
		return errors.NewValidationError("id", "must be a uuid", exp.ID)
	}
	data, err := json.Marshal(exp)
	if err != nil {
		return errors.Wrap(err, "marshal export")
	}
	return s.put(pipelinesBucket, id.String(), data)
}

// LoadPipeline returns the export stored under id.
func (s *Store) LoadPipeline(ctx context.Context, id string) (*pipeline.Export, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.get(pipelinesBucket, id)
	if err != nil {
		return nil, err
	}
	var exp pipeline.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, errors.Wrapf(err, "unmarshal export %s", id)
	}
	return &exp, nil
}

// DeletePipeline removes the export stored under id.
func (s *Store) DeletePipeline(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(pipelinesBucket)
		if b.Get([]byte(id)) == nil {
			return errors.Wrapf(ErrNotFound, "pipeline %s", id)
		}
		return b.Delete([]byte(id))
	})
}

// ListPipelines returns a summary of every stored export, newest first.
func (s *Store) ListPipelines(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Summary
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(pipelinesBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var exp pipeline.Export
			if err := json.Unmarshal(v, &exp); err != nil {
				return errors.Wrapf(err, "unmarshal export %s", k)
			}
			sum := Summary{
				ID:          exp.ID,
				Model:       exp.Model,
				CreatedAt:   exp.CreatedAt,
				NFeatures:   exp.NFeatures,
				Calibration: pipeline.CalibrationNone,
			}
			if exp.Validation != nil {
				sum.MeanAccuracy = exp.Validation.MeanAccuracy
			}
			if exp.Calibration != nil {
				sum.Calibration = exp.Calibration.Method
			}
			out = append(out, sum)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveDriftSnapshot stores a detector snapshot under name.
func (s *Store) SaveDriftSnapshot(ctx context.Context, name string, snap drift.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return errors.NewValidationError("name", "must not be empty", name)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal drift snapshot")
	}
	return s.put(driftBucket, name, data)
}

// LoadDriftSnapshot returns the snapshot stored under name.
func (s *Store) LoadDriftSnapshot(ctx context.Context, name string) (drift.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return drift.Snapshot{}, err
	}
	data, err := s.get(driftBucket, name)
	if err != nil {
		return drift.Snapshot{}, err
	}
	var snap drift.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return drift.Snapshot{}, errors.Wrapf(err, "unmarshal drift snapshot %s", name)
	}
	return snap, nil
}

func (s *Store) put(bucket []byte, key string, value []byte) error {
	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), value)
	}); err != nil {
		return errors.Wrapf(err, "put %s/%s", bucket, key)
	}
	return nil
}

// get copies the value out of the transaction; bbolt memory is only valid
// until the transaction ends.
func (s *Store) get(bucket []byte, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get([]byte(key))
		if v == nil {
			return errors.Wrapf(ErrNotFound, "%s/%s", bucket, key)
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}
