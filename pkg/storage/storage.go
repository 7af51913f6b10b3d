// Package storage persists encode jobs in a pebble key-value store keyed by
// KSUIDs.
package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/nucleon/pkg/errs"
)

// DefaultStorage is a blob store over pebble. Keys are the raw KSUID bytes,
// so iteration order follows creation time.
type DefaultStorage struct {
	db *pebble.DB
}

// NewDefaultStorage opens or creates a store in path
func NewDefaultStorage(path string) (*DefaultStorage, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open storage at %s", path)
	}
	return &DefaultStorage{db: db}, nil
}

// Create stores data under a new KSUID
func (s *DefaultStorage) Create(data []byte) (*ksuid.KSUID, error) {
	id := ksuid.New()
	if err := s.db.Set(id.Bytes(), data, pebble.Sync); err != nil {
		return nil, errors.Wrapf(err, "store %s", id)
	}

	return &id, nil
}

// Put stores data under a caller-chosen id. An id already in use is a
// validation error.
func (s *DefaultStorage) Put(id *ksuid.KSUID, data []byte) error {
	if _, err := s.Read(id); err == nil {
		return errs.Newf(errs.ErrValidation, "record %s already exists", id)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if err := s.db.Set(id.Bytes(), data, pebble.Sync); err != nil {
		return errors.Wrapf(err, "store %s", id)
	}
	return nil
}

// Keys returns every stored id in creation order
func (s *DefaultStorage) Keys() ([]ksuid.KSUID, error) {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return nil, errors.Wrap(err, "open iterator")
	}

	var ids []ksuid.KSUID
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key())
		if err != nil {
			_ = iter.Close()
			return nil, errs.Wrapf(errs.ErrDecoding, err, "stored key is not a ksuid")
		}
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrap(err, "close iterator")
	}
	return ids, nil
}

// Read returns a copy of the data stored under id
func (s *DefaultStorage) Read(id *ksuid.KSUID) ([]byte, error) {
	data, closer, err := s.db.Get(id.Bytes())
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, errs.Newf(errs.ErrNotFound, "no record %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", id)
	}
	defer closer.Close()

	// data is only valid until closer is closed
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Update replaces the data stored under an existing id
func (s *DefaultStorage) Update(id *ksuid.KSUID, data []byte) error {
	if _, err := s.Read(id); err != nil {
		return err
	}
	return s.db.Set(id.Bytes(), data, pebble.Sync)
}

// Delete removes id. Deleting a missing id reports ErrNotFound.
func (s *DefaultStorage) Delete(id *ksuid.KSUID) error {
	if _, err := s.Read(id); err != nil {
		return err
	}
	return s.db.Delete(id.Bytes(), pebble.Sync)
}

// Close flushes and closes the store
func (s *DefaultStorage) Close() error {
	return s.db.Close()
}
