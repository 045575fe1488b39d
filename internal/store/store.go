// Package store persists ledger snapshots in PebbleDB.
//
// Layout: roots under 'r' + digest, nullifiers under 'n' + digest, ordered
// commitments under 'c' + big-endian index. A snapshot saves in one synced
// batch, so a crash leaves either the old state or the new one. The store
// is never consulted during apply; the machine owns the hot state.
package store

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"resourcemachine/internal/rm"
)

var (
	rootPrefix       = []byte{'r'}
	nullifierPrefix  = []byte{'n'}
	commitmentPrefix = []byte{'c'}
)

// Store is a pebble-backed snapshot store.
type Store struct {
	db *pebble.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "close store")
}

// SaveSnapshot writes the snapshot in one synced batch. The sets only ever
// grow, so overwriting in place is safe.
func (s *Store) SaveSnapshot(snap *rm.Snapshot) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, r := range snap.Roots {
		if err := batch.Set(append(rootPrefix, r[:]...), nil, nil); err != nil {
			return errors.Wrap(err, "set root")
		}
	}
	for _, n := range snap.Nullifiers {
		if err := batch.Set(append(nullifierPrefix, n[:]...), nil, nil); err != nil {
			return errors.Wrap(err, "set nullifier")
		}
	}
	for i, c := range snap.Commitments {
		key := make([]byte, 1+8)
		key[0] = commitmentPrefix[0]
		binary.BigEndian.PutUint64(key[1:], uint64(i))
		if err := batch.Set(key, c[:], nil); err != nil {
			return errors.Wrap(err, "set commitment")
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return errors.Wrap(err, "commit snapshot")
	}
	return nil
}

// LoadSnapshot reads the stored snapshot. A fresh database yields an empty
// snapshot, not an error.
func (s *Store) LoadSnapshot() (*rm.Snapshot, error) {
	snap := &rm.Snapshot{}

	roots, err := s.scanDigestKeys(rootPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "load roots")
	}
	snap.Roots = roots

	nullifiers, err := s.scanDigestKeys(nullifierPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "load nullifiers")
	}
	snap.Nullifiers = nullifiers

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: commitmentPrefix,
		UpperBound: []byte{commitmentPrefix[0] + 1},
	})
	if err != nil {
		return nil, errors.Wrap(err, "load commitments")
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		var d rm.Digest
		if len(iter.Value()) != len(d) {
			return nil, errors.Errorf("commitment value has %d bytes", len(iter.Value()))
		}
		copy(d[:], iter.Value())
		snap.Commitments = append(snap.Commitments, d)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate commitments")
	}
	return snap, nil
}

// scanDigestKeys collects the digest suffixes of all keys under prefix.
// Key order in pebble is byte order, matching the snapshot's sorted sets.
func (s *Store) scanDigestKeys(prefix []byte) ([]rm.Digest, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: []byte{prefix[0] + 1},
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []rm.Digest
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		var d rm.Digest
		if len(key) != 1+len(d) {
			return nil, errors.Errorf("key has %d bytes", len(key))
		}
		copy(d[:], key[1:])
		out = append(out, d)
	}
	return out, iter.Error()
}
