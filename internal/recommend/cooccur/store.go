// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package cooccur

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key layout in the snapshot store:
//
//	p/<a:8><b:8> -> count:8     canonical pair counts (a < b)
//	o/<id:8>     -> (empty)     applied-order markers
//	m/rebuilt    -> unixnano:8  rebuild timestamp
var (
	pairPrefix  = []byte("p/")
	orderPrefix = []byte("o/")
	metaRebuilt = []byte("m/rebuilt")
)

// SnapshotStore persists index snapshots in BadgerDB so a restart does
// not require replaying the full order history before serving.
type SnapshotStore struct {
	db *badger.DB
}

// OpenStore opens (or creates) the snapshot store at the given path.
func OpenStore(path string) (*SnapshotStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// Close releases the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot with the given one. The previous
// contents are dropped first so stale pairs from before a rebuild do not
// survive.
func (s *SnapshotStore) Save(snap Snapshot) error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("clear snapshot store: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, p := range snap.Pairs {
		if err := wb.Set(pairKey(p.A, p.B), encodeUint64(uint64(p.Count))); err != nil {
			return fmt.Errorf("write pair %d/%d: %w", p.A, p.B, err)
		}
	}
	for _, id := range snap.AppliedOrders {
		if err := wb.Set(orderKey(id), nil); err != nil {
			return fmt.Errorf("write order marker %d: %w", id, err)
		}
	}
	if !snap.RebuiltAt.IsZero() {
		if err := wb.Set(metaRebuilt, encodeUint64(uint64(snap.RebuiltAt.UnixNano()))); err != nil {
			return fmt.Errorf("write rebuild timestamp: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	return nil
}

// Load reads the stored snapshot. The second return value is false when
// the store holds no pairs and no order markers (fresh store).
func (s *SnapshotStore) Load() (Snapshot, bool, error) {
	var snap Snapshot

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = pairPrefix
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			a, b, ok := decodePairKey(item.Key())
			if !ok {
				continue
			}
			var count uint64
			if err := item.Value(func(val []byte) error {
				count = decodeUint64(val)
				return nil
			}); err != nil {
				it.Close()
				return fmt.Errorf("read pair value: %w", err)
			}
			snap.Pairs = append(snap.Pairs, PairCount{A: a, B: b, Count: int(count)})
		}
		it.Close()

		opts = badger.DefaultIteratorOptions
		opts.Prefix = orderPrefix
		opts.PrefetchValues = false
		it = txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if len(key) != len(orderPrefix)+8 {
				continue
			}
			snap.AppliedOrders = append(snap.AppliedOrders,
				int(decodeUint64(key[len(orderPrefix):])))
		}
		it.Close()

		item, err := txn.Get(metaRebuilt)
		switch err {
		case nil:
			return item.Value(func(val []byte) error {
				snap.RebuiltAt = time.Unix(0, int64(decodeUint64(val)))
				return nil
			})
		case badger.ErrKeyNotFound:
			return nil
		default:
			return fmt.Errorf("read rebuild timestamp: %w", err)
		}
	})
	if err != nil {
		return Snapshot{}, false, err
	}

	populated := len(snap.Pairs) > 0 || len(snap.AppliedOrders) > 0
	return snap, populated, nil
}

func pairKey(a, b int) []byte {
	key := make([]byte, len(pairPrefix)+16)
	copy(key, pairPrefix)
	binary.BigEndian.PutUint64(key[len(pairPrefix):], uint64(a))
	binary.BigEndian.PutUint64(key[len(pairPrefix)+8:], uint64(b))
	return key
}

func decodePairKey(key []byte) (a, b int, ok bool) {
	if len(key) != len(pairPrefix)+16 {
		return 0, 0, false
	}
	a = int(binary.BigEndian.Uint64(key[len(pairPrefix):]))
	b = int(binary.BigEndian.Uint64(key[len(pairPrefix)+8:]))
	return a, b, true
}

func orderKey(id int) []byte {
	key := make([]byte, len(orderPrefix)+8)
	copy(key, orderPrefix)
	binary.BigEndian.PutUint64(key[len(orderPrefix):], uint64(id))
	return key
}

func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decodeUint64(buf []byte) uint64 {
	if len(buf) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(buf)
}
