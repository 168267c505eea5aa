package simnet

import (
	"fmt"

	"go.etcd.io/bbolt"
)

var topologyBucket = []byte("topology")

// SnapshotStore persists topology snapshots to a bbolt file, so a running
// simulator's state can survive a restart of the terminal process.
type SnapshotStore struct {
	db *bbolt.DB
}

// OpenSnapshotStore opens (creating if needed) a bbolt database at path.
func OpenSnapshotStore(path string) (store *SnapshotStore, err error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) (err error) {
		_, err = tx.CreateBucketIfNotExists(topologyBucket)

		return err
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("initializing snapshot store: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

// Close closes the underlying database.
func (store *SnapshotStore) Close() (err error) { return store.db.Close() }

// Save writes the named snapshot's YAML-encoded topology.
func (store *SnapshotStore) Save(name string, t *TopologyFile) (err error) {
	data, err := MarshalTopology(t)
	if err != nil {
		return err
	}

	return store.db.Update(func(tx *bbolt.Tx) (err error) {
		return tx.Bucket(topologyBucket).Put([]byte(name), data)
	})
}

// Load reads back a named snapshot, returning ok=false if it doesn't exist.
func (store *SnapshotStore) Load(name string) (t *TopologyFile, ok bool, err error) {
	var data []byte

	err = store.db.View(func(tx *bbolt.Tx) (err error) {
		v := tx.Bucket(topologyBucket).Get([]byte(name))
		if v != nil {
			data = append([]byte(nil), v...)
		}

		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("reading snapshot: %w", err)
	}

	if data == nil {
		return nil, false, nil
	}

	t, err = ParseTopology(data)
	if err != nil {
		return nil, false, err
	}

	return t, true, nil
}
