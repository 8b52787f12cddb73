package storage

import "github.com/pkg/errors"

// ErrNoKeyExists is returned by Get for a missing key.
var ErrNoKeyExists = errors.New("no key exists")

// KeyValue is a stored entry. Value is owned by the caller.
type KeyValue struct {
	Key   string
	Value []byte
}

// ReadOnlyTx reads a consistent view of a store.
type ReadOnlyTx interface {
	Get(key string) (*KeyValue, error)
	Exists(key string) (bool, error)
	// List returns the entries whose key starts with prefix, sorted by key.
	List(prefix string) ([]*KeyValue, error)
}

// Tx reads and writes a store. Writes become visible to other
// transactions only when the transaction commits.
type Tx interface {
	ReadOnlyTx
	Put(key string, value []byte) error
	// Delete removes key, deleting a missing key is not an error.
	Delete(key string) error
}

// Interface is a transactional key/value store.
type Interface interface {
	// View runs f in a read only transaction.
	View(f func(ReadOnlyTx) error) error
	// Update runs f in a read-write transaction that is committed if f
	// returns nil and discarded otherwise.
	Update(f func(Tx) error) error
}
