package storage

import (
	"bytes"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// Bolt stores keys in a path of nested buckets of a bolt database.
// Buckets are created by the first write.
type Bolt struct {
	db   *bolt.DB
	path [][]byte
}

func NewBolt(db *bolt.DB, path ...[]byte) *Bolt {
	return &Bolt{db: db, path: path}
}

func (b *Bolt) View(f func(ReadOnlyTx) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return f(boltTx{tx: tx, path: b.path})
	})
}

func (b *Bolt) Update(f func(Tx) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return f(boltTx{tx: tx, path: b.path})
	})
}

// bucketParent is implemented by both *bolt.Tx and *bolt.Bucket.
type bucketParent interface {
	Bucket(name []byte) *bolt.Bucket
	CreateBucketIfNotExists(name []byte) (*bolt.Bucket, error)
}

type boltTx struct {
	tx   *bolt.Tx
	path [][]byte
}

// bucket walks the bucket path. Without create a missing bucket is nil.
func (t boltTx) bucket(create bool) (*bolt.Bucket, error) {
	if len(t.path) == 0 {
		return nil, errors.New("bolt store has no bucket")
	}
	var (
		parent bucketParent = t.tx
		b      *bolt.Bucket
	)
	for _, name := range t.path {
		if !create {
			if b = parent.Bucket(name); b == nil {
				return nil, nil
			}
		} else {
			var err error
			if b, err = parent.CreateBucketIfNotExists(name); err != nil {
				return nil, errors.Wrapf(err, "create bucket %q", name)
			}
		}
		parent = b
	}
	return b, nil
}

func (t boltTx) Get(key string) (*KeyValue, error) {
	b, err := t.bucket(false)
	if err != nil {
		return nil, err
	}
	var v []byte
	if b != nil {
		v = b.Get([]byte(key))
	}
	if v == nil {
		return nil, ErrNoKeyExists
	}
	return &KeyValue{Key: key, Value: clone(v)}, nil
}

func (t boltTx) Exists(key string) (bool, error) {
	_, err := t.Get(key)
	if err == ErrNoKeyExists {
		return false, nil
	}
	return err == nil, err
}

func (t boltTx) List(prefix string) ([]*KeyValue, error) {
	b, err := t.bucket(false)
	if b == nil || err != nil {
		return nil, err
	}
	var kvs []*KeyValue
	p := []byte(prefix)
	c := b.Cursor()
	for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
		// nil values are nested buckets
		if v != nil {
			kvs = append(kvs, &KeyValue{Key: string(k), Value: clone(v)})
		}
	}
	return kvs, nil
}

func (t boltTx) Put(key string, value []byte) error {
	b, err := t.bucket(true)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), clone(value))
}

func (t boltTx) Delete(key string) error {
	b, err := t.bucket(false)
	if b == nil || err != nil {
		return err
	}
	return b.Delete([]byte(key))
}

// clone copies b, bolt owned memory is only valid within its transaction.
func clone(b []byte) []byte {
	return append([]byte{}, b...)
}
