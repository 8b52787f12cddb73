package storage

import (
	"encoding"
	"path"
	"strings"

	"github.com/pkg/errors"
)

const (
	defaultDataPrefix    = "data"
	defaultIndexesPrefix = "indexes"

	DefaultIDIndex = "id"
)

var (
	ErrObjectExists   = errors.New("object already exists")
	ErrNoObjectExists = errors.New("no object exists")
)

type BinaryObject interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	ObjectID() string
}

type NewObjectF func() BinaryObject
type ValueFunc func(BinaryObject) (string, error)

// Index maps a derived value of each object to its ID.
type Index struct {
	Name      string
	ValueFunc ValueFunc
	// Unique indexes reject two objects with the same value.
	Unique bool
}

func (idx Index) ValueOf(o BinaryObject) (string, error) {
	value, err := idx.ValueFunc(o)
	if err != nil {
		return "", err
	}
	if !idx.Unique {
		value = value + "/" + o.ObjectID()
	}
	return value, nil
}

// IndexedStore provides basic CRUD operations and maintains indexes.
//
// Keys are laid out like directories:
//
//	/<prefix>/data/<ID>             encoded object
//	/<prefix>/indexes/<index>/<value> object ID
type IndexedStore struct {
	store Interface

	dataPrefix    string
	indexesPrefix string

	indexes   []Index
	newObject NewObjectF
}

type IndexedStoreConfig struct {
	Prefix    string
	NewObject NewObjectF
	Indexes   []Index
}

// DefaultIndexedStoreConfig returns a config with the unique ID index.
func DefaultIndexedStoreConfig(prefix string, newObject NewObjectF) IndexedStoreConfig {
	return IndexedStoreConfig{
		Prefix:    prefix,
		NewObject: newObject,
		Indexes: []Index{{
			Name:   DefaultIDIndex,
			Unique: true,
			ValueFunc: func(o BinaryObject) (string, error) {
				return o.ObjectID(), nil
			},
		}},
	}
}

func validPath(p string) bool {
	return p != "" && !strings.Contains(p, "/")
}

func (c IndexedStoreConfig) Validate() error {
	if !validPath(c.Prefix) {
		return errors.Errorf("invalid prefix %q", c.Prefix)
	}
	if c.NewObject == nil {
		return errors.New("must provide a NewObject function")
	}
	for _, idx := range c.Indexes {
		if !validPath(idx.Name) {
			return errors.Errorf("invalid index name %q", idx.Name)
		}
		if idx.ValueFunc == nil {
			return errors.Errorf("index %q does not have a ValueFunc", idx.Name)
		}
	}
	return nil
}

func NewIndexedStore(store Interface, c IndexedStoreConfig) (*IndexedStore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &IndexedStore{
		store:         store,
		dataPrefix:    path.Join("/", c.Prefix, defaultDataPrefix) + "/",
		indexesPrefix: path.Join("/", c.Prefix, defaultIndexesPrefix),
		indexes:       c.Indexes,
		newObject:     c.NewObject,
	}, nil
}

func (s *IndexedStore) dataKey(id string) string {
	return s.dataPrefix + id
}

func (s *IndexedStore) indexKey(index, value string) string {
	return path.Join(s.indexesPrefix, index, value)
}

func (s *IndexedStore) Get(id string) (o BinaryObject, err error) {
	err = s.store.View(func(tx ReadOnlyTx) error {
		o, err = s.GetTx(tx, id)
		return err
	})
	return
}

func (s *IndexedStore) GetTx(tx ReadOnlyTx, id string) (BinaryObject, error) {
	kv, err := tx.Get(s.dataKey(id))
	if err == ErrNoKeyExists {
		return nil, ErrNoObjectExists
	} else if err != nil {
		return nil, err
	}
	o := s.newObject()
	if err := o.UnmarshalBinary(kv.Value); err != nil {
		return nil, errors.Wrapf(err, "failed to decode object %q", id)
	}
	return o, nil
}

// GetByIndex returns the object whose value for the unique index is value.
func (s *IndexedStore) GetByIndex(index, value string) (o BinaryObject, err error) {
	err = s.store.View(func(tx ReadOnlyTx) error {
		kv, err := tx.Get(s.indexKey(index, value))
		if err == ErrNoKeyExists {
			return ErrNoObjectExists
		} else if err != nil {
			return err
		}
		o, err = s.GetTx(tx, string(kv.Value))
		return err
	})
	return
}

// Create stores a new object, failing with ErrObjectExists if the ID or a
// unique index value is taken.
func (s *IndexedStore) Create(o BinaryObject) error {
	return s.store.Update(func(tx Tx) error {
		return s.putTx(tx, o, false)
	})
}

// Replace overwrites an existing object, failing with ErrNoObjectExists if
// there is none.
func (s *IndexedStore) Replace(o BinaryObject) error {
	return s.store.Update(func(tx Tx) error {
		return s.putTx(tx, o, true)
	})
}

func (s *IndexedStore) putTx(tx Tx, o BinaryObject, replace bool) error {
	id := o.ObjectID()
	old, err := s.GetTx(tx, id)
	switch {
	case err == ErrNoObjectExists:
		if replace {
			return err
		}
	case err != nil:
		return err
	case !replace:
		return ErrObjectExists
	}

	data, err := o.MarshalBinary()
	if err != nil {
		return err
	}
	for _, idx := range s.indexes {
		value, err := idx.ValueOf(o)
		if err != nil {
			return err
		}
		key := s.indexKey(idx.Name, value)
		if idx.Unique {
			kv, err := tx.Get(key)
			if err == nil && string(kv.Value) != id {
				return errors.Wrapf(ErrObjectExists, "%s %q", idx.Name, value)
			} else if err != nil && err != ErrNoKeyExists {
				return err
			}
		}
		if old != nil {
			oldValue, err := idx.ValueOf(old)
			if err != nil {
				return err
			}
			if oldKey := s.indexKey(idx.Name, oldValue); oldKey != key {
				if err := tx.Delete(oldKey); err != nil {
					return err
				}
			}
		}
		if err := tx.Put(key, []byte(id)); err != nil {
			return err
		}
	}
	return tx.Put(s.dataKey(id), data)
}

// Delete removes an object and its index entries.
// Deleting a missing object returns ErrNoObjectExists.
func (s *IndexedStore) Delete(id string) error {
	return s.store.Update(func(tx Tx) error {
		o, err := s.GetTx(tx, id)
		if err != nil {
			return err
		}
		for _, idx := range s.indexes {
			value, err := idx.ValueOf(o)
			if err != nil {
				return err
			}
			if err := tx.Delete(s.indexKey(idx.Name, value)); err != nil {
				return err
			}
		}
		return tx.Delete(s.dataKey(id))
	})
}

// List returns the objects sorted by the given index whose index value
// matches pattern, see path.Match. An empty pattern matches everything.
// If limit < 0, then no limit is enforced.
func (s *IndexedStore) List(index, pattern string, offset, limit int) (objects []BinaryObject, err error) {
	err = s.store.View(func(tx ReadOnlyTx) error {
		prefix := s.indexKey(index, "") + "/"
		ids, err := tx.List(prefix)
		if err != nil {
			return err
		}
		matched := 0
		for _, kv := range ids {
			id := string(kv.Value)
			if pattern != "" {
				if ok, _ := path.Match(pattern, strings.TrimPrefix(kv.Key, prefix)); !ok {
					continue
				}
			}
			matched++
			if matched <= offset {
				continue
			}
			if limit >= 0 && len(objects) == limit {
				break
			}
			o, err := s.GetTx(tx, id)
			if err != nil {
				return err
			}
			objects = append(objects, o)
		}
		return nil
	})
	return
}
