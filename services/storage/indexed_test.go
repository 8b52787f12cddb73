package storage_test

import (
	"encoding/json"
	"testing"

	"github.com/datamelt/fengine/services/storage"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObject struct {
	ID    string
	Value string
}

func (o *testObject) ObjectID() string {
	return o.ID
}

func (o *testObject) MarshalBinary() ([]byte, error) {
	return json.Marshal(o)
}

func (o *testObject) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, o)
}

func newIndexedStore(t *testing.T, s storage.Interface) *storage.IndexedStore {
	c := storage.DefaultIndexedStoreConfig("testobjects", func() storage.BinaryObject {
		return new(testObject)
	})
	c.Indexes = append(c.Indexes, storage.Index{
		Name:   "value",
		Unique: true,
		ValueFunc: func(o storage.BinaryObject) (string, error) {
			obj, ok := o.(*testObject)
			if !ok {
				return "", errors.Errorf("unexpected object type %T", o)
			}
			return obj.Value, nil
		},
	})
	is, err := storage.NewIndexedStore(s, c)
	require.NoError(t, err)
	return is
}

func TestIndexedStore(t *testing.T) {
	for name, db := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := newIndexedStore(t, db.Store("indexed"))

			for _, o := range []*testObject{{"id2", "b"}, {"id1", "c"}, {"id3", "a"}} {
				require.NoError(t, s.Create(o))
			}
			assert.Equal(t, storage.ErrObjectExists, s.Create(&testObject{"id1", "z"}))
			err := s.Create(&testObject{"id4", "a"})
			assert.True(t, errors.Is(err, storage.ErrObjectExists))

			o, err := s.Get("id1")
			require.NoError(t, err)
			assert.Equal(t, &testObject{"id1", "c"}, o)

			o, err = s.GetByIndex("value", "a")
			require.NoError(t, err)
			assert.Equal(t, "id3", o.ObjectID())

			list, err := s.List(storage.DefaultIDIndex, "", 0, -1)
			require.NoError(t, err)
			exp := []storage.BinaryObject{
				&testObject{"id1", "c"},
				&testObject{"id2", "b"},
				&testObject{"id3", "a"},
			}
			if diff := cmp.Diff(exp, list); diff != "" {
				t.Errorf("unexpected list -want/+got:\n%s", diff)
			}

			list, err = s.List("value", "", 1, 1)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "id2", list[0].ObjectID())

			list, err = s.List("value", "[ab]", 0, -1)
			require.NoError(t, err)
			assert.Len(t, list, 2)

			// replacing moves the index entry
			require.NoError(t, s.Replace(&testObject{"id3", "d"}))
			_, err = s.GetByIndex("value", "a")
			assert.Equal(t, storage.ErrNoObjectExists, err)
			o, err = s.GetByIndex("value", "d")
			require.NoError(t, err)
			assert.Equal(t, "id3", o.ObjectID())
			assert.Equal(t, storage.ErrNoObjectExists, s.Replace(&testObject{"id9", "x"}))

			require.NoError(t, s.Delete("id2"))
			assert.Equal(t, storage.ErrNoObjectExists, s.Delete("id2"))
			_, err = s.Get("id2")
			assert.Equal(t, storage.ErrNoObjectExists, err)
			_, err = s.GetByIndex("value", "b")
			assert.Equal(t, storage.ErrNoObjectExists, err)
		})
	}
}

func TestIndexedStoreConfig_Validate(t *testing.T) {
	newObject := func() storage.BinaryObject { return new(testObject) }
	assert.NoError(t, storage.DefaultIndexedStoreConfig("ok", newObject).Validate())
	assert.Error(t, storage.DefaultIndexedStoreConfig("", newObject).Validate())
	assert.Error(t, storage.DefaultIndexedStoreConfig("a/b", newObject).Validate())
	assert.Error(t, storage.DefaultIndexedStoreConfig("ok", nil).Validate())
}
