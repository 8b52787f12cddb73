package load

import (
	"encoding/json"

	"github.com/datamelt/fengine/services/storage"
	"github.com/pkg/errors"
)

// itemVersion is the stored version of Item.
const itemVersion = 1

const itemsPrefix = "items/"

// ItemsDAO remembers the functions defined from files, so that functions
// whose file disappeared can be removed.
type ItemsDAO interface {
	Set(i Item) error
	Delete(name string) error
	List() ([]Item, error)
}

// Item records that function ID was defined from File.
type Item struct {
	ID   string `json:"id"`
	File string `json:"file"`
}

type itemKV struct {
	store storage.Interface
}

func newItemKV(store storage.Interface) *itemKV {
	return &itemKV{store: store}
}

func (kv *itemKV) Set(i Item) error {
	if i.ID == "" {
		return errors.New("item has no function name")
	}
	data, err := storage.VersionJSONEncode(itemVersion, i)
	if err != nil {
		return err
	}
	return kv.store.Update(func(tx storage.Tx) error {
		return tx.Put(itemsPrefix+i.ID, data)
	})
}

func (kv *itemKV) Delete(name string) error {
	return kv.store.Update(func(tx storage.Tx) error {
		return tx.Delete(itemsPrefix + name)
	})
}

// List returns the items sorted by function name.
func (kv *itemKV) List() (items []Item, err error) {
	err = kv.store.View(func(tx storage.ReadOnlyTx) error {
		kvs, err := tx.List(itemsPrefix)
		if err != nil {
			return err
		}
		items = make([]Item, 0, len(kvs))
		for _, e := range kvs {
			var i Item
			err := storage.VersionJSONDecode(e.Value, func(_ int, dec *json.Decoder) error {
				return dec.Decode(&i)
			})
			if err != nil {
				return errors.Wrapf(err, "decode load item %s", e.Key)
			}
			items = append(items, i)
		}
		return nil
	})
	return
}
