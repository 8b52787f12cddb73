package registry

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/datamelt/fengine/services/storage"
	"github.com/pkg/errors"
)

const (
	// version is the current version of the Definition structure.
	version = 1

	definitionsPrefix = "definitions"
	nameIndex         = "name"
)

var (
	ErrNoFunctionExists  = errors.New("no function exists")
	ErrFunctionExists    = errors.New("function already exists")
	ErrInvalidDefinition = errors.New("invalid function definition")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Definition is the persisted form of a function.
type Definition struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Title      string             `json:"title,omitempty"`
	Dimension  int                `json:"dimension"`
	Expression string             `json:"expression"`
	XMin       float64            `json:"x_min"`
	XMax       float64            `json:"x_max"`
	YMin       float64            `json:"y_min,omitempty"`
	YMax       float64            `json:"y_max,omitempty"`
	Points     int                `json:"points,omitempty"`
	Parameters map[string]float64 `json:"parameters,omitempty"`
	Created    time.Time          `json:"created"`
	Modified   time.Time          `json:"modified"`
}

// Validate checks the fields a client supplies.
func (d Definition) Validate() error {
	if !validName.MatchString(d.Name) {
		return errors.Wrapf(ErrInvalidDefinition, "name %q must be non-empty and contain only letters, digits, '_', '.' or '-'", d.Name)
	}
	if d.Dimension != 1 && d.Dimension != 2 {
		return errors.Wrapf(ErrInvalidDefinition, "dimension must be 1 or 2, got %d", d.Dimension)
	}
	if d.Points != 0 && d.Points < 2 {
		return errors.Wrapf(ErrInvalidDefinition, "points must be at least 2, got %d", d.Points)
	}
	return nil
}

func (d Definition) ObjectID() string {
	return d.ID
}

func (d Definition) MarshalBinary() ([]byte, error) {
	return storage.VersionJSONEncode(version, d)
}

func (d *Definition) UnmarshalBinary(data []byte) error {
	return storage.VersionJSONDecode(data, func(version int, dec *json.Decoder) error {
		return dec.Decode(d)
	})
}

// Data access object for function definitions.
type DefinitionsDAO interface {
	// Retrieve a definition by name.
	Get(name string) (Definition, error)
	// Create a definition.
	// ErrFunctionExists is returned if a definition with the same name exists.
	Create(d Definition) error
	// Replace an existing definition.
	// ErrNoFunctionExists is returned if the definition does not exist.
	Replace(d Definition) error
	// Delete a definition by name.
	// Deleting a missing definition is not an error.
	Delete(name string) error
	// List definitions sorted by name whose name matches pattern.
	// If limit < 0, then no limit is enforced.
	List(pattern string, offset, limit int) ([]Definition, error)
}

// Key/Value store based implementation of DefinitionsDAO
type definitionKV struct {
	store *storage.IndexedStore
}

func newDefinitionKV(store storage.Interface) (*definitionKV, error) {
	c := storage.DefaultIndexedStoreConfig(definitionsPrefix, func() storage.BinaryObject {
		return new(Definition)
	})
	c.Indexes = append(c.Indexes, storage.Index{
		Name:   nameIndex,
		Unique: true,
		ValueFunc: func(o storage.BinaryObject) (string, error) {
			d, ok := o.(*Definition)
			if !ok {
				return "", impossibleTypeErr(d, o)
			}
			return d.Name, nil
		},
	})
	istore, err := storage.NewIndexedStore(store, c)
	if err != nil {
		return nil, err
	}
	return &definitionKV{
		store: istore,
	}, nil
}

func impossibleTypeErr(exp interface{}, got interface{}) error {
	return errors.Errorf("impossible error, object not of type %T, got %T", exp, got)
}

func (kv *definitionKV) Get(name string) (Definition, error) {
	o, err := kv.store.GetByIndex(nameIndex, name)
	if err == storage.ErrNoObjectExists {
		return Definition{}, ErrNoFunctionExists
	} else if err != nil {
		return Definition{}, err
	}
	d, ok := o.(*Definition)
	if !ok {
		return Definition{}, impossibleTypeErr(d, o)
	}
	return *d, nil
}

func (kv *definitionKV) Create(d Definition) error {
	err := kv.store.Create(&d)
	if errors.Is(err, storage.ErrObjectExists) {
		return ErrFunctionExists
	}
	return err
}

func (kv *definitionKV) Replace(d Definition) error {
	err := kv.store.Replace(&d)
	if err == storage.ErrNoObjectExists {
		return ErrNoFunctionExists
	} else if errors.Is(err, storage.ErrObjectExists) {
		return ErrFunctionExists
	}
	return err
}

func (kv *definitionKV) Delete(name string) error {
	d, err := kv.Get(name)
	if err == ErrNoFunctionExists {
		return nil
	} else if err != nil {
		return err
	}
	return kv.store.Delete(d.ID)
}

func (kv *definitionKV) List(pattern string, offset, limit int) ([]Definition, error) {
	objects, err := kv.store.List(nameIndex, pattern, offset, limit)
	if err != nil {
		return nil, err
	}
	defs := make([]Definition, len(objects))
	for i, o := range objects {
		d, ok := o.(*Definition)
		if !ok {
			return nil, impossibleTypeErr(d, o)
		}
		defs[i] = *d
	}
	return defs, nil
}
