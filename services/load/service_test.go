package load_test

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/datamelt/fengine/services/load"
	"github.com/datamelt/fengine/services/registry"
	"github.com/datamelt/fengine/services/storage"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storageService struct {
	store storage.Interface
}

func (s *storageService) Store(string) storage.Interface {
	return s.store
}

type registryService struct {
	defs map[string]registry.Definition
}

func (r *registryService) Redefine(def registry.Definition) (registry.Info, error) {
	if def.Expression == "" {
		return registry.Info{}, errors.New("empty expression")
	}
	r.defs[def.Name] = def
	return registry.Info{Definition: def, Parsed: true}, nil
}

func (r *registryService) Delete(name string) error {
	if _, ok := r.defs[name]; !ok {
		return registry.ErrNoFunctionExists
	}
	delete(r.defs, name)
	return nil
}

type diag struct {
	loading []string
	errors  []error
}

func (d *diag) Debug(string) {}

func (d *diag) Error(_ string, err error) {
	d.errors = append(d.errors, err)
}

func (d *diag) Loading(_ string, file string) {
	d.loading = append(d.loading, filepath.Base(file))
}

func newService(t *testing.T, dir string, reg *registryService, st *storageService) (*load.Service, *diag) {
	d := new(diag)
	c := load.NewConfig()
	c.Enabled = true
	c.Dir = dir
	require.NoError(t, c.Validate())
	s := load.NewService(c, d)
	s.StorageService = st
	s.RegistryService = reg
	require.NoError(t, s.Open())
	return s, d
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "functions"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "functions", name), []byte(content), 0600))
}

func TestService_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "square.yaml", `
expression: x^2
x_min: -1
x_max: 1
points: 11
parameters:
  P0: 2
`)
	writeFile(t, dir, "plane.json", `{"name": "surface", "dimension": 2, "expression": "x+y", "y_max": 3}`)
	writeFile(t, dir, "unknown.yml", "expresion: x\n")
	writeFile(t, dir, "empty.yml", "title: nothing\n")
	writeFile(t, dir, "broken.json", "{")
	writeFile(t, dir, "notes.txt", "ignored")

	reg := &registryService{defs: make(map[string]registry.Definition)}
	s, d := newService(t, dir, reg, &storageService{store: storage.NewMemStore("load")})
	require.NoError(t, s.Load())

	exp := map[string]registry.Definition{
		"square": {
			Name:       "square",
			Dimension:  1,
			Expression: "x^2",
			XMin:       -1,
			XMax:       1,
			Points:     11,
			Parameters: map[string]float64{"P0": 2},
		},
		"surface": {
			Name:       "surface",
			Dimension:  2,
			Expression: "x+y",
			YMax:       3,
		},
	}
	if !cmp.Equal(exp, reg.defs) {
		t.Errorf("unexpected definitions -want/+got:\n%s", cmp.Diff(exp, reg.defs))
	}
	sort.Strings(d.loading)
	assert.Equal(t, []string{"broken.json", "empty.yml", "plane.json", "square.yaml", "unknown.yml"}, d.loading)
	assert.Len(t, d.errors, 3)
}

func TestService_LoadRemovesMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "expression: x\n")
	writeFile(t, dir, "b.yaml", "expression: 2*x\n")

	reg := &registryService{defs: make(map[string]registry.Definition)}
	st := &storageService{store: storage.NewMemStore("load")}
	s, _ := newService(t, dir, reg, st)
	require.NoError(t, s.Load())
	assert.Len(t, reg.defs, 2)

	require.NoError(t, os.Remove(filepath.Join(dir, "functions", "b.yaml")))
	// functions defined by hand are left alone
	reg.defs["manual"] = registry.Definition{Name: "manual", Expression: "x"}

	// a new service instance sees what the previous one loaded
	s, _ = newService(t, dir, reg, st)
	require.NoError(t, s.Load())
	_, okA := reg.defs["a"]
	_, okB := reg.defs["b"]
	_, okManual := reg.defs["manual"]
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okManual)
}

func TestService_LoadKeepsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sq.yaml", "expression: x^2\n")

	reg := &registryService{defs: make(map[string]registry.Definition)}
	s, d := newService(t, dir, reg, &storageService{store: storage.NewMemStore("load")})
	require.NoError(t, s.Load())
	require.Contains(t, reg.defs, "sq")

	// a bad edit keeps the function as it was
	writeFile(t, dir, "sq.yaml", "expression: x^3\nbogus: 1\n")
	require.NoError(t, s.Load())
	require.Contains(t, reg.defs, "sq")
	assert.Equal(t, "x^2", reg.defs["sq"].Expression)
	assert.Len(t, d.errors, 1)

	writeFile(t, dir, "sq.yaml", "expression: x^3\n")
	require.NoError(t, s.Load())
	assert.Equal(t, "x^3", reg.defs["sq"].Expression)

	// renaming the function in its file replaces it
	writeFile(t, dir, "sq.yaml", "name: cube\nexpression: x^3\n")
	require.NoError(t, s.Load())
	assert.NotContains(t, reg.defs, "sq")
	assert.Contains(t, reg.defs, "cube")
}

func TestService_LoadMissingDir(t *testing.T) {
	reg := &registryService{defs: make(map[string]registry.Definition)}
	s, d := newService(t, t.TempDir(), reg, &storageService{store: storage.NewMemStore("load")})
	require.NoError(t, s.Load())
	assert.Empty(t, reg.defs)
	assert.Empty(t, d.errors)
}

func TestConfig_Validate(t *testing.T) {
	c := load.NewConfig()
	assert.NoError(t, c.Validate())
	c.Enabled = true
	assert.Error(t, c.Validate())
	c.Dir = "/var/lib/fengine/load"
	assert.NoError(t, c.Validate())
}
