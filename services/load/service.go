package load

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/datamelt/fengine/services/registry"
	"github.com/datamelt/fengine/services/storage"
	"github.com/ghodss/yaml"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// The storage namespace for all load data.
const loadNamespace = "load"

type Diagnostic interface {
	Debug(msg string)
	Error(msg string, err error)
	Loading(thing string, file string)
}

type Service struct {
	mu     sync.Mutex
	config Config

	items ItemsDAO

	StorageService interface {
		Store(namespace string) storage.Interface
	}
	RegistryService interface {
		Redefine(def registry.Definition) (registry.Info, error)
		Delete(name string) error
	}

	diag Diagnostic
}

func NewService(c Config, d Diagnostic) *Service {
	return &Service{
		config: c,
		diag:   d,
	}
}

func (s *Service) Open() error {
	if s.StorageService == nil {
		return errors.New("StorageService cannot be nil")
	}
	s.items = newItemKV(s.StorageService.Store(loadNamespace))
	return nil
}

func (s *Service) Close() error {
	return nil
}

// Load defines a function for every definition file of the load directory
// and removes previously loaded functions whose file is gone. Files that
// cannot be read or defined are reported and skipped, the functions they
// defined before stay registered.
func (s *Service) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.config.Enabled {
		return nil
	}

	files, err := s.functionFiles()
	if os.IsNotExist(err) {
		s.diag.Debug("skipping load... load directory does not exist")
		return nil
	} else if err != nil {
		return errors.Wrap(err, "failed to list function files")
	}

	loaded := make(map[string]bool, len(files))
	failed := make(map[string]bool)
	for _, f := range files {
		s.diag.Loading("function", f)
		name, err := s.loadFunction(f)
		if err != nil {
			s.diag.Error("failed to load file "+f, err)
			failed[f] = true
			continue
		}
		loaded[name] = true
	}
	return s.removeMissing(loaded, failed)
}

// functionFiles lists the .json, .yml and .yaml files of the functions directory.
func (s *Service) functionFiles() ([]string, error) {
	dir := s.config.functionsDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".json", ".yml", ".yaml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func (s *Service) loadFunction(f string) (string, error) {
	def, err := decodeDefinition(f)
	if err != nil {
		return "", err
	}
	if _, err := s.RegistryService.Redefine(def); err != nil {
		return "", errors.Wrapf(err, "failed to define function %q", def.Name)
	}
	if err := s.items.Set(Item{ID: def.Name, File: f}); err != nil {
		return "", err
	}
	return def.Name, nil
}

// decodeDefinition reads a YAML or JSON definition file.
// The function name defaults to the file name without extension and the
// dimension defaults to 1.
func decodeDefinition(f string) (registry.Definition, error) {
	var def registry.Definition
	data, err := os.ReadFile(f)
	if err != nil {
		return def, errors.Wrapf(err, "failed to read file %q", f)
	}
	if ext := filepath.Ext(f); ext == ".yml" || ext == ".yaml" {
		if data, err = yaml.YAMLToJSON(data); err != nil {
			return def, errors.Wrapf(err, "failed to convert yaml file %q", f)
		}
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return def, errors.Wrapf(err, "failed to unmarshal file %q", f)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      &def,
	})
	if err != nil {
		return def, err
	}
	if err := dec.Decode(raw); err != nil {
		return def, errors.Wrapf(err, "invalid definition in %q", f)
	}
	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
	}
	if def.Dimension == 0 {
		def.Dimension = 1
	}
	return def, nil
}

// removeMissing deletes the loaded items that no file defines anymore,
// items of failed files are kept.
func (s *Service) removeMissing(loaded, failed map[string]bool) error {
	items, err := s.items.List()
	if err != nil {
		return err
	}
	for _, item := range items {
		if loaded[item.ID] || failed[item.File] {
			continue
		}
		s.diag.Debug("removing function " + item.ID + " no longer defined by " + item.File)
		if err := s.RegistryService.Delete(item.ID); err != nil && err != registry.ErrNoFunctionExists {
			return err
		}
		if err := s.items.Delete(item.ID); err != nil {
			return err
		}
	}
	return nil
}
