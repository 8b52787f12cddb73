// Package server wires the fengine services together.
package server

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/datamelt/fengine/services/diagnostic"
	"github.com/datamelt/fengine/services/httpd"
	"github.com/datamelt/fengine/services/load"
	"github.com/datamelt/fengine/services/registry"
	"github.com/datamelt/fengine/services/storage"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const serverIDFilename = "server.id"

// BuildInfo represents the build details for the server code.
type BuildInfo struct {
	Version string
	Commit  string
	Branch  string
}

type Diagnostic interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Error(msg string, err error)
}

// Server represents a container for the storage and services.
// It is built using a Config and it manages the startup and shutdown of all
// services in the proper order.
type Server struct {
	dataDir  string
	hostname string

	config *Config

	err chan error

	HTTPDService    *httpd.Service
	StorageService  *storage.Service
	RegistryService *registry.Service
	LoadService     *load.Service

	// Metrics is the registry served on /metrics.
	Metrics *prometheus.Registry

	// List of services in startup order
	Services []Service
	// Map of service name to index in Services list
	ServicesByName map[string]int

	BuildInfo BuildInfo
	ServerID  uuid.UUID

	// Profiling
	CPUProfile string
	MemProfile string

	DiagService *diagnostic.Service
	diag        Diagnostic
}

// New returns a new instance of Server built from a config.
func New(c *Config, buildInfo BuildInfo, diagService *diagnostic.Service) (*Server, error) {
	err := c.Validate()
	if err != nil {
		return nil, fmt.Errorf("%s. To generate a valid configuration file run `fengined config > fengine.generated.conf`.", err)
	}
	d := diagService.NewServerHandler()
	s := &Server{
		config:         c,
		BuildInfo:      buildInfo,
		dataDir:        c.DataDir,
		hostname:       c.Hostname,
		err:            make(chan error),
		Metrics:        prometheus.NewRegistry(),
		ServicesByName: make(map[string]int),
		DiagService:    diagService,
		diag:           d,
	}
	s.diag.Info("fengine hostname", zap.String("hostname", s.hostname))

	// Setup IDs
	if err := s.setupIDs(); err != nil {
		return nil, err
	}
	s.diag.Info("server identity", zap.Stringer("server_id", s.ServerID))

	if err := s.Metrics.Register(collectors.NewGoCollector()); err != nil {
		return nil, errors.Wrap(err, "go collector")
	}
	if err := s.Metrics.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, errors.Wrap(err, "process collector")
	}

	s.initHTTPDService()
	s.appendStorageService()
	s.appendRegistryService()
	s.appendLoadService()

	// Append HTTPD Service last so that the API is not listening till everything else succeeded.
	s.appendHTTPDService()

	return s, nil
}

func (s *Server) AppendService(name string, srv Service) {
	if _, ok := s.ServicesByName[name]; ok {
		// Should be unreachable code
		panic("cannot append service twice")
	}
	i := len(s.Services)
	s.Services = append(s.Services, srv)
	s.ServicesByName[name] = i
}

func (s *Server) initHTTPDService() {
	d := s.DiagService.NewHTTPDHandler()
	srv := httpd.NewService(s.config.HTTP, s.Metrics, d)
	srv.Handler.Version = s.BuildInfo.Version

	s.HTTPDService = srv
}

func (s *Server) appendHTTPDService() {
	s.AppendService("httpd", s.HTTPDService)
}

func (s *Server) appendStorageService() {
	d := s.DiagService.NewStorageHandler()
	srv := storage.NewService(s.config.Storage, d)

	s.StorageService = srv
	s.AppendService("storage", srv)
}

func (s *Server) appendRegistryService() {
	d := s.DiagService.NewRegistryHandler()
	srv := registry.NewService(d)
	srv.StorageService = s.StorageService
	srv.HTTPDService = s.HTTPDService
	srv.Registerer = s.Metrics
	srv.Workers = s.config.SampleWorkers
	srv.MaxPoints = s.config.MaxPoints

	s.RegistryService = srv
	s.AppendService("registry", srv)
}

func (s *Server) appendLoadService() {
	d := s.DiagService.NewLoadHandler()
	srv := load.NewService(s.config.Load, d)
	srv.StorageService = s.StorageService
	srv.RegistryService = s.RegistryService

	s.LoadService = srv
	s.AppendService("load", srv)
}

// Err returns an error channel that multiplexes all out of band errors received from all services.
func (s *Server) Err() <-chan error { return s.err }

// Open opens all the services.
func (s *Server) Open() error {
	// Start profiling, if set.
	if err := s.startProfile(s.CPUProfile, s.MemProfile); err != nil {
		return err
	}

	if err := s.startServices(); err != nil {
		s.Close()
		return err
	}

	go s.watchServices()

	return nil
}

func (s *Server) startServices() error {
	for _, service := range s.Services {
		s.diag.Debug("opening service", zap.String("service", fmt.Sprintf("%T", service)))
		if err := service.Open(); err != nil {
			return fmt.Errorf("open service %T: %s", service, err)
		}
		s.diag.Debug("opened service", zap.String("service", fmt.Sprintf("%T", service)))

		// Load definition files once the registry can receive them.
		if service == s.LoadService {
			if err := s.LoadService.Load(); err != nil {
				return errors.Wrap(err, "failed to load function definitions")
			}
		}
	}
	return nil
}

// Watch if something dies
func (s *Server) watchServices() {
	err := <-s.HTTPDService.Err()
	s.err <- err
}

// Reload reloads the function definition files.
func (s *Server) Reload() {
	if err := s.LoadService.Load(); err != nil {
		s.diag.Error("failed to reload function definitions", err)
	}
}

// Close shuts down all services in reverse order.
func (s *Server) Close() error {
	s.stopProfile()

	// Stop serving requests first.
	if err := s.HTTPDService.Close(); err != nil {
		s.diag.Error("error closing httpd service", err)
	}

	for i := len(s.Services) - 1; i >= 0; i-- {
		service := s.Services[i]
		if service == s.HTTPDService {
			continue
		}
		s.diag.Debug("closing service", zap.String("service", fmt.Sprintf("%T", service)))
		if err := service.Close(); err != nil {
			s.diag.Error(fmt.Sprintf("error closing service %T", service), err)
		}
		s.diag.Debug("closed service", zap.String("service", fmt.Sprintf("%T", service)))
	}
	return nil
}

func (s *Server) setupIDs() error {
	// Create the data dir if not exists
	if f, err := os.Stat(s.dataDir); err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(s.dataDir, 0755); err != nil {
				return errors.Wrapf(err, "data_dir %q does not exist, failed to create it", s.dataDir)
			}
		} else {
			return errors.Wrapf(err, "failed to stat data dir %q", s.dataDir)
		}
	} else if !f.IsDir() {
		return fmt.Errorf("path data_dir %s exists and is not a directory", s.dataDir)
	}

	serverIDPath := filepath.Join(s.dataDir, serverIDFilename)
	serverID, err := s.readID(serverIDPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if serverID == uuid.Nil {
		serverID = uuid.New()
		if err := s.writeID(serverIDPath, serverID); err != nil {
			return errors.Wrap(err, "failed to save server ID")
		}
	}
	s.ServerID = serverID

	return nil
}

func (s *Server) readID(file string) (uuid.UUID, error) {
	f, err := os.Open(file)
	if err != nil {
		return uuid.Nil, err
	}
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.ParseBytes(b)
}

func (s *Server) writeID(file string, id uuid.UUID) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(id.String()))
	return err
}

// Service represents a service attached to the server.
type Service interface {
	Open() error
	Close() error
}

// prof stores the file locations of active profiles.
var prof struct {
	cpu *os.File
	mem *os.File
}

// StartProfile initializes the cpu and memory profile, if specified.
func (s *Server) startProfile(cpuprofile, memprofile string) error {
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return fmt.Errorf("cpuprofile: %v", err)
		}
		s.diag.Info("writing CPU profile", zap.String("file", cpuprofile))
		prof.cpu = f
		if err := pprof.StartCPUProfile(prof.cpu); err != nil {
			return fmt.Errorf("start cpu profile: %v", err)
		}
	}

	if memprofile != "" {
		f, err := os.Create(memprofile)
		if err != nil {
			return fmt.Errorf("memprofile: %v", err)
		}
		s.diag.Info("writing mem profile", zap.String("file", memprofile))
		prof.mem = f
		runtime.MemProfileRate = 4096
	}
	return nil
}

// StopProfile closes the cpu and memory profiles if they are running.
func (s *Server) stopProfile() {
	if prof.cpu != nil {
		pprof.StopCPUProfile()
		prof.cpu.Close()
		prof.cpu = nil
		s.diag.Info("CPU profile stopped")
	}
	if prof.mem != nil {
		if err := pprof.Lookup("heap").WriteTo(prof.mem, 0); err != nil {
			s.diag.Error("failed to write mem profile", err)
		}
		prof.mem.Close()
		prof.mem = nil
		s.diag.Info("mem profile stopped")
	}
}
