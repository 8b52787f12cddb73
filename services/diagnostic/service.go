// Package diagnostic implements the Diagnostic interfaces of every
// component on top of a structured zap logger.
package diagnostic

import (
	"os"

	"github.com/datamelt/fengine/services/logging"
	"go.uber.org/zap"
)

// Service hands out component handlers sharing one root logger.
type Service struct {
	Logger *zap.Logger
}

// NewService returns a Service logging to l, a nil l discards everything.
func NewService(l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{Logger: l}
}

func (s *Service) NewFunctionHandler() *FunctionHandler {
	return &FunctionHandler{
		l: s.Logger.With(zap.String("service", "function")),
	}
}

func (s *Service) NewRegistryHandler() *RegistryHandler {
	return &RegistryHandler{
		l: s.Logger.With(zap.String("service", "registry")),
	}
}

func (s *Service) NewStorageHandler() *StorageHandler {
	return &StorageHandler{
		l: s.Logger.With(zap.String("service", "storage")),
	}
}

func (s *Service) NewHTTPDHandler() *HTTPDHandler {
	return &HTTPDHandler{
		l: s.Logger.With(zap.String("service", "http")),
	}
}

func (s *Service) NewLoadHandler() *LoadHandler {
	return &LoadHandler{
		l: s.Logger.With(zap.String("service", "load")),
	}
}

func (s *Service) NewServerHandler() *ServerHandler {
	return &ServerHandler{
		l: s.Logger.With(zap.String("source", "srv")),
	}
}

func (s *Service) NewCmdHandler() *CmdHandler {
	return &CmdHandler{
		l: s.Logger.With(zap.String("service", "run")),
	}
}

// BootstrapMainHandler returns a cmd handler logging to stderr with the
// default logging config, for use before the configured logger exists.
func BootstrapMainHandler() *CmdHandler {
	s := logging.NewService(logging.NewConfig(), os.Stdout, os.Stderr)
	if err := s.Open(); err != nil {
		return NewService(nil).NewCmdHandler()
	}
	return NewService(s.Root()).NewCmdHandler()
}
