package httpd

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type Diagnostic interface {
	NewHTTPServerErrorLogger() *log.Logger

	StartingService()
	StoppedService()
	ShutdownTimeout()

	ListeningOn(addr string, proto string)

	HTTP(
		host string,
		start time.Time,
		method string,
		uri string,
		proto string,
		status int,
		referer string,
		userAgent string,
		reqID string,
		duration time.Duration,
	)

	Error(msg string, err error)
	RecoveryError(
		msg string,
		err string,
		host string,
		start time.Time,
		method string,
		uri string,
		proto string,
		reqID string,
	)
}

// Service serves the API handler on a TCP listener.
type Service struct {
	mu       sync.Mutex
	addr     string
	timeout  time.Duration
	listener net.Listener
	server   *http.Server
	done     chan struct{}
	err      chan error

	Handler *Handler

	diag Diagnostic
}

// NewService returns a service serving the API on the configured address,
// /metrics exposes the metrics of gatherer.
func NewService(c Config, gatherer prometheus.Gatherer, d Diagnostic) *Service {
	return &Service{
		addr:    c.BindAddress,
		timeout: time.Duration(c.ShutdownTimeout),
		err:     make(chan error, 1),
		Handler: NewHandler(c.LogEnabled, gatherer, d),
		diag:    d,
	}
}

// Open binds the listener and starts serving in the background.
func (s *Service) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diag.StartingService()

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.addr)
	}
	s.diag.ListeningOn(ln.Addr().String(), "http")

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler,
		ErrorLog:          s.diag.NewHTTPServerErrorLogger(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.done = make(chan struct{})
	go s.serve(s.server, ln, s.done)
	return nil
}

func (s *Service) serve(srv *http.Server, ln net.Listener, done chan struct{}) {
	defer close(done)
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		s.err <- nil
		return
	}
	s.err <- errors.Wrapf(err, "listener failed: addr=%s", ln.Addr())
}

// Close stops accepting connections and waits up to the shutdown timeout
// for in-flight requests before closing the remaining connections.
func (s *Service) Close() error {
	defer s.diag.StoppedService()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		s.diag.ShutdownTimeout()
		err = s.server.Close()
	}
	<-s.done
	s.server = nil
	return err
}

// Err reports the exit of the serving goroutine, nil after a clean Close.
func (s *Service) Err() <-chan error {
	return s.err
}

func (s *Service) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL returns the base URL of the API, empty before Open.
func (s *Service) URL() string {
	addr := s.Addr()
	if addr == nil {
		return ""
	}
	return "http://" + addr.String() + BasePath
}

func (s *Service) AddRoutes(routes []Route) error {
	return s.Handler.AddRoutes(routes)
}
