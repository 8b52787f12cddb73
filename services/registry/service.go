package registry

import (
	"context"
	"math"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/datamelt/fengine"
	"github.com/datamelt/fengine/services/httpd"
	"github.com/datamelt/fengine/services/storage"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const storeNamespace = "registry"

// ErrWrongDimension is returned for an operation that does not apply to the
// dimension of the function, e.g. a volume of a one variable function.
var ErrWrongDimension = errors.New("operation not supported for the function dimension")

// ErrTooManyPoints is returned for a request evaluating more points than
// Service.MaxPoints.
var ErrTooManyPoints = errors.New("too many points")

// DefaultMaxPoints is the default number of points a single request may evaluate.
const DefaultMaxPoints = 1000000

type Diagnostic interface {
	Restored(count int)
	Defined(name string, dimension int)
	Deleted(name string)
	Error(msg string, err error)
	WithFunctionContext(name string) fengine.Diagnostic
}

// function is the surface shared by one and two variable functions.
type function interface {
	Title() string
	Expression() string
	Points() int
	IsParsed() bool
	LastError() error
	Parse() error
	SetExpression(text string) error
	SetParameters(params map[string]float64) error
	Transform(op string) error
	MathML() (string, error)
	Source() (string, error)
}

// entry is a live function. Reads that leave the function untouched take
// the read lock, everything that may change its text, grid or last error
// takes the write lock.
type entry struct {
	mu  sync.RWMutex
	def Definition
	fn  function
	f1  *fengine.Function1D
	f2  *fengine.Function2D
}

// Info describes a registered function.
type Info struct {
	Definition
	Parsed bool   `json:"parsed"`
	Error  string `json:"error,omitempty"`
}

func (e *entry) info() Info {
	i := Info{
		Definition: e.def,
		Parsed:     e.fn.IsParsed(),
	}
	if err := e.fn.LastError(); err != nil {
		i.Error = err.Error()
	}
	return i
}

// sync copies the mutable state of the function into its definition.
func (e *entry) sync() {
	e.def.Expression = e.fn.Expression()
	e.def.Points = e.fn.Points()
	if e.f1 != nil {
		e.def.XMin, e.def.XMax = e.f1.Min(), e.f1.Max()
	} else {
		e.def.XMin, e.def.XMax, e.def.YMin, e.def.YMax = e.f2.Range()
	}
}

// Service keeps the registered functions compiled in memory and persists
// their definitions.
type Service struct {
	mu      sync.RWMutex
	entries map[string]*entry

	dao     DefinitionsDAO
	metrics *metrics
	diag    Diagnostic

	StorageService interface {
		Store(namespace string) storage.Interface
	}
	// HTTPDService serves the function API, nil disables it.
	HTTPDService interface {
		AddRoutes([]httpd.Route) error
	}
	// Registerer receives the registry metrics, nil disables them.
	Registerer prometheus.Registerer
	// Workers bounds the goroutines sampling a single function,
	// zero means GOMAXPROCS.
	Workers int
	// Clock stamps the Created and Modified times of definitions.
	Clock clock.Clock
	// MaxPoints bounds the points, intervals or bins a single call may
	// evaluate, a 2D grid counts every cell. Zero disables the limit.
	MaxPoints int
}

func NewService(d Diagnostic) *Service {
	return &Service{
		entries:   make(map[string]*entry),
		metrics:   newMetrics(),
		diag:      d,
		Clock:     clock.New(),
		MaxPoints: DefaultMaxPoints,
	}
}

func (s *Service) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dao, err := newDefinitionKV(s.StorageService.Store(storeNamespace))
	if err != nil {
		return err
	}
	s.dao = dao

	if s.Registerer != nil {
		if err := s.metrics.register(s.Registerer); err != nil {
			return errors.Wrap(err, "failed to register metrics")
		}
	}

	defs, err := s.dao.List("", 0, -1)
	if err != nil {
		return errors.Wrap(err, "failed to list function definitions")
	}
	for _, def := range defs {
		e, err := s.newEntry(def)
		if err != nil {
			s.diag.Error("failed to restore function "+def.Name, err)
			continue
		}
		// unparseable definitions stay registered so they can be fixed
		s.entries[def.Name] = e
	}
	s.diag.Restored(len(s.entries))

	if s.HTTPDService != nil {
		if err := s.HTTPDService.AddRoutes(s.routes()); err != nil {
			return errors.Wrap(err, "failed to add API routes")
		}
	}
	return nil
}

func (s *Service) Close() error {
	if s.Registerer != nil {
		s.metrics.unregister(s.Registerer)
	}
	return nil
}

func (s *Service) newEntry(def Definition) (*entry, error) {
	opts := []fengine.Option{
		fengine.WithDiagnostic(s.diag.WithFunctionContext(def.Name)),
		fengine.WithPoints(def.Points),
	}
	title := def.Title
	if title == "" {
		title = def.Name
	}
	e := &entry{def: def}
	switch def.Dimension {
	case 1:
		e.f1 = fengine.New1D(title, def.Expression, def.XMin, def.XMax, false, opts...)
		e.fn = e.f1
	case 2:
		e.f2 = fengine.New2D(title, def.Expression, def.XMin, def.XMax, def.YMin, def.YMax, false, opts...)
		e.fn = e.f2
	default:
		return nil, errors.Wrapf(ErrInvalidDefinition, "dimension must be 1 or 2, got %d", def.Dimension)
	}
	s.parse(e)
	e.sync()
	return e, nil
}

// parse compiles the function and counts a failure.
func (s *Service) parse(e *entry) error {
	err := e.fn.Parse()
	if err != nil {
		s.metrics.parseFailures.WithLabelValues(e.def.Name).Inc()
	}
	return err
}

// Define registers a new function. Parameters of the definition are
// substituted into the expression before it is parsed and are not kept.
// Definitions whose expression does not parse are rejected.
func (s *Service) Define(def Definition) (Info, error) {
	return s.define(def, false)
}

// Redefine registers a function, replacing an existing function with the
// same name.
func (s *Service) Redefine(def Definition) (Info, error) {
	return s.define(def, true)
}

func (s *Service) define(def Definition, replace bool) (Info, error) {
	if err := def.Validate(); err != nil {
		return Info{}, err
	}
	if err := s.checkGrid(def.Dimension, def.Points); err != nil {
		return Info{}, err
	}
	now := s.now()
	def.ID = uuid.NewString()
	def.Created = now
	def.Modified = now

	params := def.Parameters
	def.Parameters = nil
	e, err := s.newEntry(def)
	if err != nil {
		return Info{}, err
	}
	if len(params) > 0 {
		if err := e.fn.SetParameters(params); err != nil {
			return Info{}, err
		}
		s.parse(e)
		e.sync()
	}
	if !e.fn.IsParsed() {
		return Info{}, e.fn.LastError()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	old, exists := s.entries[def.Name]
	switch {
	case exists && !replace:
		return Info{}, ErrFunctionExists
	case exists:
		e.def.ID = old.def.ID
		e.def.Created = old.def.Created
		err = s.dao.Replace(e.def)
	default:
		err = s.dao.Create(e.def)
	}
	if err != nil {
		return Info{}, err
	}
	s.entries[def.Name] = e
	s.diag.Defined(def.Name, def.Dimension)
	return e.info(), nil
}

func (s *Service) lookup(name string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return nil, ErrNoFunctionExists
	}
	return e, nil
}

// Get returns the named function.
func (s *Service) Get(name string) (Info, error) {
	e, err := s.lookup(name)
	if err != nil {
		return Info{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.info(), nil
}

// List returns the functions whose name matches pattern, see path.Match,
// sorted by name. An empty pattern matches every function.
func (s *Service) List(pattern string) ([]Info, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for name, e := range s.entries {
		if ok, _ := path.Match(pattern, name); pattern == "" || ok {
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()

	infos := make([]Info, len(entries))
	for i, e := range entries {
		e.mu.RLock()
		infos[i] = e.info()
		e.mu.RUnlock()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Delete removes the named function.
func (s *Service) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; !ok {
		return ErrNoFunctionExists
	}
	if err := s.dao.Delete(name); err != nil {
		return err
	}
	delete(s.entries, name)
	s.metrics.forget(name)
	s.diag.Deleted(name)
	return nil
}

// checkPoints fails when the product of counts exceeds MaxPoints.
func (s *Service) checkPoints(counts ...int) error {
	if s.MaxPoints <= 0 {
		return nil
	}
	total := 1.0
	for _, c := range counts {
		total *= float64(c)
	}
	if total > float64(s.MaxPoints) {
		return errors.Wrapf(ErrTooManyPoints, "%.0f points exceed the limit of %d", total, s.MaxPoints)
	}
	return nil
}

// checkGrid checks a sampling grid of n points per axis.
func (s *Service) checkGrid(dimension, n int) error {
	if dimension == 2 {
		return s.checkPoints(n, n)
	}
	return s.checkPoints(n)
}

func (s *Service) now() time.Time {
	return s.Clock.Now().UTC().Truncate(time.Millisecond)
}

// persist stores the current state of the function, e must be write locked.
func (s *Service) persist(e *entry) error {
	e.sync()
	e.def.Modified = s.now()
	if err := s.dao.Replace(e.def); err != nil {
		s.diag.Error("failed to persist function "+e.def.Name, err)
		return err
	}
	return nil
}

// persistFailed stores the state a failed operation left behind and
// returns cause, a storage failure is logged by persist.
func (s *Service) persistFailed(e *entry, cause error) error {
	if err := s.persist(e); err != nil {
		return errors.Wrapf(cause, "function not persisted: %v", err)
	}
	return cause
}

// Failure is a failed point of a batch evaluation.
type Failure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Evaluation is the result of a batch evaluation. Failed points are null.
type Evaluation struct {
	Values   []*float64   `json:"values,omitempty"`
	Matrix   [][]*float64 `json:"matrix,omitempty"`
	Failures []Failure    `json:"failures,omitempty"`
}

// Evaluate evaluates a one variable function at every xs, or a two variable
// function on the product of xs and ys. Failing points do not fail the
// call, they are listed in the result.
func (s *Service) Evaluate(name string, xs, ys []float64) (Evaluation, error) {
	e, err := s.lookup(name)
	if err != nil {
		return Evaluation{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	var (
		result Evaluation
		total  int
	)
	if e.f1 != nil {
		total = len(xs)
		if err := s.checkPoints(total); err != nil {
			return Evaluation{}, err
		}
		values, err := e.f1.EvaluateAll(xs)
		if result.Failures, err = failures(err); err != nil {
			return Evaluation{}, err
		}
		result.Values = nullable(values)
	} else {
		if err := s.checkPoints(len(xs), len(ys)); err != nil {
			return Evaluation{}, err
		}
		total = len(xs) * len(ys)
		matrix, err := e.f2.EvaluateAll(xs, ys)
		if result.Failures, err = failures(err); err != nil {
			return Evaluation{}, err
		}
		result.Matrix = make([][]*float64, len(matrix))
		for i, row := range matrix {
			result.Matrix[i] = nullable(row)
		}
	}
	s.metrics.evaluations.WithLabelValues(name).Add(float64(total))
	s.metrics.evaluationFailures.WithLabelValues(name).Add(float64(len(result.Failures)))
	return result, nil
}

// failures splits a batch error into per point failures.
// Any other error is returned as is.
func failures(err error) ([]Failure, error) {
	if err == nil {
		return nil, nil
	}
	batch, ok := err.(*fengine.BatchError)
	if !ok {
		return nil, err
	}
	fs := make([]Failure, len(batch.Failures))
	for i, f := range batch.Failures {
		fs[i] = Failure{Index: f.Index, Error: f.Err.Error()}
	}
	return fs, nil
}

// nullable maps the NaN slots of a batch evaluation to nil.
func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if !math.IsNaN(values[i]) {
			out[i] = &values[i]
		}
	}
	return out
}

// Range overrides the stored bounds of a function.
type Range struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// SampleRequest selects the grid to sample. Zero values use the stored
// point count and bounds.
type SampleRequest struct {
	Points int    `json:"points"`
	Range  *Range `json:"range,omitempty"`
}

// Sample is a sampled grid, Z is set for two variable functions.
type Sample struct {
	X []float64   `json:"x"`
	Y []float64   `json:"y"`
	Z [][]float64 `json:"z,omitempty"`
}

// Sample samples the function and stores the new bounds and point count,
// also when sampling fails.
func (s *Service) Sample(ctx context.Context, name string, req SampleRequest) (Sample, error) {
	e, err := s.lookup(name)
	if err != nil {
		return Sample{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	n := req.Points
	if n == 0 {
		n = e.fn.Points()
	}
	if err := s.checkGrid(e.def.Dimension, n); err != nil {
		return Sample{}, err
	}
	timer := prometheus.NewTimer(s.metrics.sampleDuration.WithLabelValues(name))
	var sample Sample
	if e.f1 != nil {
		min, max := e.f1.Min(), e.f1.Max()
		if req.Range != nil {
			min, max = req.Range.XMin, req.Range.XMax
		}
		grid, err := e.f1.SampleGridParallel(ctx, min, max, n, s.Workers)
		if err != nil {
			return Sample{}, s.persistFailed(e, err)
		}
		sample = Sample{X: grid.X, Y: grid.Y}
	} else {
		xmin, xmax, ymin, ymax := e.f2.Range()
		if req.Range != nil {
			xmin, xmax, ymin, ymax = req.Range.XMin, req.Range.XMax, req.Range.YMin, req.Range.YMax
		}
		grid, err := e.f2.SampleGrid(xmin, xmax, ymin, ymax, n)
		if err != nil {
			return Sample{}, s.persistFailed(e, err)
		}
		sample = Sample{X: grid.X, Y: grid.Y, Z: grid.Z}
	}
	timer.ObserveDuration()
	return sample, s.persist(e)
}

// Integrate integrates a one variable function, see fengine.Function1D.Integral.
func (s *Service) Integrate(name, method string, n int, min, max float64) (float64, error) {
	e, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.f1 == nil {
		return 0, ErrWrongDimension
	}
	if err := s.checkPoints(n); err != nil {
		return 0, err
	}
	return e.f1.Integral(method, n, min, max)
}

// Differentiate differentiates a one variable function.
func (s *Service) Differentiate(name string, n int, min, max float64) ([]float64, error) {
	e, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.f1 == nil {
		return nil, ErrWrongDimension
	}
	if err := s.checkPoints(n); err != nil {
		return nil, err
	}
	return e.f1.Differentiate(n, min, max)
}

// Volume integrates a two variable function over a rectangle.
func (s *Service) Volume(name string, nx, ny int, r Range) (float64, error) {
	e, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.f2 == nil {
		return 0, ErrWrongDimension
	}
	if err := s.checkPoints(nx+1, ny+1); err != nil {
		return 0, err
	}
	return e.f2.Volume2(nx, ny, r.XMin, r.XMax, r.YMin, r.YMax)
}

// mutate applies f to the function under the write lock, parses the
// result and persists it. A parse failure is returned together with the
// updated Info; the function stays registered, unparsed.
func (s *Service) mutate(name string, f func(function) error) (Info, error) {
	e, err := s.lookup(name)
	if err != nil {
		return Info{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := f(e.fn); err != nil {
		return e.info(), err
	}
	parseErr := s.parse(e)
	if err := s.persist(e); err != nil {
		return e.info(), err
	}
	return e.info(), parseErr
}

// SetParameters substitutes parameter values into the expression.
func (s *Service) SetParameters(name string, params map[string]float64) (Info, error) {
	return s.mutate(name, func(fn function) error {
		return fn.SetParameters(params)
	})
}

// SetExpression replaces the expression text.
func (s *Service) SetExpression(name, text string) (Info, error) {
	return s.mutate(name, func(fn function) error {
		return fn.SetExpression(text)
	})
}

// Transform applies a symbolic rewriting operation, see fengine.Transform.
func (s *Service) Transform(name, op string) (Info, error) {
	return s.mutate(name, func(fn function) error {
		return fn.Transform(op)
	})
}

// Render exports the expression as fengine.OpMathML or fengine.OpSource.
func (s *Service) Render(name, op string) (string, error) {
	e, err := s.lookup(name)
	if err != nil {
		return "", err
	}
	// a failure is recorded on the function
	e.mu.Lock()
	defer e.mu.Unlock()
	switch op {
	case fengine.OpMathML:
		return e.fn.MathML()
	case fengine.OpSource:
		return e.fn.Source()
	}
	return "", &fengine.SymbolicError{Op: op, Cause: fengine.ErrUnknownOperation}
}

// BinsRequest selects the histogram bins. Zero Bins uses the sampled grid
// as bins, sampling first if needed. BinsY defaults to Bins.
type BinsRequest struct {
	Bins  int    `json:"bins"`
	BinsY int    `json:"bins_y"`
	Range *Range `json:"range,omitempty"`
}

// Bins hands function values over to a histogram, the result is a
// fengine.Bins1D or fengine.Bins2D.
func (s *Service) Bins(name string, req BinsRequest) (interface{}, error) {
	e, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if req.Bins == 0 {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.f1 != nil {
			return e.f1.GridBins()
		}
		return e.f2.GridBins()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	r := Range{XMin: e.def.XMin, XMax: e.def.XMax, YMin: e.def.YMin, YMax: e.def.YMax}
	if req.Range != nil {
		r = *req.Range
	}
	if e.f1 != nil {
		if err := s.checkPoints(req.Bins); err != nil {
			return nil, err
		}
		return e.f1.Bins(req.Bins, r.XMin, r.XMax)
	}
	ny := req.BinsY
	if ny == 0 {
		ny = req.Bins
	}
	if err := s.checkPoints(req.Bins, ny); err != nil {
		return nil, err
	}
	return e.f2.Bins(req.Bins, r.XMin, r.XMax, ny, r.YMin, r.YMax)
}
