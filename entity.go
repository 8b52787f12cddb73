package fengine

import (
	"sort"

	"github.com/datamelt/fengine/expr"
	"github.com/datamelt/fengine/symbolic"
)

// DefaultPoints is the number of sample points of a new function.
const DefaultPoints = 500

// Diagnostic receives the failures a function records.
type Diagnostic interface {
	ParseFailed(title, text string, err error)
	SamplingFailed(title string, err error)
	SymbolicFailed(title, op string, err error)
}

type nopDiagnostic struct{}

func (nopDiagnostic) ParseFailed(string, string, error)    {}
func (nopDiagnostic) SamplingFailed(string, error)         {}
func (nopDiagnostic) SymbolicFailed(string, string, error) {}

// Option configures a function at construction.
type Option func(*entity)

// WithDiagnostic reports recorded failures to d.
func WithDiagnostic(d Diagnostic) Option {
	return func(e *entity) {
		if d != nil {
			e.diag = d
		}
	}
}

// WithSymbolic replaces the default Symbolic collaborator, nil disables
// symbolic transforms.
func WithSymbolic(s Symbolic) Option {
	return func(e *entity) {
		e.symbolic = s
	}
}

// WithPoints sets the initial number of sample points.
// Values below 2 are ignored.
func WithPoints(n int) Option {
	return func(e *entity) {
		if n >= 2 {
			e.points = n
		}
	}
}

// entity is the state shared by one and two variable functions.
type entity struct {
	title     string
	text      string
	mode      Mode
	variables []string
	points    int

	// strategy is nil while an expression function is unparsed.
	strategy strategy
	lastErr  error

	diag     Diagnostic
	symbolic Symbolic

	// invalidate drops the sample grid of the owning function.
	invalidate func()
}

func (e *entity) init(title string, variables []string, invalidate func(), opts []Option) {
	e.title = title
	e.variables = variables
	e.points = DefaultPoints
	e.diag = nopDiagnostic{}
	e.symbolic = symbolic.New()
	e.invalidate = invalidate
	for _, opt := range opts {
		opt(e)
	}
}

func (e *entity) initExternal(c Capability) {
	e.mode = ModeExternal
	e.strategy = external{capability: c}
}

// Title returns the display title.
func (e *entity) Title() string {
	return e.title
}

// SetTitle sets the display title.
func (e *entity) SetTitle(title string) {
	e.title = title
}

// Mode returns the evaluation strategy.
func (e *entity) Mode() Mode {
	return e.mode
}

// Expression returns the current expression text, after preprocessing.
// It is empty for external functions.
func (e *entity) Expression() string {
	return e.text
}

// Variables returns the variable names of the function, x or x and y.
func (e *entity) Variables() []string {
	return append([]string(nil), e.variables...)
}

// IsParsed reports whether the function can be evaluated.
// External functions are always parsed.
func (e *entity) IsParsed() bool {
	return e.strategy != nil
}

// LastError returns the most recent failure recorded by Parse, sampling or a
// symbolic operation. A successful Parse clears it.
func (e *entity) LastError() error {
	return e.lastErr
}

// Points returns the number of sample points used by Sample.
func (e *entity) Points() int {
	return e.points
}

// SetPoints sets the number of sample points and drops the sample grid.
func (e *entity) SetPoints(n int) error {
	if n < 2 {
		return ErrInvalidPointCount
	}
	e.points = n
	e.invalidate()
	return nil
}

// SetExpression stores new expression text. The text is passed through
// expr.Preprocess. The function becomes unparsed and its grid is dropped;
// call Parse to compile the new text.
func (e *entity) SetExpression(text string) error {
	if e.mode == ModeExternal {
		return ErrExternalMode
	}
	e.setText(expr.Preprocess(text))
	return nil
}

func (e *entity) setText(text string) {
	e.text = text
	e.strategy = nil
	e.invalidate()
}

// Parse compiles the expression text. It is a no-op when the function is
// already parsed, and always succeeds for external functions.
// A failure is returned, kept as LastError and reported to the Diagnostic.
func (e *entity) Parse() error {
	if e.strategy != nil {
		return nil
	}
	compiledExpr, err := expr.Parse(e.text, e.variables...)
	if err != nil {
		e.lastErr = err
		e.diag.ParseFailed(e.title, e.text, err)
		return err
	}
	e.strategy = newCompiled(compiledExpr, e.variables)
	e.lastErr = nil
	return nil
}

// SetParameter replaces every occurrence of name in the expression text by
// the literal value, see SubstituteParameter. The function becomes unparsed.
func (e *entity) SetParameter(name string, value float64) error {
	if e.mode == ModeExternal {
		return ErrExternalMode
	}
	text, err := SubstituteParameter(e.text, name, value)
	if err != nil {
		return err
	}
	e.setText(text)
	return nil
}

// SetParameters applies SetParameter for each entry, longest names first
// and then in lexical order, so P10 is substituted before P1.
// Nothing is changed if any entry is invalid.
func (e *entity) SetParameters(params map[string]float64) error {
	if e.mode == ModeExternal {
		return ErrExternalMode
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	text := e.text
	for _, name := range names {
		var err error
		if text, err = SubstituteParameter(text, name, params[name]); err != nil {
			return err
		}
	}
	e.setText(text)
	return nil
}

// valueAt evaluates the active strategy at x.
func (e *entity) valueAt(x ...float64) (float64, error) {
	if e.strategy == nil {
		return 0, ErrNotParsed
	}
	v, err := e.strategy.valueAt(x)
	if err != nil {
		return 0, &EvaluationError{X: append([]float64(nil), x...), Cause: err}
	}
	return v, nil
}

func (e *entity) samplingFailed(err error) {
	e.lastErr = err
	e.diag.SamplingFailed(e.title, err)
}
