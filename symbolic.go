package fengine

// Symbolic transforms expression text. Each method receives the current
// text and returns new text, or an export string for MathML and Source.
type Symbolic interface {
	Simplify(text string) (string, error)
	Expand(text string) (string, error)
	Factorize(text string) (string, error)
	Elementary(text string) (string, error)
	Numeric(text string) (string, error)
	MathML(text string) (string, error)
	Source(text string) (string, error)
}

// Symbolic operation names.
const (
	OpSimplify   = "simplify"
	OpExpand     = "expand"
	OpFactorize  = "factorize"
	OpElementary = "elementary"
	OpNumeric    = "numeric"
	OpMathML     = "mathml"
	OpSource     = "source"
)

// Simplify replaces the text with its simplified form, see Transform.
func (e *entity) Simplify() error { return e.Transform(OpSimplify) }

// Expand replaces the text with its expanded form, see Transform.
func (e *entity) Expand() error { return e.Transform(OpExpand) }

// Factorize replaces the text with its factorized form, see Transform.
func (e *entity) Factorize() error { return e.Transform(OpFactorize) }

// Elementary replaces the text with its elementary form, see Transform.
func (e *entity) Elementary() error { return e.Transform(OpElementary) }

// Numeric replaces the text with its numeric form, see Transform.
func (e *entity) Numeric() error { return e.Transform(OpNumeric) }

// Transform applies the named rewriting operation of the Symbolic
// collaborator. On success the text is replaced as by SetExpression and the
// function becomes unparsed. On failure the text is kept and the
// *SymbolicError is recorded as LastError.
func (e *entity) Transform(op string) error {
	if e.mode == ModeExternal {
		return ErrExternalMode
	}
	var fn func(string) (string, error)
	if e.symbolic != nil {
		switch op {
		case OpSimplify:
			fn = e.symbolic.Simplify
		case OpExpand:
			fn = e.symbolic.Expand
		case OpFactorize:
			fn = e.symbolic.Factorize
		case OpElementary:
			fn = e.symbolic.Elementary
		case OpNumeric:
			fn = e.symbolic.Numeric
		default:
			return &SymbolicError{Op: op, Cause: ErrUnknownOperation}
		}
	}
	text, err := e.callSymbolic(op, fn)
	if err != nil {
		return err
	}
	return e.SetExpression(text)
}

// MathML returns the presentation MathML of the text.
func (e *entity) MathML() (string, error) {
	if e.symbolic == nil {
		return e.callSymbolic(OpMathML, nil)
	}
	return e.callSymbolic(OpMathML, e.symbolic.MathML)
}

// Source returns Go source code computing the text.
func (e *entity) Source() (string, error) {
	if e.symbolic == nil {
		return e.callSymbolic(OpSource, nil)
	}
	return e.callSymbolic(OpSource, e.symbolic.Source)
}

func (e *entity) callSymbolic(op string, fn func(string) (string, error)) (string, error) {
	if e.mode == ModeExternal {
		return "", ErrExternalMode
	}
	var err error
	if fn == nil {
		err = &SymbolicError{Op: op, Cause: ErrNoSymbolic}
	} else {
		var out string
		if out, err = fn(e.text); err == nil {
			return out, nil
		}
		err = &SymbolicError{Op: op, Cause: err}
	}
	e.lastErr = err
	e.diag.SymbolicFailed(e.title, op, err)
	return "", err
}
