package expr

import "sync"

// VarsPool pools binding maps so repeated evaluations do not allocate.
// Each goroutine must Get its own Vars.
type VarsPool interface {
	Get() Vars
	Put(vars Vars)

	Variables() []string
}

type varsPool struct {
	variables []string
	pool      sync.Pool
}

// NewVarsPool creates a VarsPool whose bindings hold the given variables.
func NewVarsPool(variables ...string) VarsPool {
	p := &varsPool{
		variables: variables,
	}

	p.pool = sync.Pool{
		New: func() interface{} {
			return make(Vars, len(p.variables))
		},
	}

	return p
}

func (p *varsPool) Variables() []string {
	return p.variables
}

// Get returns an empty binding map.
func (p *varsPool) Get() Vars {
	return p.pool.Get().(Vars)
}

// Put clears the bindings and returns them to the pool.
func (p *varsPool) Put(vars Vars) {
	for k := range vars {
		delete(vars, k)
	}
	p.pool.Put(vars)
}
