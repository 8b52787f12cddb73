/*
Package numeric implements the quadrature rules and the finite difference
estimator used by function entities.

All routines work on plain Go functions so that anything evaluable at a
point can be integrated. Evaluation failures are never replaced by a value,
they abort the computation and are returned wrapped with the abscissa that
failed. Sums are accumulated in index order so results are reproducible.
*/
package numeric
