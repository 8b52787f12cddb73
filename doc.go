/*
	Package fengine is an engine for analytic functions of one or two real variables.

	A function is built from expression text such as "2*x+1" or "sin(x)*y",
	compiled with the expr package and then evaluated, sampled on a uniform
	grid, integrated or differentiated with the numeric package.

	Code Organization:

	The expr package tokenizes, parses and evaluates expression text.
	The numeric package holds the quadrature rules and the finite difference estimator.
	The symbolic package provides the default Symbolic implementation.
	This package owns the function entities, Function1D and Function2D.

	Other Concepts:

	Parsed -- An expression function must be parsed before it can be evaluated.
	Editing the text, substituting a parameter or applying a symbolic transform
	leaves the function unparsed until Parse is called again.

	External -- A function may wrap a Capability instead of expression text.
	Such a function is always parsed and delegates every evaluation.

	Concurrency -- Functions are not safe for concurrent use. Evaluate,
	EvaluateAll, the integrals and Differentiate only read the function and may
	run concurrently with each other. Everything else must be serialized, see
	the registry service for one way to do this.
*/
package fengine
