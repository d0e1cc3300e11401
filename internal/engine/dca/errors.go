package dca

import "fmt"

// DataError reports production history that cannot support a fit: too few
// points, duplicate or unordered dates, or an all-zero series. It is never
// retried.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "invalid production data: " + e.Reason
}

// NonConvergenceError reports that the optimizer exhausted its restart
// budget without reaching the convergence tolerance.
type NonConvergenceError struct {
	Model    ModelType
	Attempts int
	Err      error
}

func (e *NonConvergenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fit did not converge after %d attempts: %v", e.Model, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s fit did not converge after %d attempts", e.Model, e.Attempts)
}

func (e *NonConvergenceError) Unwrap() error { return e.Err }

// ComputationError reports a non-finite intermediate result from degenerate
// parameters. It is fatal to the single analysis that produced it and is
// never silently clamped.
type ComputationError struct {
	Stage string
	Value float64
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("non-finite result in %s: %v", e.Stage, e.Value)
}
