// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package oracle defines the interface to the combinatorial solvers used for
// backbone extraction, and provides an implementation on top of the gini SAT
// solver.
//
// An Oracle owns a model.Model for its whole lifetime. The model is mutated
// through the Oracle only, so that implementations can keep incremental state
// in sync with it.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/or-tools/backbone/model"
)

// Status is the outcome of a solve.
type Status int

const (
	// Interrupted means the solve stopped without a conclusive answer, because
	// of a time limit, a cancelled context or any other reason.
	Interrupted Status = iota
	// Optimal means an optimal solution was found. For models without an
	// objective any feasible solution is optimal.
	Optimal
	// Infeasible means the model has no feasible solution.
	Infeasible
	// Unbounded means the objective of the model is unbounded.
	Unbounded
)

func (s Status) String() string {
	switch s {
	case Interrupted:
		return "INTERRUPTED"
	case Optimal:
		return "OPTIMAL"
	case Infeasible:
		return "INFEASIBLE"
	case Unbounded:
		return "UNBOUNDED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Finished returns true for conclusive statuses: optimal, infeasible and
// unbounded.
func (s Status) Finished() bool {
	return s == Optimal || s == Infeasible || s == Unbounded
}

// Result is the result of a solve.
type Result struct {
	Status Status
	// ObjectiveValue is only meaningful if Status is Optimal.
	ObjectiveValue float64
	// Values holds the value of every model variable, indexed by
	// model.VarIndex. It is nil unless Status is Optimal.
	Values  []float64
	Runtime time.Duration
}

// BoolValue returns the binarized value of the variable `v`.
func (r *Result) BoolValue(v model.VarIndex) bool {
	return ToBool(r.Values[v])
}

// ToBool converts a solver value of a binary variable to a boolean. Solver
// values may be slightly off 0 and 1 because of tolerances.
func ToBool(x float64) bool {
	return x > 0.5
}

// Oracle is a solver for a model it owns.
type Oracle interface {
	// Model returns the model of the oracle. Callers must not modify it
	// directly.
	Model() *model.Model
	// SetVariableBounds sets the bounds of the variable `v`.
	SetVariableBounds(v model.VarIndex, lb, ub float64)
	// AddConstraint adds a constraint to the model and returns its handle.
	AddConstraint(c model.Constraint) model.ConstraintID
	// RemoveConstraint removes the constraint with the given handle.
	RemoveConstraint(id model.ConstraintID)
	// SetObjective replaces the objective of the model.
	SetObjective(o model.Objective)
	// Solve solves the current model. A cancelled context interrupts the
	// solve, which is then reported with the Interrupted status. Errors are
	// reserved for models or parameters the oracle cannot handle.
	Solve(ctx context.Context) (*Result, error)
}

// ErrUnknownParameter is returned for parameter names an oracle does not
// support.
var ErrUnknownParameter = errors.New("unknown parameter")

// Parameters are solver parameters given as name/value pairs. The
// interpretation of the values is left to each oracle.
type Parameters map[string]string

func (p Parameters) String() string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + p[name]
	}
	return strings.Join(pairs, " ")
}
