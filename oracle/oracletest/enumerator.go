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

// Package oracletest provides a deterministic oracle.Oracle for tests.
package oracletest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/or-tools/backbone/model"
	"github.com/google/or-tools/backbone/oracle"
)

// MaxAssignments bounds the number of assignments an Enumerator visits in a
// single solve.
const MaxAssignments = 1 << 20

const tol = 1e-9

// ErrTooLarge is returned by Solve for models with too many assignments.
var ErrTooLarge = errors.New("model too large to enumerate")

// Enumerator solves models by enumerating every assignment of their variables
// in lexicographic order, variable 0 being the most significant. Among the
// optimal assignments it returns the first one, so results are reproducible.
//
// Script and Err override the outcome of given calls to Solve, numbered from
// 1: a scripted error is returned as is, a scripted non-optimal status is
// returned without solving.
type Enumerator struct {
	Script map[int]oracle.Status
	Err    map[int]error

	m     *model.Model
	calls int
	// Statuses holds the status returned by each call to Solve.
	Statuses []oracle.Status
}

// New returns an Enumerator owning `m`.
func New(m *model.Model) *Enumerator {
	return &Enumerator{m: m}
}

// Calls returns the number of calls to Solve so far.
func (e *Enumerator) Calls() int {
	return e.calls
}

// Model implements oracle.Oracle.
func (e *Enumerator) Model() *model.Model {
	return e.m
}

// SetVariableBounds implements oracle.Oracle.
func (e *Enumerator) SetVariableBounds(v model.VarIndex, lb, ub float64) {
	e.m.SetBounds(v, lb, ub)
}

// AddConstraint implements oracle.Oracle.
func (e *Enumerator) AddConstraint(c model.Constraint) model.ConstraintID {
	return e.m.AddConstraint(c)
}

// RemoveConstraint implements oracle.Oracle.
func (e *Enumerator) RemoveConstraint(id model.ConstraintID) {
	if !e.m.RemoveConstraint(id) {
		panic(fmt.Sprintf("RemoveConstraint(%d): no such constraint", id))
	}
}

// SetObjective implements oracle.Oracle.
func (e *Enumerator) SetObjective(o model.Objective) {
	e.m.SetObjective(o)
}

// Solve implements oracle.Oracle.
func (e *Enumerator) Solve(ctx context.Context) (*oracle.Result, error) {
	start := time.Now()
	e.calls++
	if err := e.Err[e.calls]; err != nil {
		return nil, err
	}
	res := &oracle.Result{Status: oracle.Interrupted}
	defer func() {
		res.Runtime = time.Since(start)
		e.Statuses = append(e.Statuses, res.Status)
	}()
	if status, ok := e.Script[e.calls]; ok && status != oracle.Optimal {
		res.Status = status
		return res, nil
	}
	if ctx.Err() != nil {
		return res, nil
	}

	best, err := e.enumerate()
	if err != nil {
		return nil, err
	}
	if best == nil {
		res.Status = oracle.Infeasible
		return res, nil
	}
	res.Status = oracle.Optimal
	res.Values = best
	res.ObjectiveValue = e.m.ObjectiveValue(best)
	return res, nil
}

func (e *Enumerator) enumerate() ([]float64, error) {
	n := e.m.NumVars()
	lo := make([]float64, n)
	hi := make([]float64, n)
	count := 1.0
	for i := 0; i < n; i++ {
		v := e.m.Var(model.VarIndex(i))
		if v.Type == model.Continuous {
			return nil, fmt.Errorf("variable %s: continuous variables are not supported", v.Name)
		}
		lo[i] = math.Ceil(v.Lower - tol)
		hi[i] = math.Floor(v.Upper + tol)
		if lo[i] > hi[i] {
			return nil, nil
		}
		count *= hi[i] - lo[i] + 1
		if count > MaxAssignments {
			return nil, fmt.Errorf("%w: more than %d assignments", ErrTooLarge, MaxAssignments)
		}
	}

	sense := 1.0
	if e.m.Objective().Sense == model.Maximize {
		sense = -1
	}
	values := append([]float64(nil), lo...)
	var best []float64
	bestObj := math.Inf(1)
	for {
		if e.m.Satisfies(values, tol) {
			if obj := sense * e.m.ObjectiveValue(values); obj < bestObj-tol {
				best = append(best[:0], values...)
				bestObj = obj
			}
		}
		i := n - 1
		for ; i >= 0 && values[i] == hi[i]; i-- {
			values[i] = lo[i]
		}
		if i < 0 {
			return best, nil
		}
		values[i]++
	}
}
