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

// Package extractor computes the backbone of binary models: the binary
// variables taking the same value in every optimal solution of an
// optimization model, or in every feasible solution of a feasibility model.
//
// The extractor solves the model once to get a reference solution, then
// tests chunks of candidate variables by forbidding the chunk from matching
// the reference. An infeasible test proves every variable of the chunk to be
// backbone, and the next chunk is twice as large. A feasible test gives a
// solution whose differences with the reference are all non-backbone
// variables, and the next chunk has a single variable.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	log "github.com/golang/glog"

	"github.com/google/or-tools/backbone/model"
	"github.com/google/or-tools/backbone/oracle"
)

// FixObjectiveName is the name of the constraint fixing the objective to its
// optimal value.
const FixObjectiveName = "fix_objective"

// ErrNoProgress is returned when the oracle reports a solution of a chunk test
// that agrees with the reference solution on every candidate.
var ErrNoProgress = errors.New("chunk test solution matches the reference solution")

// Option configures an Extractor.
type Option func(*Extractor)

// WithKnownOptimum makes the extractor trust `optimum` as the optimal
// objective value instead of computing it. The value is not checked; a wrong
// value yields a wrong backbone. It is ignored for feasibility models.
func WithKnownOptimum(optimum float64) Option {
	return func(e *Extractor) {
		e.knownOptimum = &optimum
	}
}

// WithProgress sets the writer receiving the progress narration. By default
// the narration is discarded.
func WithProgress(w io.Writer) Option {
	return func(e *Extractor) {
		e.progress = w
	}
}

// WithMetrics makes the extractor update `m`.
func WithMetrics(m *Metrics) Option {
	return func(e *Extractor) {
		e.metrics = m
	}
}

// Extractor extracts the backbone of the model of an oracle. The model is
// modified: the objective is replaced by a constraint fixing it to its
// optimal value, and backbone variables get fixed bounds.
type Extractor struct {
	o            oracle.Oracle
	log          *LogWriter
	knownOptimum *float64
	progress     io.Writer
	metrics      *Metrics

	optimization bool
	// binaries[i] is the model index of binary variable i. The remaining
	// fields refer to binary variables by i.
	binaries   []model.VarIndex
	values     []bool
	candidates []int
	backbones  map[int]bool
	chunkSize  int

	summary Summary
	// afterStep, if set, is called after each chunk test.
	afterStep func()
}

// New creates an extractor for the model of `o`, writing the backbone to
// `log`.
func New(o oracle.Oracle, log *LogWriter, opts ...Option) *Extractor {
	m := o.Model()
	e := &Extractor{
		o:            o,
		log:          log,
		progress:     io.Discard,
		optimization: m.IsOptimization(),
		binaries:     m.BinaryVars(),
		backbones:    make(map[int]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.summary = Summary{
		Model:        m.Name(),
		Optimization: e.optimization,
		Binaries:     len(e.binaries),
	}
	return e
}

// Backbone returns the backbone variables found so far, with their values.
func (e *Extractor) Backbone() map[model.VarIndex]bool {
	b := make(map[model.VarIndex]bool, len(e.backbones))
	for i, value := range e.backbones {
		b[e.binaries[i]] = value
	}
	return b
}

func (e *Extractor) say(format string, args ...any) {
	fmt.Fprintf(e.progress, format+"\n", args...)
}

// Run extracts the backbone. Backbone variables are written to the log as
// soon as they are proven. An interrupted solve ends the run with the
// Aborted outcome, leaving the log without terminator. Errors of the oracle
// or of the log are returned as is, along with the summary of the run so far.
func (e *Extractor) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	defer func() {
		e.summary.Runtime = time.Since(start)
		e.summary.Candidates = len(e.candidates)
		e.summary.Backbones = e.log.Records()
	}()

	ok, err := e.resolveOptimum(ctx)
	if err == nil && ok {
		err = e.extract(ctx)
	}
	if err != nil {
		e.summary.Outcome = Failed
	}
	return &e.summary, err
}

// resolveOptimum anchors the objective, solves the model and captures the
// reference solution. It returns false if the run ends there.
func (e *Extractor) resolveOptimum(ctx context.Context) (bool, error) {
	if e.optimization {
		e.say("Model is an optimization problem")
	} else {
		e.say("Model is a feasibility problem")
	}
	if e.knownOptimum != nil {
		if e.optimization {
			e.say("Using optimum specified as parameter: %v", *e.knownOptimum)
			e.summary.Optimum = *e.knownOptimum
			e.summary.OptimumKnown = true
			e.fixObjective(*e.knownOptimum)
		} else {
			e.say("Model is a feasibility problem, ignoring optimum parameter")
		}
	}

	e.say("Solving the model")
	res, err := e.solve(ctx)
	if err != nil {
		return false, fmt.Errorf("solving the model: %w", err)
	}
	switch res.Status {
	case oracle.Optimal:
	case oracle.Interrupted:
		e.say("Interrupted")
		e.summary.Outcome = Aborted
		return false, nil
	default:
		e.say("Instance is infeasible or unbounded")
		e.summary.Outcome = Infeasible
		return false, nil
	}

	switch {
	case !e.optimization:
		e.say("Instance is feasible")
	case e.knownOptimum != nil:
		e.say("Optimum used leads to feasible solution")
	default:
		e.summary.Optimum = res.ObjectiveValue
		e.say("Optimum is: %v", res.ObjectiveValue)
		e.fixObjective(res.ObjectiveValue)
	}

	// The solution proving the optimum satisfies the anchor as well.
	e.say("Get solution values")
	e.values = make([]bool, len(e.binaries))
	e.candidates = make([]int, len(e.binaries))
	for i, v := range e.binaries {
		e.values[i] = res.BoolValue(v)
		e.candidates[i] = i
	}
	e.chunkSize = 1
	return true, nil
}

// fixObjective adds the constraint `objective == target` and removes the
// objective, so that later solves only check feasibility.
func (e *Extractor) fixObjective(target float64) {
	obj := e.o.Model().Objective()
	e.o.AddConstraint(model.Constraint{
		Name: FixObjectiveName,
		Expr: obj.Expr,
		Rel:  model.Equal,
		RHS:  target,
	})
	e.o.SetObjective(model.Objective{Expr: model.NewLinearExpr(), Sense: model.Minimize})
}

func (e *Extractor) extract(ctx context.Context) error {
	for len(e.candidates) > 0 {
		if e.chunkSize < 1 || e.chunkSize > len(e.candidates) {
			log.Fatalf("chunk size %d out of [1, %d]", e.chunkSize, len(e.candidates))
		}
		chunk := e.candidates[:e.chunkSize:e.chunkSize]
		e.say("Candidates=%d chunk_size=%d", len(e.candidates), e.chunkSize)
		e.metrics.observeChunk(e.chunkSize, len(e.candidates))
		e.summary.Chunks++

		res, err := e.testChunk(ctx, chunk)
		if err != nil {
			return err
		}
		switch res.Status {
		case oracle.Optimal:
			e.say("\tOptimum")
			if err := e.harvest(res); err != nil {
				return err
			}
			e.chunkSize = 1
			e.metrics.observeResult(false, len(chunk), len(e.candidates))
		case oracle.Infeasible, oracle.Unbounded:
			e.say("\tNOT Optimum")
			if err := e.commit(chunk); err != nil {
				return err
			}
			e.chunkSize = max(1, min(2*e.chunkSize, len(e.candidates)))
			e.metrics.observeResult(true, len(chunk), len(e.candidates))
		default:
			e.say("\tInterrupted")
			e.summary.Outcome = Aborted
			return nil
		}
		if e.afterStep != nil {
			e.afterStep()
		}
	}

	e.say("Backbone extraction complete")
	if err := e.log.WriteTerminator(); err != nil {
		return err
	}
	e.summary.Outcome = Complete
	return nil
}

// testChunk solves the model with every variable of the chunk forbidden from
// taking its reference value.
func (e *Extractor) testChunk(ctx context.Context, chunk []int) (*oracle.Result, error) {
	if len(chunk) == 1 {
		return e.flipOne(ctx, chunk[0])
	}
	return e.flipAny(ctx, chunk)
}

// flipOne fixes a single variable to the opposite of its reference value.
// The variable stays fixed to its reference value if the model becomes
// infeasible, and is freed otherwise.
func (e *Extractor) flipOne(ctx context.Context, i int) (res *oracle.Result, err error) {
	v := e.binaries[i]
	flipped := boolToFloat(!e.values[i])
	e.o.SetVariableBounds(v, flipped, flipped)
	defer func() {
		if err == nil && res.Status.Finished() && res.Status != oracle.Optimal {
			e.fix(i)
			return
		}
		e.o.SetVariableBounds(v, 0, 1)
	}()
	return e.solve(ctx)
}

// flipAny requires at least one variable of the chunk to differ from its
// reference value. The constraint lives for a single solve. The chunk is
// fixed to its reference values if the model becomes infeasible.
func (e *Extractor) flipAny(ctx context.Context, chunk []int) (*oracle.Result, error) {
	expr := model.NewLinearExpr()
	for _, i := range chunk {
		if e.values[i] {
			expr.AddConstant(1).AddTerm(e.binaries[i], -1)
		} else {
			expr.AddTerm(e.binaries[i], 1)
		}
	}
	id := e.o.AddConstraint(model.Constraint{
		Name: "flip_chunk",
		Expr: expr,
		Rel:  model.GreaterOrEqual,
		RHS:  1,
	})
	defer e.o.RemoveConstraint(id)

	res, err := e.solve(ctx)
	if err != nil {
		return nil, err
	}
	if res.Status.Finished() && res.Status != oracle.Optimal {
		for _, i := range chunk {
			e.fix(i)
		}
	}
	return res, nil
}

func (e *Extractor) fix(i int) {
	value := boolToFloat(e.values[i])
	e.o.SetVariableBounds(e.binaries[i], value, value)
}

// harvest drops from the candidates every variable whose value in `res`
// differs from the reference: none of them is backbone. The solution must
// discard at least one candidate.
func (e *Extractor) harvest(res *oracle.Result) error {
	before := len(e.candidates)
	e.candidates = slices.DeleteFunc(e.candidates, func(i int) bool {
		return res.BoolValue(e.binaries[i]) != e.values[i]
	})
	if len(e.candidates) == before {
		return fmt.Errorf("%w: %d candidates left unchanged", ErrNoProgress, before)
	}
	log.V(1).Infof("Solution discards %d candidates", before-len(e.candidates))
	return nil
}

// commit moves the chunk, which is a prefix of the candidates, to the
// backbone and logs it.
func (e *Extractor) commit(chunk []int) error {
	for _, i := range chunk {
		if _, ok := e.backbones[i]; ok {
			log.Fatalf("variable %d is already backbone", i)
		}
		e.backbones[i] = e.values[i]
		name := e.o.Model().Var(e.binaries[i]).Name
		if err := e.log.WriteLiteral(name, e.values[i]); err != nil {
			return err
		}
	}
	e.candidates = e.candidates[len(chunk):]
	return nil
}

// solve runs the oracle and reports the solve.
func (e *Extractor) solve(ctx context.Context) (*oracle.Result, error) {
	e.summary.Solves++
	res, err := e.o.Solve(ctx)
	if err != nil {
		return nil, err
	}
	e.metrics.observeSolve(res)
	e.say("RUNTIME: %.6f seconds", res.Runtime.Seconds())
	log.V(1).Infof("Solve #%d: %v in %v", e.summary.Solves, res.Status, res.Runtime)
	return res, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
