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

package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	log "github.com/golang/glog"

	"github.com/google/or-tools/backbone/model"
)

// Parameters understood by GiniSolver.
const (
	// TimeLimit is the limit, in seconds, of a single call to Solve.
	TimeLimit = "TimeLimit"
	// MaxUnaryWeight caps the sum of the absolute integer coefficients of a
	// single constraint or objective.
	MaxUnaryWeight = "MaxUnaryWeight"
	// IntFeasTol is the tolerance used to round coefficients and bounds to
	// integers.
	IntFeasTol = "IntFeasTol"
)

const (
	defaultMaxUnaryWeight = 1 << 16
	defaultIntFeasTol     = 1e-9
	pollInterval          = 10 * time.Millisecond
)

var (
	// ErrUnsupportedModel is returned for models GiniSolver cannot encode.
	ErrUnsupportedModel = errors.New("unsupported model")
	// ErrNonIntegral is returned for linear expressions whose coefficients are
	// not integers.
	ErrNonIntegral = errors.New("non-integral coefficient")
	// ErrTooLarge is returned for linear expressions whose total weight exceeds
	// the MaxUnaryWeight parameter.
	ErrTooLarge = errors.New("linear expression too large")
)

type giniConfig struct {
	timeLimit      time.Duration
	maxUnaryWeight int
	tol            float64
}

func parseGiniParameters(params Parameters) (giniConfig, error) {
	cfg := giniConfig{maxUnaryWeight: defaultMaxUnaryWeight, tol: defaultIntFeasTol}
	for name, value := range params {
		switch name {
		case TimeLimit:
			secs, err := strconv.ParseFloat(value, 64)
			if err != nil || !(secs > 0) || math.IsInf(secs, 1) {
				return cfg, fmt.Errorf("invalid value %q for parameter %s", value, name)
			}
			cfg.timeLimit = time.Duration(secs * float64(time.Second))
		case MaxUnaryWeight:
			w, err := strconv.Atoi(value)
			if err != nil || w <= 0 {
				return cfg, fmt.Errorf("invalid value %q for parameter %s", value, name)
			}
			cfg.maxUnaryWeight = w
		case IntFeasTol:
			tol, err := strconv.ParseFloat(value, 64)
			if err != nil || tol < 0 || tol >= 0.5 {
				return cfg, fmt.Errorf("invalid value %q for parameter %s", value, name)
			}
			cfg.tol = tol
		default:
			return cfg, fmt.Errorf("%w %q", ErrUnknownParameter, name)
		}
	}
	return cfg, nil
}

// encoding is the circuit form of a constraint.
type encoding struct {
	// clause is set when the constraint is equivalent to the disjunction of
	// its literals.
	clause []z.Lit
	// root is a circuit literal which is true iff the constraint holds. It is
	// z.LitNull for clauses until a root is needed.
	root z.Lit
}

// objectiveEncoding is the objective, negated for maximization, without its
// constant part: the weighted sum of literals and a sorting network counting
// it in unary.
type objectiveEncoding struct {
	vars    []model.VarIndex
	lits    []z.Lit
	weights []int
	cs      *logic.CardSort
}

// GiniSolver is an Oracle for models over binary variables, built on the gini
// SAT solver.
//
// Linear constraints are translated to sorting networks over unary expansions
// of their terms, so coefficients must be integral and small. Variables of
// integer type are accepted as long as their bounds lie within [0, 1];
// continuous variables are rejected.
//
// The solver is incremental. Bounds are passed as assumptions. A constraint
// added after construction is assumed in the first solve that sees it and
// asserted permanently afterwards; removing an asserted constraint rebuilds
// the solver from the circuit at the next solve.
type GiniSolver struct {
	m   *model.Model
	cfg giniConfig

	c     *logic.C
	vars  []z.Lit // circuit input of each model variable
	g     *gini.Gini
	marks []int8

	encoded  map[model.ConstraintID]*encoding
	fresh    map[model.ConstraintID]bool
	asserted map[model.ConstraintID]bool
	rebuild  bool

	obj *objectiveEncoding
}

// NewGiniSolver creates a solver owning `m`.
func NewGiniSolver(m *model.Model, params Parameters) (*GiniSolver, error) {
	cfg, err := parseGiniParameters(params)
	if err != nil {
		return nil, err
	}
	c := logic.NewCCap(2*m.NumVars() + 2)
	vars := make([]z.Lit, m.NumVars())
	for i := range vars {
		v := m.Var(model.VarIndex(i))
		switch v.Type {
		case model.Binary:
		case model.Integer:
			if v.Lower < -cfg.tol || v.Upper > 1+cfg.tol {
				return nil, fmt.Errorf("%w: integer variable %s has bounds [%v, %v]", ErrUnsupportedModel, v.Name, v.Lower, v.Upper)
			}
		default:
			return nil, fmt.Errorf("%w: variable %s is %v", ErrUnsupportedModel, v.Name, v.Type)
		}
		vars[i] = c.Lit()
	}
	s := &GiniSolver{
		m:        m,
		cfg:      cfg,
		c:        c,
		vars:     vars,
		encoded:  make(map[model.ConstraintID]*encoding),
		fresh:    make(map[model.ConstraintID]bool),
		asserted: make(map[model.ConstraintID]bool),
	}
	s.reset()
	return s, nil
}

// Model implements Oracle.
func (s *GiniSolver) Model() *model.Model {
	return s.m
}

// SetVariableBounds implements Oracle.
func (s *GiniSolver) SetVariableBounds(v model.VarIndex, lb, ub float64) {
	s.m.SetBounds(v, lb, ub)
}

// AddConstraint implements Oracle.
func (s *GiniSolver) AddConstraint(c model.Constraint) model.ConstraintID {
	id := s.m.AddConstraint(c)
	s.fresh[id] = true
	return id
}

// RemoveConstraint implements Oracle.
func (s *GiniSolver) RemoveConstraint(id model.ConstraintID) {
	if !s.m.RemoveConstraint(id) {
		log.Fatalf("RemoveConstraint(%d): no such constraint", id)
	}
	if s.asserted[id] {
		s.rebuild = true
	}
	delete(s.encoded, id)
	delete(s.fresh, id)
	delete(s.asserted, id)
}

// SetObjective implements Oracle.
func (s *GiniSolver) SetObjective(o model.Objective) {
	s.m.SetObjective(o)
	s.obj = nil
}

// reset replaces the SAT solver by an empty one. The circuit is kept.
func (s *GiniSolver) reset() {
	s.g = gini.New()
	s.marks, _ = s.c.CnfSince(s.g, nil)
	// The clause `T or x` makes x known to the solver even when no
	// constraint mentions it, so that it gets a value in every solution.
	for _, m := range s.vars {
		s.g.Add(s.c.T)
		s.g.Add(m)
		s.g.Add(0)
	}
	s.asserted = make(map[model.ConstraintID]bool)
	s.rebuild = false
}

// Solve implements Oracle.
func (s *GiniSolver) Solve(ctx context.Context) (*Result, error) {
	start := time.Now()
	var deadline time.Time
	if s.cfg.timeLimit > 0 {
		deadline = start.Add(s.cfg.timeLimit)
	}
	if s.rebuild {
		log.V(1).Info("Rebuilding the SAT solver after removal of an asserted constraint")
		s.reset()
	}
	assumptions, err := s.prepare()
	if err != nil {
		return nil, err
	}
	clear(s.fresh)

	res := &Result{Status: Interrupted}
	defer func() {
		res.Runtime = time.Since(start)
		log.V(1).Infof("gini: %s in %v (circuit nodes: %d, solver vars: %d)", res.Status, res.Runtime, s.c.Len(), s.g.MaxVar())
	}()

	bounds, feasible := s.boundAssumptions()
	if !feasible {
		res.Status = Infeasible
		return res, nil
	}
	assumptions = append(assumptions, bounds...)

	obj := s.m.Objective()
	if obj.Expr.IsConstant() {
		switch s.run(ctx, deadline, assumptions) {
		case 1:
			res.Status = Optimal
			res.Values = s.values()
			res.ObjectiveValue = s.m.ObjectiveValue(res.Values)
		case -1:
			res.Status = Infeasible
		}
		return res, nil
	}

	if s.obj == nil {
		s.obj, err = s.encodeObjective(obj)
		if err != nil {
			return nil, err
		}
	}
	switch s.run(ctx, deadline, assumptions) {
	case 1:
	case -1:
		res.Status = Infeasible
		return res, nil
	default:
		return res, nil
	}
	best := s.values()
	cost := s.cost(best)
	for cost > 0 {
		bound := s.define(s.obj.cs.Leq(cost - 1))
		r := s.run(ctx, deadline, append(assumptions[:len(assumptions):len(assumptions)], bound))
		if r == -1 {
			break
		}
		if r == 0 {
			return res, nil
		}
		best = s.values()
		cost = s.cost(best)
	}
	res.Status = Optimal
	res.Values = best
	res.ObjectiveValue = s.m.ObjectiveValue(best)
	return res, nil
}

// prepare encodes new constraints, asserts those that survived a solve and
// returns the roots of the constraints to assume.
func (s *GiniSolver) prepare() ([]z.Lit, error) {
	var assumptions []z.Lit
	for _, id := range s.m.ConstraintIDs() {
		enc, ok := s.encoded[id]
		if !ok {
			c, _ := s.m.Constraint(id)
			var err error
			if enc, err = s.encode(c); err != nil {
				return nil, fmt.Errorf("constraint %s: %w", c.Name, err)
			}
			s.encoded[id] = enc
		}
		if s.fresh[id] {
			assumptions = append(assumptions, s.rootOf(enc))
			continue
		}
		if !s.asserted[id] {
			s.assert(enc)
			s.asserted[id] = true
		}
	}
	return assumptions, nil
}

func (s *GiniSolver) rootOf(enc *encoding) z.Lit {
	if enc.root == z.LitNull {
		enc.root = s.c.Ors(enc.clause...)
	}
	return s.define(enc.root)
}

func (s *GiniSolver) assert(enc *encoding) {
	if enc.clause != nil {
		for _, m := range enc.clause {
			s.g.Add(m)
		}
		s.g.Add(0)
		return
	}
	if enc.root == s.c.T {
		return
	}
	s.g.Add(s.define(enc.root))
	s.g.Add(0)
}

// define adds the clauses of the circuit below `root` to the solver.
func (s *GiniSolver) define(root z.Lit) z.Lit {
	s.marks, _ = s.c.CnfSince(s.g, s.marks, root)
	return root
}

// boundAssumptions returns the literals fixing the variables whose bounds
// leave a single value, and false if some bounds are empty.
func (s *GiniSolver) boundAssumptions() ([]z.Lit, bool) {
	var ms []z.Lit
	for i, m := range s.vars {
		v := s.m.Var(model.VarIndex(i))
		lo := math.Max(0, math.Ceil(v.Lower-s.cfg.tol))
		hi := math.Min(1, math.Floor(v.Upper+s.cfg.tol))
		switch {
		case lo > hi:
			return nil, false
		case lo == hi && lo == 1:
			ms = append(ms, m)
		case lo == hi:
			ms = append(ms, m.Not())
		}
	}
	return ms, true
}

// run solves under assumptions until a result, the deadline or the
// cancellation of ctx. It returns 1 for sat, -1 for unsat and 0 otherwise.
func (s *GiniSolver) run(ctx context.Context, deadline time.Time, assumptions []z.Lit) int {
	if ctx.Err() != nil {
		return 0
	}
	if !deadline.IsZero() && !time.Now().Before(deadline) {
		return 0
	}
	s.g.Assume(assumptions...)
	if ctx.Done() == nil {
		if deadline.IsZero() {
			return s.g.Solve()
		}
		return s.g.Try(time.Until(deadline))
	}

	conn := s.g.GoSolve()
	var timeout <-chan time.Time
	if !deadline.IsZero() {
		t := time.NewTimer(time.Until(deadline))
		defer t.Stop()
		timeout = t.C
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if r, ok := conn.Test(); ok {
			return r
		}
		select {
		case <-ctx.Done():
			return conn.Stop()
		case <-timeout:
			return conn.Stop()
		case <-ticker.C:
		}
	}
}

func (s *GiniSolver) values() []float64 {
	vals := make([]float64, len(s.vars))
	max := s.g.MaxVar()
	for i, m := range s.vars {
		if m.Var() <= max && s.g.Value(m) {
			vals[i] = 1
		}
	}
	return vals
}

// cost returns the value of the encoded objective for `vals`.
func (s *GiniSolver) cost(vals []float64) int {
	cost := 0
	for i, m := range s.obj.lits {
		if ToBool(vals[s.obj.vars[i]]) == m.IsPos() {
			cost += s.obj.weights[i]
		}
	}
	return cost
}

// normalize rewrites `scale * expr` without its constant as `sum(w_i * l_i) +
// shift` with positive integral weights. Terms with a negative coefficient
// `a * x` become `|a| * ~x + a`.
func (s *GiniSolver) normalize(expr *model.LinearExpr, scale float64) (vars []model.VarIndex, lits []z.Lit, weights []int, shift float64, err error) {
	coeffs := expr.Coefficients()
	total := 0
	for i, m := range s.vars {
		a, ok := coeffs[model.VarIndex(i)]
		if !ok {
			continue
		}
		a *= scale
		r := math.Round(a)
		if math.Abs(a-r) > s.cfg.tol {
			return nil, nil, nil, 0, fmt.Errorf("%w %v on %s", ErrNonIntegral, a, s.m.Var(model.VarIndex(i)).Name)
		}
		if r == 0 {
			continue
		}
		if math.Abs(r) > float64(s.cfg.maxUnaryWeight-total) {
			return nil, nil, nil, 0, fmt.Errorf("%w: total weight exceeds %d", ErrTooLarge, s.cfg.maxUnaryWeight)
		}
		w := int(math.Abs(r))
		total += w
		if r < 0 {
			m = m.Not()
			shift += r
		}
		vars = append(vars, model.VarIndex(i))
		lits = append(lits, m)
		weights = append(weights, w)
	}
	return vars, lits, weights, shift, nil
}

// unary repeats every literal by its weight.
func unary(lits []z.Lit, weights []int) []z.Lit {
	var ms []z.Lit
	for i, m := range lits {
		for k := 0; k < weights[i]; k++ {
			ms = append(ms, m)
		}
	}
	return ms
}

func (s *GiniSolver) encode(c model.Constraint) (*encoding, error) {
	_, lits, weights, shift, err := s.normalize(c.Expr, 1)
	if err != nil {
		return nil, err
	}
	total, minWeight := 0, math.MaxInt
	for _, w := range weights {
		total += w
		minWeight = min(minWeight, w)
	}
	// sum(w_i * l_i) must lie in [lo, hi].
	b := c.RHS - c.Expr.Offset() - shift
	lo, hi := math.Inf(-1), math.Inf(1)
	switch c.Rel {
	case model.GreaterOrEqual:
		lo = math.Ceil(b - s.cfg.tol)
	case model.LessOrEqual:
		hi = math.Floor(b + s.cfg.tol)
	case model.Equal:
		r := math.Round(b)
		if math.Abs(b-r) > s.cfg.tol {
			return &encoding{root: s.c.F}, nil
		}
		lo, hi = r, r
	}
	lo, hi = math.Max(lo, 0), math.Min(hi, float64(total))
	switch {
	case lo > hi:
		return &encoding{root: s.c.F}, nil
	case lo == 0 && hi == float64(total):
		return &encoding{root: s.c.T}, nil
	case hi == float64(total) && lo <= float64(minWeight):
		return &encoding{clause: lits, root: z.LitNull}, nil
	}
	cs := s.c.CardSort(unary(lits, weights))
	return &encoding{root: s.c.And(cs.Geq(int(lo)), cs.Leq(int(hi)))}, nil
}

func (s *GiniSolver) encodeObjective(o model.Objective) (*objectiveEncoding, error) {
	scale := 1.0
	if o.Sense == model.Maximize {
		scale = -1
	}
	vars, lits, weights, _, err := s.normalize(o.Expr, scale)
	if err != nil {
		return nil, fmt.Errorf("objective: %w", err)
	}
	enc := &objectiveEncoding{vars: vars, lits: lits, weights: weights}
	enc.cs = s.c.CardSort(unary(lits, weights))
	log.V(1).Infof("gini: objective encoded over %d literals", enc.cs.N())
	return enc, nil
}
