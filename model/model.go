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

// Package model holds the in-memory representation of a linear model over
// typed variables.
//
// The `Model` struct owns the variables, the constraints and the objective.
// Variables are referred to by their `VarIndex`, constraints by the
// `ConstraintID` handle returned when they are added, so constraints can be
// removed again without disturbing the handles of the others.
// The `LinearExpr` struct provides helper methods for building constraints and
// the objective from expressions with many variables and coefficients.
package model

import (
	"fmt"
	"math"
	"strings"

	log "github.com/golang/glog"
)

type (
	// VarIndex is the index of a variable in the model.
	VarIndex int32
	// ConstraintID is the handle of a constraint in the model. Handles are never
	// reused, even after the constraint they refer to is removed.
	ConstraintID int64
)

// VarType is the type of a variable.
type VarType int

const (
	// Binary variables take the values 0 and 1.
	Binary VarType = iota
	// Integer variables take integral values within their bounds.
	Integer
	// Continuous variables take any value within their bounds.
	Continuous
)

func (t VarType) String() string {
	switch t {
	case Binary:
		return "BINARY"
	case Integer:
		return "INTEGER"
	case Continuous:
		return "CONTINUOUS"
	default:
		return fmt.Sprintf("VarType(%d)", int(t))
	}
}

// Variable describes a variable of the model.
type Variable struct {
	Name  string
	Type  VarType
	Lower float64
	Upper float64
}

// Term is a variable with its coefficient in a linear expression.
type Term struct {
	Var   VarIndex
	Coeff float64
}

// LinearExpr is a container for a linear expression.
type LinearExpr struct {
	terms  []Term
	offset float64
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant creates and returns a LinearExpr containing the constant `c`.
func NewConstant(c float64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// AddTerm adds the variable with the given coefficient to the LinearExpr and returns itself.
func (l *LinearExpr) AddTerm(v VarIndex, coeff float64) *LinearExpr {
	l.terms = append(l.terms, Term{Var: v, Coeff: coeff})
	return l
}

// AddConstant adds the constant to the LinearExpr and returns itself.
func (l *LinearExpr) AddConstant(c float64) *LinearExpr {
	l.offset += c
	return l
}

// AddSum adds the sum of the variables to the LinearExpr and returns itself.
func (l *LinearExpr) AddSum(vs ...VarIndex) *LinearExpr {
	for _, v := range vs {
		l.AddTerm(v, 1)
	}
	return l
}

// AddWeightedSum adds the variables with the corresponding coefficients to the LinearExpr
// and returns itself.
func (l *LinearExpr) AddWeightedSum(vs []VarIndex, coeffs []float64) *LinearExpr {
	if len(coeffs) != len(vs) {
		log.Fatalf("vs and coeffs must be the same length: %v != %v", len(vs), len(coeffs))
	}
	for i, v := range vs {
		l.AddTerm(v, coeffs[i])
	}
	return l
}

// Terms returns a copy of the terms of the expression, in insertion order.
// The same variable may appear in several terms.
func (l *LinearExpr) Terms() []Term {
	if l == nil {
		return nil
	}
	return append([]Term(nil), l.terms...)
}

// Offset returns the constant part of the expression.
func (l *LinearExpr) Offset() float64 {
	if l == nil {
		return 0
	}
	return l.offset
}

// Coefficients returns the coefficient of every variable of the expression,
// summing the terms that share a variable. Variables whose terms cancel out
// are reported with a zero coefficient.
func (l *LinearExpr) Coefficients() map[VarIndex]float64 {
	coeffs := make(map[VarIndex]float64)
	if l == nil {
		return coeffs
	}
	for _, t := range l.terms {
		coeffs[t.Var] += t.Coeff
	}
	return coeffs
}

// IsConstant returns true if no variable has a nonzero coefficient.
func (l *LinearExpr) IsConstant() bool {
	for _, c := range l.Coefficients() {
		if c != 0 {
			return false
		}
	}
	return true
}

// Evaluate returns the value of the expression for the given variable values.
func (l *LinearExpr) Evaluate(values []float64) float64 {
	if l == nil {
		return 0
	}
	result := l.offset
	for _, t := range l.terms {
		result += t.Coeff * values[t.Var]
	}
	return result
}

// Copy returns a deep copy of the expression.
func (l *LinearExpr) Copy() *LinearExpr {
	if l == nil {
		return NewLinearExpr()
	}
	return &LinearExpr{terms: l.Terms(), offset: l.offset}
}

func (l *LinearExpr) String() string {
	if l == nil || (len(l.terms) == 0 && l.offset == 0) {
		return "0"
	}
	var sb strings.Builder
	for i, t := range l.terms {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%+g x[%d]", t.Coeff, t.Var)
	}
	if l.offset != 0 || len(l.terms) == 0 {
		if len(l.terms) > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%+g", l.offset)
	}
	return sb.String()
}

// Relation is the comparison between the expression and the right-hand side
// of a constraint.
type Relation int

const (
	// LessOrEqual is `expr <= rhs`.
	LessOrEqual Relation = iota
	// GreaterOrEqual is `expr >= rhs`.
	GreaterOrEqual
	// Equal is `expr == rhs`.
	Equal
)

func (r Relation) String() string {
	switch r {
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Relation(%d)", int(r))
	}
}

// Holds returns true if `lhs r rhs` holds up to the tolerance `tol`.
func (r Relation) Holds(lhs, rhs, tol float64) bool {
	switch r {
	case LessOrEqual:
		return lhs <= rhs+tol
	case GreaterOrEqual:
		return lhs >= rhs-tol
	case Equal:
		return math.Abs(lhs-rhs) <= tol
	default:
		log.Fatalf("unknown relation %v", r)
		return false
	}
}

// Constraint is the linear constraint `Expr Rel RHS`.
type Constraint struct {
	Name string
	Expr *LinearExpr
	Rel  Relation
	RHS  float64
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s: %v %v %g", c.Name, c.Expr, c.Rel, c.RHS)
}

// Sense is the optimization direction of the objective.
type Sense int

const (
	// Minimize is the default sense.
	Minimize Sense = iota
	// Maximize the objective.
	Maximize
)

func (s Sense) String() string {
	switch s {
	case Minimize:
		return "MINIMIZE"
	case Maximize:
		return "MAXIMIZE"
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Objective is the linear objective of the model.
type Objective struct {
	Expr  *LinearExpr
	Sense Sense
}

// Model is a linear model over typed variables.
//
// A Model is not safe for concurrent use.
type Model struct {
	name      string
	vars      []Variable
	byName    map[string]VarIndex
	constrs   map[ConstraintID]Constraint
	order     []ConstraintID
	nextID    ConstraintID
	objective Objective
}

// New creates an empty model with the given name.
func New(name string) *Model {
	return &Model{
		name:      name,
		byName:    make(map[string]VarIndex),
		constrs:   make(map[ConstraintID]Constraint),
		objective: Objective{Expr: NewLinearExpr(), Sense: Minimize},
	}
}

// Name returns the name of the model.
func (m *Model) Name() string {
	return m.name
}

// NewVar adds a variable to the model and returns its index.
//
// An empty `name` is replaced by `x<index+1>`, the naming used by the OPB and
// DIMACS formats.
func (m *Model) NewVar(lb, ub float64, t VarType, name string) VarIndex {
	v := VarIndex(len(m.vars))
	if name == "" {
		name = fmt.Sprintf("x%d", v+1)
	}
	m.vars = append(m.vars, Variable{Name: name, Type: t, Lower: lb, Upper: ub})
	if _, ok := m.byName[name]; !ok {
		m.byName[name] = v
	}
	return v
}

// NewBoolVar adds a binary variable with bounds [0, 1] to the model.
func (m *Model) NewBoolVar(name string) VarIndex {
	return m.NewVar(0, 1, Binary, name)
}

// NumVars returns the number of variables of the model.
func (m *Model) NumVars() int {
	return len(m.vars)
}

// Var returns the variable `v`.
func (m *Model) Var(v VarIndex) Variable {
	m.checkVar(v)
	return m.vars[v]
}

// LookupVar returns the first variable with the given name.
func (m *Model) LookupVar(name string) (VarIndex, bool) {
	v, ok := m.byName[name]
	return v, ok
}

// BinaryVars returns the indices of the binary variables, in model order.
func (m *Model) BinaryVars() []VarIndex {
	var vs []VarIndex
	for i, v := range m.vars {
		if v.Type == Binary {
			vs = append(vs, VarIndex(i))
		}
	}
	return vs
}

// SetBounds sets the lower and upper bound of the variable `v`.
func (m *Model) SetBounds(v VarIndex, lb, ub float64) {
	m.checkVar(v)
	m.vars[v].Lower = lb
	m.vars[v].Upper = ub
}

// AddConstraint adds a copy of the constraint `c` to the model and returns its
// handle. An unnamed constraint is named `c<handle>`.
func (m *Model) AddConstraint(c Constraint) ConstraintID {
	for _, t := range c.Expr.Terms() {
		m.checkVar(t.Var)
	}
	id := m.nextID
	m.nextID++
	if c.Name == "" {
		c.Name = fmt.Sprintf("c%d", id)
	}
	c.Expr = c.Expr.Copy()
	m.constrs[id] = c
	m.order = append(m.order, id)
	return id
}

// RemoveConstraint removes the constraint with handle `id`. It returns false
// if no such constraint is part of the model.
func (m *Model) RemoveConstraint(id ConstraintID) bool {
	if _, ok := m.constrs[id]; !ok {
		return false
	}
	delete(m.constrs, id)
	// Temporary constraints are usually the most recent ones.
	for i := len(m.order) - 1; i >= 0; i-- {
		if m.order[i] == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Constraint returns the constraint with handle `id`.
func (m *Model) Constraint(id ConstraintID) (Constraint, bool) {
	c, ok := m.constrs[id]
	return c, ok
}

// ConstraintIDs returns the handles of all constraints, in insertion order.
func (m *Model) ConstraintIDs() []ConstraintID {
	return append([]ConstraintID(nil), m.order...)
}

// NumConstraints returns the number of constraints of the model.
func (m *Model) NumConstraints() int {
	return len(m.order)
}

// SetObjective replaces the objective of the model by a copy of `o`.
func (m *Model) SetObjective(o Objective) {
	for _, t := range o.Expr.Terms() {
		m.checkVar(t.Var)
	}
	m.objective = Objective{Expr: o.Expr.Copy(), Sense: o.Sense}
}

// Objective returns the objective of the model.
func (m *Model) Objective() Objective {
	return m.objective
}

// IsOptimization returns true if some variable has a nonzero objective
// coefficient. Models without one are feasibility models.
func (m *Model) IsOptimization() bool {
	return !m.objective.Expr.IsConstant()
}

// ObjectiveValue evaluates the objective for the given variable values.
func (m *Model) ObjectiveValue(values []float64) float64 {
	return m.objective.Expr.Evaluate(values)
}

// Satisfies returns true if `values` respects the bounds, the integrality and
// every constraint of the model, up to the tolerance `tol`.
func (m *Model) Satisfies(values []float64, tol float64) bool {
	if len(values) != len(m.vars) {
		return false
	}
	for i, v := range m.vars {
		x := values[i]
		if x < v.Lower-tol || x > v.Upper+tol {
			return false
		}
		if v.Type != Continuous && math.Abs(x-math.Round(x)) > tol {
			return false
		}
	}
	for _, id := range m.order {
		c := m.constrs[id]
		if !c.Rel.Holds(c.Expr.Evaluate(values), c.RHS, tol) {
			return false
		}
	}
	return true
}

func (m *Model) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "model %q: %d variables, %d constraints\n", m.name, len(m.vars), len(m.order))
	fmt.Fprintf(&sb, "  %v %v\n", m.objective.Sense, m.objective.Expr)
	for _, id := range m.order {
		fmt.Fprintf(&sb, "  %v\n", m.constrs[id])
	}
	return sb.String()
}

func (m *Model) checkVar(v VarIndex) {
	if v < 0 || int(v) >= len(m.vars) {
		log.Fatalf("variable index %d out of range [0, %d)", v, len(m.vars))
	}
}
