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

package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLinearExpr(t *testing.T) {
	testCases := []struct {
		name       string
		expr       *LinearExpr
		wantTerms  []Term
		wantOffset float64
		wantCoeffs map[VarIndex]float64
		wantConst  bool
		wantString string
	}{
		{
			name:       "Empty",
			expr:       NewLinearExpr(),
			wantCoeffs: map[VarIndex]float64{},
			wantConst:  true,
			wantString: "0",
		},
		{
			name:       "Constant",
			expr:       NewConstant(-1.5),
			wantOffset: -1.5,
			wantCoeffs: map[VarIndex]float64{},
			wantConst:  true,
			wantString: "-1.5",
		},
		{
			name:       "Terms",
			expr:       NewLinearExpr().AddTerm(0, 2).AddTerm(1, -1).AddConstant(3),
			wantTerms:  []Term{{Var: 0, Coeff: 2}, {Var: 1, Coeff: -1}},
			wantOffset: 3,
			wantCoeffs: map[VarIndex]float64{0: 2, 1: -1},
			wantString: "+2 x[0] -1 x[1] +3",
		},
		{
			name:       "Sum",
			expr:       NewLinearExpr().AddSum(2, 0, 2),
			wantTerms:  []Term{{Var: 2, Coeff: 1}, {Var: 0, Coeff: 1}, {Var: 2, Coeff: 1}},
			wantCoeffs: map[VarIndex]float64{0: 1, 2: 2},
			wantString: "+1 x[2] +1 x[0] +1 x[2]",
		},
		{
			name:       "WeightedSumCancelling",
			expr:       NewLinearExpr().AddWeightedSum([]VarIndex{1, 1}, []float64{4, -4}),
			wantTerms:  []Term{{Var: 1, Coeff: 4}, {Var: 1, Coeff: -4}},
			wantCoeffs: map[VarIndex]float64{1: 0},
			wantConst:  true,
			wantString: "+4 x[1] -4 x[1]",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			if diff := cmp.Diff(test.wantTerms, test.expr.Terms()); diff != "" {
				t.Errorf("Terms() returned with unexpected diff (-want+got):\n%v", diff)
			}
			if got := test.expr.Offset(); got != test.wantOffset {
				t.Errorf("Offset() = %v, want %v", got, test.wantOffset)
			}
			if diff := cmp.Diff(test.wantCoeffs, test.expr.Coefficients()); diff != "" {
				t.Errorf("Coefficients() returned with unexpected diff (-want+got):\n%v", diff)
			}
			if got := test.expr.IsConstant(); got != test.wantConst {
				t.Errorf("IsConstant() = %v, want %v", got, test.wantConst)
			}
			if got := test.expr.String(); got != test.wantString {
				t.Errorf("String() = %q, want %q", got, test.wantString)
			}
		})
	}
}

func TestLinearExpr_EvaluateAndCopy(t *testing.T) {
	expr := NewLinearExpr().AddTerm(0, 3).AddTerm(2, -2).AddConstant(1)
	if got, want := expr.Evaluate([]float64{1, 5, 1}), 2.0; got != want {
		t.Errorf("Evaluate() = %v, want %v", got, want)
	}

	cp := expr.Copy()
	cp.AddTerm(1, 10)
	if got, want := len(expr.Terms()), 2; got != want {
		t.Errorf("len(Terms()) after modifying the copy = %v, want %v", got, want)
	}
	if got, want := cp.Evaluate([]float64{1, 5, 1}), 52.0; got != want {
		t.Errorf("copy.Evaluate() = %v, want %v", got, want)
	}

	var nilExpr *LinearExpr
	if got := nilExpr.Evaluate(nil); got != 0 {
		t.Errorf("nil.Evaluate() = %v, want 0", got)
	}
	if got := nilExpr.String(); got != "0" {
		t.Errorf("nil.String() = %q, want %q", got, "0")
	}
}

func TestRelation_Holds(t *testing.T) {
	testCases := []struct {
		rel      Relation
		lhs, rhs float64
		want     bool
	}{
		{rel: LessOrEqual, lhs: 1, rhs: 1, want: true},
		{rel: LessOrEqual, lhs: 1 + 1e-12, rhs: 1, want: true},
		{rel: LessOrEqual, lhs: 2, rhs: 1, want: false},
		{rel: GreaterOrEqual, lhs: 0.5, rhs: 1, want: false},
		{rel: GreaterOrEqual, lhs: 3, rhs: 1, want: true},
		{rel: Equal, lhs: 2, rhs: 2, want: true},
		{rel: Equal, lhs: 2, rhs: 3, want: false},
	}
	for _, test := range testCases {
		if got := test.rel.Holds(test.lhs, test.rhs, 1e-9); got != test.want {
			t.Errorf("%v %v %v: Holds() = %v, want %v", test.lhs, test.rel, test.rhs, got, test.want)
		}
	}
}

func TestModel_Variables(t *testing.T) {
	m := New("vars")
	a := m.NewBoolVar("a")
	b := m.NewVar(0, 5, Integer, "")
	c := m.NewVar(-1, 1, Continuous, "c")
	d := m.NewBoolVar("")

	if got, want := m.NumVars(), 4; got != want {
		t.Errorf("NumVars() = %v, want %v", got, want)
	}
	want := Variable{Name: "x2", Type: Integer, Lower: 0, Upper: 5}
	if diff := cmp.Diff(want, m.Var(b)); diff != "" {
		t.Errorf("Var(%v) returned with unexpected diff (-want+got):\n%v", b, diff)
	}
	if got, want := m.Var(d).Name, "x4"; got != want {
		t.Errorf("Var(%v).Name = %q, want %q", d, got, want)
	}
	if got, ok := m.LookupVar("c"); !ok || got != c {
		t.Errorf("LookupVar(c) = %v, %v, want %v, true", got, ok, c)
	}
	if _, ok := m.LookupVar("missing"); ok {
		t.Errorf("LookupVar(missing) found a variable")
	}
	if diff := cmp.Diff([]VarIndex{a, d}, m.BinaryVars()); diff != "" {
		t.Errorf("BinaryVars() returned with unexpected diff (-want+got):\n%v", diff)
	}

	m.SetBounds(a, 1, 1)
	if got := m.Var(a); got.Lower != 1 || got.Upper != 1 {
		t.Errorf("Var(a) bounds = [%v, %v], want [1, 1]", got.Lower, got.Upper)
	}
}

func TestModel_Constraints(t *testing.T) {
	m := New("constraints")
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")

	expr := NewLinearExpr().AddSum(x, y)
	first := m.AddConstraint(Constraint{Expr: expr, Rel: GreaterOrEqual, RHS: 1})
	second := m.AddConstraint(Constraint{Name: "tmp", Expr: NewLinearExpr().AddTerm(x, 1), Rel: Equal, RHS: 0})
	third := m.AddConstraint(Constraint{Expr: NewLinearExpr().AddTerm(y, 1), Rel: LessOrEqual, RHS: 1})

	// The model keeps its own copy of the expression.
	expr.AddTerm(x, 5)
	c, ok := m.Constraint(first)
	if !ok {
		t.Fatalf("Constraint(%v) not found", first)
	}
	if got, want := c.Name, "c0"; got != want {
		t.Errorf("Constraint(%v).Name = %q, want %q", first, got, want)
	}
	if got, want := len(c.Expr.Terms()), 2; got != want {
		t.Errorf("len(Constraint(%v).Expr.Terms()) = %v, want %v", first, got, want)
	}

	if !m.RemoveConstraint(second) {
		t.Errorf("RemoveConstraint(%v) = false, want true", second)
	}
	if m.RemoveConstraint(second) {
		t.Errorf("second RemoveConstraint(%v) = true, want false", second)
	}
	if diff := cmp.Diff([]ConstraintID{first, third}, m.ConstraintIDs()); diff != "" {
		t.Errorf("ConstraintIDs() returned with unexpected diff (-want+got):\n%v", diff)
	}
	if got, want := m.NumConstraints(), 2; got != want {
		t.Errorf("NumConstraints() = %v, want %v", got, want)
	}

	// Handles are not reused.
	if got := m.AddConstraint(Constraint{Expr: NewLinearExpr(), Rel: LessOrEqual, RHS: 0}); got == second {
		t.Errorf("AddConstraint() reused the handle %v", got)
	}
}

func TestModel_Objective(t *testing.T) {
	m := New("objective")
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")

	if m.IsOptimization() {
		t.Errorf("IsOptimization() of a new model = true, want false")
	}
	m.SetObjective(Objective{Expr: NewConstant(7), Sense: Maximize})
	if m.IsOptimization() {
		t.Errorf("IsOptimization() with a constant objective = true, want false")
	}

	expr := NewLinearExpr().AddTerm(x, 3).AddTerm(y, 1).AddConstant(10)
	m.SetObjective(Objective{Expr: expr, Sense: Maximize})
	expr.AddTerm(y, 100)
	if !m.IsOptimization() {
		t.Errorf("IsOptimization() = false, want true")
	}
	if got, want := m.Objective().Sense, Maximize; got != want {
		t.Errorf("Objective().Sense = %v, want %v", got, want)
	}
	if got, want := m.ObjectiveValue([]float64{1, 1}), 14.0; got != want {
		t.Errorf("ObjectiveValue() = %v, want %v", got, want)
	}
}

func TestModel_Satisfies(t *testing.T) {
	m := New("satisfies")
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	z := m.NewVar(0, 2, Integer, "z")
	m.AddConstraint(Constraint{Expr: NewLinearExpr().AddSum(x, y), Rel: GreaterOrEqual, RHS: 1})
	m.AddConstraint(Constraint{Expr: NewLinearExpr().AddTerm(z, 1).AddTerm(x, -1), Rel: Equal, RHS: 1})

	testCases := []struct {
		name   string
		values []float64
		want   bool
	}{
		{name: "Feasible", values: []float64{1, 0, 2}, want: true},
		{name: "FeasibleWithinTolerance", values: []float64{1 - 1e-12, 0, 2}, want: true},
		{name: "ViolatedCover", values: []float64{0, 0, 1}, want: false},
		{name: "ViolatedEquality", values: []float64{1, 1, 1}, want: false},
		{name: "OutOfBounds", values: []float64{0, 1, 3}, want: false},
		{name: "Fractional", values: []float64{0.5, 1, 1.5}, want: false},
		{name: "WrongLength", values: []float64{1, 0}, want: false},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			if got := m.Satisfies(test.values, 1e-9); got != test.want {
				t.Errorf("Satisfies(%v) = %v, want %v", test.values, got, test.want)
			}
		})
	}
}

func TestModel_String(t *testing.T) {
	m := New("m")
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	m.AddConstraint(Constraint{Expr: NewLinearExpr().AddSum(x, y), Rel: GreaterOrEqual, RHS: 1})

	want := "model \"m\": 2 variables, 1 constraints\n" +
		"  MINIMIZE 0\n" +
		"  c0: +1 x[0] +1 x[1] >= 1\n"
	if got := m.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestEnumStrings(t *testing.T) {
	testCases := []struct {
		got  string
		want string
	}{
		{got: Binary.String(), want: "BINARY"},
		{got: Continuous.String(), want: "CONTINUOUS"},
		{got: VarType(9).String(), want: "VarType(9)"},
		{got: Equal.String(), want: "="},
		{got: Relation(5).String(), want: "Relation(5)"},
		{got: Maximize.String(), want: "MAXIMIZE"},
		{got: Sense(2).String(), want: "Sense(2)"},
	}
	for _, test := range testCases {
		if test.got != test.want {
			t.Errorf("String() = %q, want %q", test.got, test.want)
		}
	}
}
