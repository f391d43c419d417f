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

// The feasibility command is an example of extracting the backbone of a model
// without objective.
package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/golang/glog"

	"github.com/google/or-tools/backbone/extractor"
	"github.com/google/or-tools/backbone/model"
	"github.com/google/or-tools/backbone/oracle"
)

func feasibilityBackbone() error {
	m := model.New("feasibility")
	x := m.NewBoolVar("x1")
	y := m.NewBoolVar("x2")
	z := m.NewBoolVar("x3")
	w := m.NewBoolVar("x4")

	// x1 == x2 == x3, at least one of them is true, and x4 implies x1.
	m.AddConstraint(model.Constraint{Expr: model.NewLinearExpr().AddTerm(x, 1).AddTerm(y, -1), Rel: model.Equal, RHS: 0})
	m.AddConstraint(model.Constraint{Expr: model.NewLinearExpr().AddTerm(y, 1).AddTerm(z, -1), Rel: model.Equal, RHS: 0})
	m.AddConstraint(model.Constraint{Expr: model.NewLinearExpr().AddSum(x, y, z), Rel: model.GreaterOrEqual, RHS: 1})
	m.AddConstraint(model.Constraint{Expr: model.NewLinearExpr().AddTerm(w, 1).AddTerm(x, -1), Rel: model.LessOrEqual, RHS: 0})

	solver, err := oracle.NewGiniSolver(m, oracle.Parameters{oracle.TimeLimit: "10"})
	if err != nil {
		return fmt.Errorf("failed to create the solver: %w", err)
	}
	e := extractor.New(solver, extractor.NewLogWriter(os.Stdout), extractor.WithProgress(os.Stdout))
	summary, err := e.Run(context.Background())
	if err != nil {
		return fmt.Errorf("failed to extract the backbone: %w", err)
	}

	fmt.Printf("outcome: %v\n", summary.Outcome)
	for _, v := range []model.VarIndex{x, y, z, w} {
		if value, ok := e.Backbone()[v]; ok {
			fmt.Printf("%s = %v\n", m.Var(v).Name, value)
		} else {
			fmt.Printf("%s is free\n", m.Var(v).Name)
		}
	}
	return nil
}

func main() {
	if err := feasibilityBackbone(); err != nil {
		log.Exitf("feasibilityBackbone returned with error: %v", err)
	}
}
