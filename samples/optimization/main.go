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

// The optimization command is an example of extracting the backbone of a
// knapsack: the items picked by every optimal packing.
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

func optimizationBackbone() error {
	weights := []float64{4, 3, 3, 2, 5}
	values := []float64{10, 6, 6, 3, 1}
	capacity := 9.0

	m := model.New("knapsack")
	items := make([]model.VarIndex, len(weights))
	for i := range items {
		items[i] = m.NewBoolVar(fmt.Sprintf("x%d", i+1))
	}
	m.AddConstraint(model.Constraint{
		Name: "capacity",
		Expr: model.NewLinearExpr().AddWeightedSum(items, weights),
		Rel:  model.LessOrEqual,
		RHS:  capacity,
	})
	m.SetObjective(model.Objective{Expr: model.NewLinearExpr().AddWeightedSum(items, values), Sense: model.Maximize})

	solver, err := oracle.NewGiniSolver(m, nil)
	if err != nil {
		return fmt.Errorf("failed to create the solver: %w", err)
	}
	e := extractor.New(solver, extractor.NewLogWriter(os.Stdout), extractor.WithProgress(os.Stdout))
	summary, err := e.Run(context.Background())
	if err != nil {
		return fmt.Errorf("failed to extract the backbone: %w", err)
	}

	fmt.Printf("outcome: %v, optimum: %v, solves: %d\n", summary.Outcome, summary.Optimum, summary.Solves)
	backbone := e.Backbone()
	for i, v := range items {
		if picked, ok := backbone[v]; ok {
			fmt.Printf("item %d (weight %v, value %v): always picked = %v\n", i+1, weights[i], values[i], picked)
		}
	}
	return nil
}

func main() {
	if err := optimizationBackbone(); err != nil {
		log.Exitf("optimizationBackbone returned with error: %v", err)
	}
}
