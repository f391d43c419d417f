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

package extractor

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Outcome is the way a run ended.
type Outcome int

const (
	// Unfinished is the outcome of a run that has not ended.
	Unfinished Outcome = iota
	// Complete means every binary variable was resolved and the log is
	// terminated.
	Complete
	// Aborted means a solve was interrupted. The log holds the backbone
	// variables found before, without terminator.
	Aborted
	// Infeasible means the model has no feasible or optimal solution, and so
	// no backbone. The log is empty.
	Infeasible
	// Failed means the run stopped on an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Unfinished:
		return "UNFINISHED"
	case Complete:
		return "COMPLETE"
	case Aborted:
		return "ABORTED"
	case Infeasible:
		return "INFEASIBLE"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Summary describes a run.
type Summary struct {
	Model        string
	Optimization bool
	// Optimum is the objective value the model was anchored to. It is only
	// meaningful for optimization models.
	Optimum      float64
	OptimumKnown bool
	Outcome      Outcome
	// Binaries is the number of binary variables of the model.
	Binaries int
	// Backbones is the number of backbone variables written to the log.
	Backbones int
	// Candidates is the number of binary variables left unresolved.
	Candidates int
	Chunks     int
	Solves     int
	Runtime    time.Duration
}

// Proto returns the summary as a protobuf Struct, using lower snake case
// field names.
func (s *Summary) Proto() (*structpb.Struct, error) {
	fields := map[string]any{
		"model":        s.Model,
		"optimization": s.Optimization,
		"outcome":      s.Outcome.String(),
		"binaries":     s.Binaries,
		"backbones":    s.Backbones,
		"candidates":   s.Candidates,
		"chunks":       s.Chunks,
		"solves":       s.Solves,
		"runtime":      s.Runtime.Seconds(),
	}
	if s.Optimization {
		fields["optimum"] = s.Optimum
		fields["optimum_known"] = s.OptimumKnown
	}
	return structpb.NewStruct(fields)
}
