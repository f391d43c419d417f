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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-air/gini/dimacs"
	"github.com/go-air/gini/z"
)

// ReadDIMACS reads a CNF formula in the DIMACS format.
//
// Dimacs variable K becomes the binary variable `xK` with index K-1. Every
// clause becomes the constraint `sum of literals >= 1`, where a negative
// literal `-K` is read as `1 - xK`. The model has no objective.
func ReadDIMACS(r io.Reader) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("dimacs: %w", err)
	}
	declared, err := declaredVars(data)
	if err != nil {
		return nil, err
	}
	b := &cnfBuilder{m: New("")}
	if err := dimacs.ReadCnf(bytes.NewReader(data), b); err != nil {
		return nil, fmt.Errorf("dimacs: %w", err)
	}
	b.ensureVar(declared)
	return b.m, nil
}

// declaredVars returns the variable count of the `p cnf` problem line, or 0.
// The dimacs visitor is only handed capacity hints when the line is missing.
func declaredVars(data []byte) (int, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxOPBLine)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == 'c' {
			continue
		}
		if line[0] != 'p' {
			return 0, nil
		}
		fields := strings.Fields(line)
		if len(fields) != 4 || fields[1] != "cnf" {
			return 0, fmt.Errorf("dimacs: invalid problem line %q", line)
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("dimacs: invalid problem line %q", line)
		}
		return n, nil
	}
	return 0, sc.Err()
}

// cnfBuilder implements dimacs.CnfVis.
type cnfBuilder struct {
	m      *Model
	clause []z.Lit
}

func (b *cnfBuilder) Init(v, c int) {}

func (b *cnfBuilder) Add(m z.Lit) {
	if m != z.LitNull {
		b.clause = append(b.clause, m)
		return
	}
	b.flush()
}

func (b *cnfBuilder) Eof() {
	b.flush()
}

func (b *cnfBuilder) flush() {
	if len(b.clause) == 0 {
		return
	}
	expr := NewLinearExpr()
	for _, m := range b.clause {
		n := int(m.Var())
		b.ensureVar(n)
		v := VarIndex(n - 1)
		if m.IsPos() {
			expr.AddTerm(v, 1)
		} else {
			expr.AddConstant(1).AddTerm(v, -1)
		}
	}
	b.m.AddConstraint(Constraint{Expr: expr, Rel: GreaterOrEqual, RHS: 1})
	b.clause = b.clause[:0]
}

func (b *cnfBuilder) ensureVar(n int) {
	for b.m.NumVars() < n {
		b.m.NewBoolVar("")
	}
}
