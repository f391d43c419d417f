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
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNonLinear is returned when an OPB statement contains a product of literals.
var ErrNonLinear = errors.New("non-linear terms are not supported")

const maxOPBLine = 64 << 20

// ReadOPB reads a pseudo-Boolean model in the OPB format.
//
// Every variable is binary. A `* #variable= N` header creates the variables
// `x1`..`xN` in order, so that variable `xK` has index K-1; variables that are
// not declared by the header are created in order of appearance. A negated
// literal `~x` is read as `1 - x`.
func ReadOPB(r io.Reader) (*Model, error) {
	p := &opbReader{m: New("")}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxOPBLine)
	var pending strings.Builder
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "*") {
			if err := p.readComment(line); err != nil {
				return nil, err
			}
			continue
		}
		for {
			semi := strings.IndexByte(line, ';')
			if semi < 0 {
				break
			}
			pending.WriteString(line[:semi])
			if err := p.readStatement(pending.String()); err != nil {
				return nil, err
			}
			pending.Reset()
			line = line[semi+1:]
		}
		pending.WriteString(line)
		pending.WriteByte(' ')
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("opb: %w", err)
	}
	if rest := strings.TrimSpace(pending.String()); rest != "" {
		return nil, fmt.Errorf("opb: unterminated statement %q", rest)
	}
	return p.m, nil
}

type opbReader struct {
	m          *Model
	statements int
	declared   bool
}

func (p *opbReader) readComment(line string) error {
	if p.declared || p.m.NumVars() > 0 {
		return nil
	}
	fields := strings.Fields(strings.TrimPrefix(line, "*"))
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] != "#variable=" {
			continue
		}
		n, err := strconv.Atoi(fields[i+1])
		if err != nil || n < 0 {
			return fmt.Errorf("opb: invalid header %q", line)
		}
		for k := 1; k <= n; k++ {
			p.m.NewBoolVar(fmt.Sprintf("x%d", k))
		}
		p.declared = true
		return nil
	}
	return nil
}

func (p *opbReader) readStatement(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	p.statements++
	switch {
	case strings.HasPrefix(s, "min:"), strings.HasPrefix(s, "max:"):
		sense := Minimize
		if strings.HasPrefix(s, "max:") {
			sense = Maximize
		}
		expr, err := p.readTerms(strings.Fields(s[len("min:"):]))
		if err != nil {
			return fmt.Errorf("opb: statement %d: %w", p.statements, err)
		}
		p.m.SetObjective(Objective{Expr: expr, Sense: sense})
		return nil
	}

	fields := strings.Fields(s)
	rel := -1
	for i, f := range fields {
		if f == ">=" || f == "<=" || f == "=" {
			rel = i
			break
		}
	}
	if rel < 0 || rel != len(fields)-2 {
		return fmt.Errorf("opb: statement %d: expected `terms op value` in %q", p.statements, s)
	}
	expr, err := p.readTerms(fields[:rel])
	if err != nil {
		return fmt.Errorf("opb: statement %d: %w", p.statements, err)
	}
	rhs, err := strconv.ParseFloat(fields[rel+1], 64)
	if err != nil {
		return fmt.Errorf("opb: statement %d: invalid right-hand side %q", p.statements, fields[rel+1])
	}
	c := Constraint{Expr: expr, RHS: rhs}
	switch fields[rel] {
	case ">=":
		c.Rel = GreaterOrEqual
	case "<=":
		c.Rel = LessOrEqual
	default:
		c.Rel = Equal
	}
	p.m.AddConstraint(c)
	return nil
}

// readTerms reads a sequence of `[coeff] literal` terms.
func (p *opbReader) readTerms(fields []string) (*LinearExpr, error) {
	expr := NewLinearExpr()
	coeff, haveCoeff, afterLit := 1.0, false, false
	for _, f := range fields {
		if strings.IndexByte("+-.0123456789", f[0]) >= 0 {
			c, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid coefficient %q", f)
			}
			if haveCoeff {
				return nil, fmt.Errorf("coefficient %q is not followed by a literal", f)
			}
			coeff, haveCoeff, afterLit = c, true, false
			continue
		}
		if afterLit {
			return nil, fmt.Errorf("%w: product ending in %q", ErrNonLinear, f)
		}
		negated := strings.HasPrefix(f, "~")
		name := strings.TrimPrefix(f, "~")
		if name == "" || !isOPBIdent(name) {
			return nil, fmt.Errorf("invalid literal %q", f)
		}
		v, ok := p.m.LookupVar(name)
		if !ok {
			v = p.m.NewBoolVar(name)
		}
		if negated {
			expr.AddConstant(coeff).AddTerm(v, -coeff)
		} else {
			expr.AddTerm(v, coeff)
		}
		coeff, haveCoeff, afterLit = 1.0, false, true
	}
	if haveCoeff {
		return nil, errors.New("trailing coefficient without a literal")
	}
	return expr, nil
}

func isOPBIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '[' || r == ']' || r == '.'):
		default:
			return false
		}
	}
	return true
}
