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
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile(%v) returned with unexpected error %v", path, err)
	}
	return path
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(s)); err != nil {
		t.Fatalf("gzip Write() returned with unexpected error %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip Close() returned with unexpected error %v", err)
	}
	return buf.Bytes()
}

func TestReadFile(t *testing.T) {
	testCases := []struct {
		name     string
		file     string
		data     []byte
		wantName string
		wantVars int
	}{
		{
			name:     "OPB",
			file:     "knapsack.opb",
			data:     []byte("* #variable= 2 #constraint= 1\n+2 x1 +3 x2 <= 4 ;\n"),
			wantName: "knapsack",
			wantVars: 2,
		},
		{
			name:     "GzippedOPB",
			file:     "knapsack.opb.gz",
			data:     gzipped(t, "max: +1 x1 ;\n"),
			wantName: "knapsack",
			wantVars: 1,
		},
		{
			name:     "CNF",
			file:     "units.cnf",
			data:     []byte("p cnf 2 2\n1 0\n-2 0\n"),
			wantName: "units",
			wantVars: 2,
		},
		{
			name:     "GzippedDimacs",
			file:     "units.dimacs.gz",
			data:     gzipped(t, "p cnf 3 1\n1 2 3 0\n"),
			wantName: "units",
			wantVars: 3,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			m, err := ReadFile(writeTestFile(t, test.file, test.data))
			if err != nil {
				t.Fatalf("ReadFile() returned with unexpected error %v", err)
			}
			if got := m.Name(); got != test.wantName {
				t.Errorf("Name() = %q, want %q", got, test.wantName)
			}
			if got := m.NumVars(); got != test.wantVars {
				t.Errorf("NumVars() = %v, want %v", got, test.wantVars)
			}
		})
	}
}

func TestReadFile_Errors(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.opb")); err == nil {
		t.Errorf("ReadFile(missing.opb) returned nil error")
	}

	_, err := ReadFile(writeTestFile(t, "model.lp", []byte("max: x;")))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ReadFile(model.lp) = %v, want %v", err, ErrUnknownFormat)
	}

	if _, err := ReadFile(writeTestFile(t, "broken.opb.gz", []byte("not gzip"))); err == nil {
		t.Errorf("ReadFile(broken.opb.gz) returned nil error")
	}

	_, err = ReadFile(writeTestFile(t, "product.opb", []byte("+1 x1 x2 >= 1 ;\n")))
	if !errors.Is(err, ErrNonLinear) {
		t.Errorf("ReadFile(product.opb) = %v, want %v", err, ErrNonLinear)
	}
}
