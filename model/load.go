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
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnknownFormat is returned by ReadFile for unsupported file extensions.
var ErrUnknownFormat = errors.New("unknown model format")

// ReadFile loads a model from `path`, choosing the reader from the file
// extension: `.opb` for OPB, `.cnf` and `.dimacs` for DIMACS CNF. A trailing
// `.gz` is decompressed first. The model is named after the file.
func ReadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	var r io.Reader = f
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	var m *Model
	switch filepath.Ext(name) {
	case ".opb":
		m, err = ReadOPB(r)
	case ".cnf", ".dimacs":
		m, err = ReadDIMACS(r)
	default:
		return nil, fmt.Errorf("reading %s: %w %q", path, ErrUnknownFormat, filepath.Ext(name))
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m.name = strings.TrimSuffix(name, filepath.Ext(name))
	return m, nil
}
