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
	"bufio"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// LogWriter writes the backbone log: one `b <name>` line for each variable
// fixed to true, one `b -<name>` line for each variable fixed to false, and
// a final `b 0` line once the backbone is complete. The first character of
// variable names, a type marker, is dropped.
//
// Every record is flushed before the write returns, so that the log of an
// interrupted run holds every backbone found so far.
type LogWriter struct {
	w       *bufio.Writer
	closer  io.Closer
	records int
}

// NewLogWriter returns a LogWriter writing to `w`.
func NewLogWriter(w io.Writer) *LogWriter {
	return &LogWriter{w: bufio.NewWriter(w)}
}

// NewLogFile returns a LogWriter writing to `wc`, which is closed by Close.
func NewLogFile(wc io.WriteCloser) *LogWriter {
	l := NewLogWriter(wc)
	l.closer = wc
	return l
}

// CreateLogFile creates or truncates the file `path` and returns a LogWriter
// writing to it. The file is closed by Close.
func CreateLogFile(path string) (*LogWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating backbone log: %w", err)
	}
	return NewLogFile(f), nil
}

// WriteLiteral writes the record of a variable fixed to `value`.
func (l *LogWriter) WriteLiteral(name string, value bool) error {
	_, size := utf8.DecodeRuneInString(name)
	sign := ""
	if !value {
		sign = "-"
	}
	if _, err := fmt.Fprintf(l.w, "b %s%s\n", sign, name[size:]); err != nil {
		return err
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("writing backbone log: %w", err)
	}
	l.records++
	return nil
}

// WriteTerminator writes the record closing a complete backbone.
func (l *LogWriter) WriteTerminator() error {
	if _, err := l.w.WriteString("b 0\n"); err != nil {
		return err
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("writing backbone log: %w", err)
	}
	return nil
}

// Records returns the number of literals written so far.
func (l *LogWriter) Records() int {
	return l.records
}

// Close flushes the log and closes the underlying file, if any.
func (l *LogWriter) Close() error {
	err := l.w.Flush()
	if l.closer != nil {
		if cerr := l.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
