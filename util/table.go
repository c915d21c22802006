// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package util

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// Table is a tab-separated file with a single header row, held in memory.
// Cells are kept as raw strings; interpretation is up to the caller.
type Table struct {
	// Path is the file the table was read from. Used in error messages.
	Path string
	// Columns lists the header names in file order.
	Columns []string
	// Rows holds the data rows. Every row has len(Columns) cells.
	Rows [][]string

	index map[string]int
}

// NewTable creates a table from a header and rows. Duplicate header names
// are rejected.
func NewTable(path string, columns []string, rows [][]string) (*Table, error) {
	t := &Table{Path: path, Columns: columns, Rows: rows, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if _, ok := t.index[c]; ok {
			return nil, errors.E(errors.Invalid, path, "duplicate column", c)
		}
		t.index[c] = i
	}
	return t, nil
}

// ReadTable reads a headered TSV file. A missing or unreadable file yields
// errors.NotExist; an empty file, a duplicated header name or a row with the
// wrong number of cells yields errors.Invalid.
func ReadTable(ctx context.Context, path string) (t *Table, err error) {
	in, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := in.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return ParseTable(in, path)
}

// ParseTable reads a headered TSV stream. path is used in error messages.
func ParseTable(in io.Reader, path string) (*Table, error) {
	r := tsv.NewReader(in)
	r.LazyQuotes = true
	// The embedded csv.Reader gives us raw rows; column meaning is resolved by
	// header name below.
	header, err := r.Reader.Read()
	if err == io.EOF {
		return nil, errors.E(errors.Invalid, path, "empty table: no header row")
	}
	if err != nil {
		return nil, errors.E(errors.Invalid, path, err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}
	var rows [][]string
	for {
		rec, err := r.Reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.E(errors.Invalid, path, err)
		}
		rows = append(rows, append([]string(nil), rec...))
	}
	return NewTable(path, columns, rows)
}

// Col returns the index of the named column, or -1.
func (t *Table) Col(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Require returns an errors.Invalid error naming every column in names that
// is absent from the header.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if t.Col(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.E(errors.Invalid, t.Path, "missing required column(s):", strings.Join(missing, ","))
	}
	return nil
}

// Line returns the 1-based file line of data row i, assuming one header line
// and no embedded newlines.
func (t *Table) Line(i int) int { return i + 2 }
