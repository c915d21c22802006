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

// Package featuremap holds the annotation lookup tables that map gene and
// transcript identifiers to their display names. Maps are read from the
// two-column TSV files produced by ReadGTF/Write, e.g.
//
//   gene_id            gene_name
//   ENSG00000223972.5  DDX11L1
package featuremap

import (
	"context"
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/isomex/util"
)

// Kind is the type of feature a map (or a matrix row) describes.
type Kind int

const (
	// Gene features are keyed by gene_id.
	Gene Kind = iota
	// Transcript features are keyed by transcript_id.
	Transcript
)

// Kinds lists every Kind in output order.
var Kinds = []Kind{Gene, Transcript}

func (k Kind) String() string {
	switch k {
	case Gene:
		return "gene"
	case Transcript:
		return "transcript"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IDColumn is the header name of the identifier column in a map file, and
// the GTF attribute holding the identifier.
func (k Kind) IDColumn() string { return k.String() + "_id" }

// NameColumn is the header name of the display-name column in a map file,
// and the GTF attribute holding the name.
func (k Kind) NameColumn() string { return k.String() + "_name" }

// Map is a read-only id -> name lookup for one Kind. The zero value is not
// usable; call New.
type Map struct {
	kind   Kind
	ids    []string // insertion order
	names  map[string]string
	byName map[string][]string
}

// New creates an empty map.
func New(kind Kind) *Map {
	return &Map{
		kind:   kind,
		names:  map[string]string{},
		byName: map[string][]string{},
	}
}

// Kind returns the feature kind of the map.
func (m *Map) Kind() Kind { return m.kind }

// Len returns the number of ids in the map.
func (m *Map) Len() int { return len(m.ids) }

// IDs returns the ids in insertion order. The caller must not modify the
// result.
func (m *Map) IDs() []string { return m.ids }

// Add registers id -> name. Re-adding an id with the same name is a no-op;
// re-adding it with a different name fails with errors.Invalid, since a map
// that gives one id two names cannot canonicalize anything.
func (m *Map) Add(id, name string) error {
	if old, ok := m.names[id]; ok {
		if old != name {
			return errors.E(errors.Invalid, fmt.Sprintf("%s %s has conflicting names %q and %q", m.kind, id, old, name))
		}
		return nil
	}
	m.ids = append(m.ids, id)
	m.names[id] = name
	m.byName[name] = append(m.byName[name], id)
	return nil
}

// Name returns the display name of id.
func (m *Map) Name(id string) (string, bool) {
	name, ok := m.names[id]
	return name, ok
}

// IDForName returns the id whose display name is name. It reports false when
// no id or more than one id carries that name.
func (m *Map) IDForName(name string) (string, bool) {
	ids := m.byName[name]
	if len(ids) != 1 {
		return "", false
	}
	return ids[0], true
}

// Read loads a map of the given kind from a headered TSV file with (at
// least) the kind's IDColumn and NameColumn. Rows with a blank id are
// skipped; a blank name falls back to the id. A missing file yields
// errors.NotExist; a missing column or an id with conflicting names yields
// errors.Invalid.
func Read(ctx context.Context, path string, kind Kind) (*Map, error) {
	tbl, err := util.ReadTable(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := tbl.Require(kind.IDColumn(), kind.NameColumn()); err != nil {
		return nil, err
	}
	idCol, nameCol := tbl.Col(kind.IDColumn()), tbl.Col(kind.NameColumn())
	m := New(kind)
	nSkipped := 0
	for i, row := range tbl.Rows {
		id, name := strings.TrimSpace(row[idCol]), strings.TrimSpace(row[nameCol])
		if id == "" {
			nSkipped++
			continue
		}
		if name == "" {
			name = id
		}
		if err := m.Add(id, name); err != nil {
			return nil, errors.E(fmt.Sprintf("%s:%d", path, tbl.Line(i)), err)
		}
	}
	log.Printf("Read %d %s ids from %s (%d blank rows skipped)", m.Len(), kind, path, nSkipped)
	return m, nil
}

// Write stores m in the format Read expects, in insertion order. The file is
// gzipped if path ends in .gz.
func Write(ctx context.Context, path string, m *Map) (err error) {
	out, err := util.Create(ctx, path, util.IsGzip(path))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	w := tsv.NewWriter(out)
	w.WriteString(m.kind.IDColumn())
	w.WriteString(m.kind.NameColumn())
	if err = w.EndLine(); err != nil {
		return errors.E("write", path, err)
	}
	for _, id := range m.ids {
		w.WriteString(id)
		w.WriteString(m.names[id])
		if err = w.EndLine(); err != nil {
			return errors.E("write", path, err)
		}
	}
	if err = w.Flush(); err != nil {
		return errors.E("write", path, err)
	}
	log.Printf("Wrote %d %s ids to %s", m.Len(), m.kind, path)
	return nil
}
