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
package isoform

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/isomex/util"
)

const (
	// KeyColumn is the join key of the two tables.
	KeyColumn = "id"
	// BarcodeColumn holds the cell barcode.
	BarcodeColumn = "BC"
	// CategoryColumn holds the structural category.
	CategoryColumn = "category"
	// CountColumn holds the optional per-row count.
	CountColumn = "count"

	// AnnotatedSuffix is appended to the name of an annotated-table column
	// that is also present in the info table.
	AnnotatedSuffix = "_annotated"
)

// Column names tried, in order, for each Record field.
var (
	geneIDColumns         = []string{"gene_id", "gene"}
	geneNameColumns       = []string{"gene_name", "gene"}
	transcriptIDColumns   = []string{"transcript_id", "transcript"}
	transcriptNameColumns = []string{"transcript_name", "transcript"}
)

// InfoPath returns the path of the info table for a sample basename.
func InfoPath(base string) string { return base + ".info.csv" }

// AnnotatedPath returns the path of the annotated info table for a sample
// basename.
func AnnotatedPath(base string) string { return base + ".annotated.info.csv" }

// LoadOpts controls Load and Merge.
type LoadOpts struct {
	// RequireCategory makes a missing category column an error. Set it when
	// the records are going to be filtered by category.
	RequireCategory bool
}

// LoadStats summarizes a Load.
type LoadStats struct {
	InfoRows      int
	AnnotatedRows int
	// JoinedRows is the number of records produced by the join.
	JoinedRows int
}

// Load reads InfoPath(base) and AnnotatedPath(base) and merges them.
//
// A missing or unreadable table yields errors.NotExist. A table without the
// id column, a merged schema without the columns a Record needs, a duplicate
// id, or a malformed count yields errors.Invalid.
func Load(ctx context.Context, base string, opts LoadOpts) ([]Record, LoadStats, error) {
	info, err := util.ReadTable(ctx, InfoPath(base))
	if err != nil {
		return nil, LoadStats{}, err
	}
	annotated, err := util.ReadTable(ctx, AnnotatedPath(base))
	if err != nil {
		return nil, LoadStats{}, err
	}
	records, err := Merge(info, annotated, opts)
	if err != nil {
		return nil, LoadStats{}, err
	}
	stats := LoadStats{
		InfoRows:      len(info.Rows),
		AnnotatedRows: len(annotated.Rows),
		JoinedRows:    len(records),
	}
	log.Printf("Stats: %s: %d info rows, %d annotated rows, %d joined", base,
		stats.InfoRows, stats.AnnotatedRows, stats.JoinedRows)
	return records, stats, nil
}

// column locates a merged-schema column in one of the two source tables.
type column struct {
	right bool // true: annotated table
	index int
}

func (c column) get(left, right []string) string {
	if c.right {
		return right[c.index]
	}
	return left[c.index]
}

// mergedSchema maps merged column names to their source. The info table keeps
// its column names; annotated-table columns that clash get AnnotatedSuffix.
type mergedSchema map[string]column

func newMergedSchema(left, right *util.Table) (mergedSchema, error) {
	s := mergedSchema{}
	for i, name := range left.Columns {
		s[name] = column{index: i}
	}
	for i, name := range right.Columns {
		if name == KeyColumn {
			continue
		}
		merged := name
		if left.Col(name) >= 0 {
			merged += AnnotatedSuffix
		}
		if _, ok := s[merged]; ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s + %s: column %q of %s would be merged as %q, which is already taken",
				left.Path, right.Path, name, right.Path, merged))
		}
		s[merged] = column{right: true, index: i}
	}
	return s, nil
}

func (s mergedSchema) first(names []string) (column, bool) {
	for _, name := range names {
		if c, ok := s[name]; ok {
			return c, true
		}
	}
	return column{}, false
}

// keyIndex maps each id of t to its row, rejecting duplicates. The join is
// only defined for tables that are 1:1 on the key; fanning out duplicates
// would silently inflate counts.
func keyIndex(t *util.Table) (map[string]int, error) {
	col := t.Col(KeyColumn)
	idx := make(map[string]int, len(t.Rows))
	for i, row := range t.Rows {
		key := row[col]
		if prev, ok := idx[key]; ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s:%d: duplicate %s %q (first seen on line %d)",
				t.Path, t.Line(i), KeyColumn, key, t.Line(prev)))
		}
		idx[key] = i
	}
	return idx, nil
}

// Merge inner-joins info and annotated on the id column and converts each
// joined row into a Record. Records are returned in info-table order.
func Merge(info, annotated *util.Table, opts LoadOpts) ([]Record, error) {
	for _, t := range []*util.Table{info, annotated} {
		if err := t.Require(KeyColumn); err != nil {
			return nil, err
		}
	}
	schema, err := newMergedSchema(info, annotated)
	if err != nil {
		return nil, err
	}
	where := fmt.Sprintf("%s + %s", info.Path, annotated.Path)
	var missing []string
	lookup := func(what string, names ...string) column {
		c, ok := schema.first(names)
		if !ok {
			missing = append(missing, what+" ("+strings.Join(names, "|")+")")
		}
		return c
	}
	var (
		barcode        = lookup("barcode", BarcodeColumn)
		geneID         = lookup("gene id", geneIDColumns...)
		geneName       = lookup("gene name", geneNameColumns...)
		transcriptID   = lookup("transcript id", transcriptIDColumns...)
		transcriptName = lookup("transcript name", transcriptNameColumns...)
	)
	category, hasCategory := schema[CategoryColumn]
	if !hasCategory && opts.RequireCategory {
		missing = append(missing, "category ("+CategoryColumn+")")
	}
	count, hasCount := schema[CountColumn]
	if len(missing) > 0 {
		return nil, errors.E(errors.Invalid, where, "missing required column(s):", strings.Join(missing, ", "))
	}

	if _, err := keyIndex(info); err != nil {
		return nil, err
	}
	right, err := keyIndex(annotated)
	if err != nil {
		return nil, err
	}
	keyCol := info.Col(KeyColumn)
	records := make([]Record, 0, len(info.Rows))
	for i, l := range info.Rows {
		j, ok := right[l[keyCol]]
		if !ok {
			continue
		}
		r := annotated.Rows[j]
		rec := Record{
			ID:             l[keyCol],
			GeneID:         strings.TrimSpace(geneID.get(l, r)),
			GeneName:       strings.TrimSpace(geneName.get(l, r)),
			TranscriptID:   strings.TrimSpace(transcriptID.get(l, r)),
			TranscriptName: strings.TrimSpace(transcriptName.get(l, r)),
			Barcode:        strings.TrimSpace(barcode.get(l, r)),
			Count:          1,
		}
		if hasCategory {
			rec.Category = category.get(l, r)
		}
		if hasCount {
			s := strings.TrimSpace(count.get(l, r))
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil || n < 0 {
				path, line := info.Path, info.Line(i)
				if count.right {
					path, line = annotated.Path, annotated.Line(j)
				}
				return nil, errors.E(errors.Invalid, fmt.Sprintf("%s:%d: %s %q is not a non-negative integer",
					path, line, CountColumn, s))
			}
			rec.Count = n
		}
		records = append(records, rec)
	}
	return records, nil
}
