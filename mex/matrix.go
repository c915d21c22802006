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
package mex

import (
	"sort"

	"github.com/grailbio/isomex/featuremap"
)

// Entry is one non-zero cell of a Matrix. Row and Col are 0-based.
type Entry struct {
	Row, Col int
	Value    int64
}

// Matrix is a sparse feature x barcode count matrix. Features and Barcodes
// are sorted in byte order of feature id and barcode respectively, so that
// the same counts always produce the same matrix. Entries are sorted by
// (Row, Col) and every Value is positive.
type Matrix struct {
	Kind     featuremap.Kind
	Features []Feature
	Barcodes []string
	Entries  []Entry
}

// Rows returns the number of features.
func (m *Matrix) Rows() int { return len(m.Features) }

// Cols returns the number of barcodes.
func (m *Matrix) Cols() int { return len(m.Barcodes) }

// NonZero returns the number of entries.
func (m *Matrix) NonZero() int { return len(m.Entries) }

// Total returns the sum of all entries.
func (m *Matrix) Total() int64 {
	var n int64
	for _, e := range m.Entries {
		n += e.Value
	}
	return n
}

// NumNovel returns the number of novel features.
func (m *Matrix) NumNovel() int {
	n := 0
	for _, f := range m.Features {
		if f.Novel {
			n++
		}
	}
	return n
}

// Build converts the aggregated counts into a matrix. Only features and
// barcodes with at least one non-zero count become rows and columns.
func Build(a *Aggregator) *Matrix {
	counts := a.Counts()
	m := &Matrix{Kind: a.Kind()}

	featureIndex := map[string]int{}
	barcodeIndex := map[string]int{}
	for _, c := range counts {
		if _, ok := featureIndex[c.FeatureID]; !ok {
			f, ok := a.Feature(c.FeatureID)
			if !ok {
				panic(c)
			}
			featureIndex[c.FeatureID] = -1
			m.Features = append(m.Features, f)
		}
		if _, ok := barcodeIndex[c.Barcode]; !ok {
			barcodeIndex[c.Barcode] = -1
			m.Barcodes = append(m.Barcodes, c.Barcode)
		}
	}
	// counts is sorted by feature id, so m.Features already is.
	sort.Strings(m.Barcodes)
	for i, f := range m.Features {
		featureIndex[f.ID] = i
	}
	for i, bc := range m.Barcodes {
		barcodeIndex[bc] = i
	}

	m.Entries = make([]Entry, len(counts))
	for i, c := range counts {
		m.Entries[i] = Entry{Row: featureIndex[c.FeatureID], Col: barcodeIndex[c.Barcode], Value: c.Total}
	}
	// Sorting counts by (feature, barcode) already orders the entries by
	// (row, col), since both orders are byte orders.
	return m
}
