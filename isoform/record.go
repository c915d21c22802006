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

// Package isoform reads the per-read isoform classification tables written
// by SQANTI3/pigeon for one sample, <base>.info.csv and
// <base>.annotated.info.csv, and joins them into Records.
//
// Despite the extension both files are tab-separated with a header row.
package isoform

import "github.com/grailbio/isomex/featuremap"

// Record is one classified read. Records are not modified after Load.
type Record struct {
	// ID is the join key shared by the two input tables.
	ID             string
	GeneID         string
	GeneName       string
	TranscriptID   string
	TranscriptName string
	// Barcode is the cell barcode (the BC column).
	Barcode string
	// Category is the structural category, e.g. "full-splice_match".
	Category string
	// Count is the number of observations the row stands for; 1 unless the
	// input has a count column.
	Count int64
}

// Feature returns the raw (id, name) the record reports for the given kind.
func (r *Record) Feature(kind featuremap.Kind) (id, name string) {
	if kind == featuremap.Gene {
		return r.GeneID, r.GeneName
	}
	return r.TranscriptID, r.TranscriptName
}
