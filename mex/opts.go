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

// Opts configures Run.
type Opts struct {
	// Base is the sample basename; the inputs are <Base>.info.csv and
	// <Base>.annotated.info.csv.
	Base string
	// GeneMapPath and TranscriptMapPath are the annotation lookup tables.
	GeneMapPath       string
	TranscriptMapPath string
	// Categories restricts the records to these structural categories. Empty
	// keeps every record.
	Categories []string
	// OutputDir receives a "gene" and a "transcript" subdirectory.
	OutputDir string

	// Compress gzips the output files and appends ".gz" to their names.
	Compress bool
	// BarcodeSuffix is appended to every barcode in barcodes.tsv. "-1" is the
	// GEM-well suffix 10x tools expect.
	BarcodeSuffix string
	// CellRangerFeatureTypes writes "Gene Expression"/"Transcript Expression"
	// in the third column of features.tsv instead of "gene"/"transcript".
	CellRangerFeatureTypes bool
	// MatchNames lets an input id that is absent from the map resolve to the
	// annotated id carrying that name, when exactly one does. Inputs that
	// report gene symbols instead of gene ids need this.
	MatchNames bool
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	OutputDir:     "output",
	Compress:      true,
	BarcodeSuffix: "-1",
}
