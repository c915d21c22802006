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

/*
Package mex turns classified long reads into feature-by-barcode count
matrices in the 10x Genomics MEX format (matrix.mtx, features.tsv,
barcodes.tsv), one matrix for genes and one for transcripts.

The steps, in order, are:

  isoform.Load      join <base>.info.csv with <base>.annotated.info.csv
  isoform.Filter    keep the requested structural categories
  Resolver          map each record to one canonical Feature
  Aggregator        sum counts per (feature, barcode)
  Build             order features and barcodes, emit coordinates
  WriteMEX          serialize the three files

Run drives all of them for both kinds and publishes the result only if both
matrices were written.

A Feature's name is a function of its id alone. Ids found in the annotation
map take the map's name regardless of what the input rows say; ids absent
from the map are novel and keep the name the input reports for them.
*/
package mex
