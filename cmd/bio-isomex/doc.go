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
bio-isomex turns the per-read isoform classification of one single-cell
long-read sample into two sparse feature-by-barcode count matrices, one for
genes and one for transcripts, in the 10x MEX layout that single-cell tools
load directly.

The sample is given by its basename: <basename>.info.csv holds the barcode of
each read and <basename>.annotated.info.csv its gene, transcript and
structural category. Gene and transcript ids are resolved against two lookup
tables; ids missing from them are kept as novel features.

Sample usage:
bio-isomex \
    -gene-map gene_map.tsv \
    -transcript-map transcript_map.tsv \
    -filter-category full-splice_match,incomplete-splice_match \
    -output-dir out \
    sample1

writes out/gene/{matrix.mtx,features.tsv,barcodes.tsv}.gz and the same under
out/transcript.

The lookup tables can be extracted from a GTF annotation:
bio-isomex -generate-maps \
    -gene-map gene_map.tsv \
    -transcript-map transcript_map.tsv \
    gencode.v44.annotation.gtf.gz
*/
package main
