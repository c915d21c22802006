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
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/isomex/featuremap"
	"github.com/grailbio/isomex/isoform"
	"github.com/grailbio/isomex/mex"
)

var (
	geneMapPath       = flag.String("gene-map", mex.DefaultOpts.GeneMapPath, "Gene lookup table with gene_id and gene_name columns")
	transcriptMapPath = flag.String("transcript-map", mex.DefaultOpts.TranscriptMapPath, "Transcript lookup table with transcript_id and transcript_name columns")
	filterCategory    = flag.String("filter-category", "", "Comma-separated structural categories to keep, e.g. full-splice_match,incomplete-splice_match; empty keeps all records")
	outputDir         = flag.String("output-dir", mex.DefaultOpts.OutputDir, "Directory that receives the gene and transcript matrices")
	compress          = flag.Bool("compress", mex.DefaultOpts.Compress, "Gzip the output files")
	barcodeSuffix     = flag.String("barcode-suffix", mex.DefaultOpts.BarcodeSuffix, "Suffix appended to each barcode in barcodes.tsv")
	cellRangerTypes   = flag.Bool("cellranger-feature-types", mex.DefaultOpts.CellRangerFeatureTypes, "Label features \"Gene Expression\"/\"Transcript Expression\" instead of gene/transcript")
	matchNames        = flag.Bool("match-names", mex.DefaultOpts.MatchNames, "Resolve an unknown id through the map when it equals exactly one annotated name")
	generateMaps      = flag.Bool("generate-maps", false, "Extract -gene-map and -transcript-map from the GTF given as the only argument, then exit")
)

func usage() {
	fmt.Printf("Usage: %s [OPTIONS] basename\n", os.Args[0])
	fmt.Printf("       %s -generate-maps -gene-map path -transcript-map path annotation.gtf\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

// writeMaps extracts the gene and transcript maps from gtfPath.
func writeMaps(ctx context.Context, gtfPath, genePath, transcriptPath string) error {
	if genePath == "" || transcriptPath == "" {
		return errors.E(errors.Invalid, "-gene-map and -transcript-map are required")
	}
	genes, transcripts, err := featuremap.ReadGTF(ctx, gtfPath)
	if err != nil {
		return err
	}
	if err := featuremap.Write(ctx, genePath, genes); err != nil {
		return err
	}
	return featuremap.Write(ctx, transcriptPath, transcripts)
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		log.Fatalf("exactly one positional argument is required, got %d: '%s'", flag.NArg(), strings.Join(flag.Args(), " "))
	}
	ctx := vcontext.Background()
	if *generateMaps {
		if err := writeMaps(ctx, flag.Arg(0), *geneMapPath, *transcriptMapPath); err != nil {
			log.Fatal(err)
		}
		return
	}
	opts := mex.Opts{
		Base:                   flag.Arg(0),
		GeneMapPath:            *geneMapPath,
		TranscriptMapPath:      *transcriptMapPath,
		Categories:             isoform.ParseCategories(*filterCategory),
		OutputDir:              *outputDir,
		Compress:               *compress,
		BarcodeSuffix:          *barcodeSuffix,
		CellRangerFeatureTypes: *cellRangerTypes,
		MatchNames:             *matchNames,
	}
	if _, err := mex.Run(ctx, opts); err != nil {
		log.Fatal(err)
	}
	log.Debug.Printf("exiting")
}
