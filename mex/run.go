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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/isomex/featuremap"
	"github.com/grailbio/isomex/isoform"
)

// KindStats summarizes the matrix of one feature kind.
type KindStats struct {
	Features      int
	NovelFeatures int
	Barcodes      int
	NonZero       int
	Total         int64
}

// Stats summarizes a Run.
type Stats struct {
	isoform.LoadStats
	// FilteredRows is the number of records left after category filtering.
	FilteredRows int
	Gene         KindStats
	Transcript   KindStats
}

func (s *Stats) kind(kind featuremap.Kind) *KindStats {
	if kind == featuremap.Gene {
		return &s.Gene
	}
	return &s.Transcript
}

func (o *Opts) validate() error {
	switch {
	case o.Base == "":
		return errors.E(errors.Invalid, "sample basename is required")
	case o.GeneMapPath == "":
		return errors.E(errors.Invalid, "gene map path is required")
	case o.TranscriptMapPath == "":
		return errors.E(errors.Invalid, "transcript map path is required")
	case o.OutputDir == "":
		return errors.E(errors.Invalid, "output directory is required")
	}
	return nil
}

// KindDir returns the directory Run writes the matrix of kind to.
func KindDir(outputDir string, kind featuremap.Kind) string {
	return filepath.Join(outputDir, kind.String())
}

// Matrices loads, filters and resolves the records described by opts and
// builds the gene and the transcript matrix, in featuremap.Kinds order. It
// writes nothing.
func Matrices(ctx context.Context, opts Opts) ([]*Matrix, Stats, error) {
	var stats Stats
	if err := opts.validate(); err != nil {
		return nil, stats, err
	}
	maps := make([]*featuremap.Map, len(featuremap.Kinds))
	for i, kind := range featuremap.Kinds {
		path := opts.GeneMapPath
		if kind == featuremap.Transcript {
			path = opts.TranscriptMapPath
		}
		var err error
		if maps[i], err = featuremap.Read(ctx, path, kind); err != nil {
			return nil, stats, err
		}
	}
	records, loadStats, err := isoform.Load(ctx, opts.Base, isoform.LoadOpts{
		RequireCategory: len(opts.Categories) > 0,
	})
	if err != nil {
		return nil, stats, err
	}
	stats.LoadStats = loadStats
	records = isoform.Filter(records, opts.Categories)
	stats.FilteredRows = len(records)
	if len(opts.Categories) > 0 {
		log.Printf("Stats: %d of %d records in categories %v", len(records), loadStats.JoinedRows, opts.Categories)
	}
	if len(records) == 0 {
		log.Error.Printf("warning: %s: no records left; writing empty matrices", opts.Base)
	}

	matrices := make([]*Matrix, len(maps))
	for i, fmap := range maps {
		kind := fmap.Kind()
		resolver := NewResolver(fmap, records, opts.MatchNames)
		agg := NewAggregator(kind)
		for j := range records {
			agg.Add(resolver.Resolve(&records[j]), records[j].Barcode, records[j].Count)
		}
		m := Build(agg)
		ks := stats.kind(kind)
		*ks = KindStats{
			Features:      m.Rows(),
			NovelFeatures: m.NumNovel(),
			Barcodes:      m.Cols(),
			NonZero:       m.NonZero(),
			Total:         m.Total(),
		}
		log.Printf("Stats: %s: %d features (%d novel) x %d barcodes, %d non-zero, total count %d",
			kind, ks.Features, ks.NovelFeatures, ks.Barcodes, ks.NonZero, ks.Total)
		matrices[i] = m
	}
	return matrices, stats, nil
}

// Run computes the gene and transcript matrices and writes them to
// <OutputDir>/gene and <OutputDir>/transcript.
//
// Both matrices are first written to a staging directory next to OutputDir.
// The kind directories are moved into OutputDir, replacing earlier results,
// only once both are complete. If anything fails, nothing is published and
// earlier results are left in place.
func Run(ctx context.Context, opts Opts) (stats Stats, err error) {
	matrices, stats, err := Matrices(ctx, opts)
	if err != nil {
		return stats, err
	}
	outDir := filepath.Clean(opts.OutputDir)
	parent := filepath.Dir(outDir)
	if err = os.MkdirAll(parent, 0777); err != nil {
		return stats, errors.E("mkdir", parent, err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(outDir)+".staging-")
	if err != nil {
		return stats, errors.E("create staging directory in", parent, err)
	}
	defer func() {
		if rerr := os.RemoveAll(staging); rerr != nil && err == nil {
			err = errors.E("remove", staging, rerr)
		}
	}()
	for _, m := range matrices {
		dir := KindDir(staging, m.Kind)
		if err = os.MkdirAll(dir, 0777); err != nil {
			return stats, errors.E("mkdir", dir, err)
		}
		if err = WriteMEX(ctx, dir, m, opts); err != nil {
			return stats, err
		}
	}
	if err = publish(staging, outDir); err != nil {
		return stats, err
	}
	log.Printf("%s: wrote %s and %s", opts.Base,
		KindDir(outDir, featuremap.Gene), KindDir(outDir, featuremap.Transcript))
	return stats, nil
}

// rename is os.Rename; tests replace it to inject failures.
var rename = os.Rename

// publish moves the kind directories from staging into outDir. Previous
// results are first moved aside into staging, so that a failure part way
// restores them and the staging cleanup in Run discards them on success.
func publish(staging, outDir string) (err error) {
	if err := os.MkdirAll(outDir, 0777); err != nil {
		return errors.E("mkdir", outDir, err)
	}
	type move struct{ from, to string }
	var done []move
	defer func() {
		if err == nil {
			return
		}
		for i := len(done) - 1; i >= 0; i-- {
			if rerr := rename(done[i].to, done[i].from); rerr != nil {
				log.Error.Printf("restore %s: %v", done[i].from, rerr)
			}
		}
	}()
	mv := func(from, to string) error {
		if err := rename(from, to); err != nil {
			return errors.E(fmt.Sprintf("rename %s -> %s", from, to), err)
		}
		done = append(done, move{from, to})
		return nil
	}
	for _, kind := range featuremap.Kinds {
		dst := KindDir(outDir, kind)
		if _, err := os.Lstat(dst); os.IsNotExist(err) {
			continue
		} else if err != nil {
			return errors.E("stat", dst, err)
		}
		if err := mv(dst, filepath.Join(staging, kind.String()+".old")); err != nil {
			return err
		}
	}
	for _, kind := range featuremap.Kinds {
		if err := mv(KindDir(staging, kind), KindDir(outDir, kind)); err != nil {
			return err
		}
	}
	return nil
}
