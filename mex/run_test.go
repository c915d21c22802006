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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/isomex/featuremap"
	"github.com/grailbio/isomex/isoform"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func writeLines(t *testing.T, path string, lines ...string) {
	assert.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
}

// setup writes a sample and both maps into dir and returns Opts for them.
func setup(t *testing.T, dir string) Opts {
	base := filepath.Join(dir, "sample1")
	writeLines(t, isoform.InfoPath(base),
		"id\tBC\tUMI",
		"m1\tAAA\tU1",
		"m2\tAAA\tU2",
		"m3\tBBB\tU3",
		"m4\tCCC\tU4",
		"m5\tCCC\tU5",
	)
	writeLines(t, isoform.AnnotatedPath(base),
		"id\tgene_id\tgene_name\ttranscript_id\ttranscript_name\tcategory\tcount",
		"m1\tG1\tFoo\tT1\tFoo-201\tfull-splice_match\t1",
		"m2\tG1\tFoobar\tT1\tFoobar-201\tfull-splice_match\t2",
		"m3\tG2\tBar\tPB.2.1\tPB.2.1\tfull-splice_match\t1",
		"m4\tG1\tFoo\tPB.1.9\tPB.1.9\tnovel_in_catalog\t5",
		"m5\tG3\tBaz\tT3\tBaz-201\tnovel_in_catalog\t1",
	)
	geneMap := filepath.Join(dir, "gene_map.txt")
	writeLines(t, geneMap, "gene_id\tgene_name", "G1\tFoo", "G3\tBaz")
	transcriptMap := filepath.Join(dir, "transcript_map.txt")
	writeLines(t, transcriptMap, "transcript_id\ttranscript_name", "T1\tFoo-201", "T3\tBaz-201")

	opts := DefaultOpts
	opts.Base = base
	opts.GeneMapPath = geneMap
	opts.TranscriptMapPath = transcriptMap
	opts.OutputDir = filepath.Join(dir, "out")
	opts.Compress = false
	return opts
}

func readMEX(t *testing.T, dir string, compress bool) [3]string {
	var got, paths [3]string
	paths[0], paths[1], paths[2] = MEXPaths(dir, compress)
	for i, p := range paths {
		if compress {
			got[i] = readGzip(t, p)
		} else {
			got[i] = readFile(t, p)
		}
	}
	return got
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	opts := setup(t, dir)

	stats, err := Run(ctx, opts)
	assert.NoError(t, err)
	expect.EQ(t, stats.JoinedRows, 5)
	expect.EQ(t, stats.FilteredRows, 5)
	expect.EQ(t, stats.Gene, KindStats{Features: 3, NovelFeatures: 1, Barcodes: 3, NonZero: 4, Total: 10})
	expect.EQ(t, stats.Transcript, KindStats{Features: 4, NovelFeatures: 2, Barcodes: 3, NonZero: 4, Total: 10})

	gene := readMEX(t, KindDir(opts.OutputDir, featuremap.Gene), false)
	expect.EQ(t, gene, [3]string{
		"%%MatrixMarket matrix coordinate integer general\n%\n3 3 4\n1 1 3\n1 3 5\n2 2 1\n3 3 1\n",
		"G1\tFoo\tgene\nG2\tBar\tgene\nG3\tBaz\tgene\n",
		"AAA-1\nBBB-1\nCCC-1\n",
	})
	transcript := readMEX(t, KindDir(opts.OutputDir, featuremap.Transcript), false)
	expect.EQ(t, transcript, [3]string{
		"%%MatrixMarket matrix coordinate integer general\n%\n4 3 4\n1 3 5\n2 2 1\n3 1 3\n4 3 1\n",
		"PB.1.9\tPB.1.9\ttranscript\nPB.2.1\tPB.2.1\ttranscript\nT1\tFoo-201\ttranscript\nT3\tBaz-201\ttranscript\n",
		"AAA-1\nBBB-1\nCCC-1\n",
	})

	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), "staging"), "staging dir %s left behind", e.Name())
	}
}

func TestRunFilter(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	opts := setup(t, dir)
	opts.Categories = []string{isoform.FullSpliceMatch}

	stats, err := Run(ctx, opts)
	assert.NoError(t, err)
	expect.EQ(t, stats.FilteredRows, 3)
	gene := readMEX(t, KindDir(opts.OutputDir, featuremap.Gene), false)
	// G3 and barcode CCC only occur in novel_in_catalog rows.
	expect.EQ(t, gene[0], "%%MatrixMarket matrix coordinate integer general\n%\n2 2 2\n1 1 3\n2 2 1\n")
	expect.EQ(t, gene[1], "G1\tFoo\tgene\nG2\tBar\tgene\n")
	expect.EQ(t, gene[2], "AAA-1\nBBB-1\n")

	// Nothing matches: empty but valid matrices.
	opts.Categories = []string{isoform.Antisense}
	stats, err = Run(ctx, opts)
	assert.NoError(t, err)
	expect.EQ(t, stats.FilteredRows, 0)
	for _, kind := range featuremap.Kinds {
		got := readMEX(t, KindDir(opts.OutputDir, kind), false)
		expect.EQ(t, got, [3]string{"%%MatrixMarket matrix coordinate integer general\n%\n0 0 0\n", "", ""})
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	opts := setup(t, dir)
	opts.Compress = true

	_, err := Run(ctx, opts)
	assert.NoError(t, err)
	var first [][3]string
	for _, kind := range featuremap.Kinds {
		kdir := KindDir(opts.OutputDir, kind)
		m, f, b := MEXPaths(kdir, true)
		first = append(first, [3]string{readFile(t, m), readFile(t, f), readFile(t, b)})
	}
	_, err = Run(ctx, opts)
	assert.NoError(t, err)
	for i, kind := range featuremap.Kinds {
		kdir := KindDir(opts.OutputDir, kind)
		m, f, b := MEXPaths(kdir, true)
		expect.EQ(t, [3]string{readFile(t, m), readFile(t, f), readFile(t, b)}, first[i])
	}
	gene := readMEX(t, KindDir(opts.OutputDir, featuremap.Gene), true)
	expect.EQ(t, gene[1], "G1\tFoo\tgene\nG2\tBar\tgene\nG3\tBaz\tgene\n")
}

func TestRunFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	for _, test := range []struct {
		name   string
		modify func(*Opts)
		kind   errors.Kind
	}{
		{"missingGeneMap", func(o *Opts) { o.GeneMapPath += ".missing" }, errors.NotExist},
		{"missingSample", func(o *Opts) { o.Base += ".missing" }, errors.NotExist},
		{"badTranscriptMap", func(o *Opts) { o.TranscriptMapPath = o.GeneMapPath }, errors.Invalid},
		{"noBase", func(o *Opts) { o.Base = "" }, errors.Invalid},
		{"noCategoryColumn", func(o *Opts) {
			writeLines(t, isoform.AnnotatedPath(o.Base), "id\tgene\ttranscript", "m1\tFoo\tFoo-201")
			o.Categories = []string{isoform.Genic}
		}, errors.Invalid},
	} {
		t.Run(test.name, func(t *testing.T) {
			sub := filepath.Join(dir, test.name)
			assert.NoError(t, os.MkdirAll(sub, 0777))
			opts := setup(t, sub)
			test.modify(&opts)
			_, err := Run(ctx, opts)
			assert.True(t, errors.Is(test.kind, err), "got %v", err)
			_, err = os.Stat(opts.OutputDir)
			expect.True(t, os.IsNotExist(err), "output dir exists: %v", err)
			entries, err := os.ReadDir(sub)
			assert.NoError(t, err)
			for _, e := range entries {
				expect.False(t, strings.Contains(e.Name(), "staging"))
			}
		})
	}
}

func noStaging(t *testing.T, dir string) {
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	for _, e := range entries {
		expect.False(t, strings.Contains(e.Name(), ".staging-"), "staging dir %s left behind", e.Name())
	}
}

func TestRunWriteError(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	t.Run("parentIsFile", func(t *testing.T) {
		sub := filepath.Join(dir, "parent")
		assert.NoError(t, os.MkdirAll(sub, 0777))
		opts := setup(t, sub)
		blocker := filepath.Join(sub, "blocker")
		writeLines(t, blocker, "not a directory")
		opts.OutputDir = filepath.Join(blocker, "out")
		_, err := Run(ctx, opts)
		assert.NotNil(t, err)
		assert.HasSubstr(t, err.Error(), blocker)
		expect.EQ(t, readFile(t, blocker), "not a directory\n")
		noStaging(t, sub)
	})

	t.Run("outputIsFile", func(t *testing.T) {
		sub := filepath.Join(dir, "output")
		assert.NoError(t, os.MkdirAll(sub, 0777))
		opts := setup(t, sub)
		writeLines(t, opts.OutputDir, "not a directory")
		_, err := Run(ctx, opts)
		assert.NotNil(t, err)
		assert.HasSubstr(t, err.Error(), opts.OutputDir)
		expect.EQ(t, readFile(t, opts.OutputDir), "not a directory\n")
		noStaging(t, sub)
	})
}

func TestRunFailedPublishKeepsPreviousResults(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	opts := setup(t, dir)

	_, err := Run(ctx, opts)
	assert.NoError(t, err)
	var before [][3]string
	for _, kind := range featuremap.Kinds {
		before = append(before, readMEX(t, KindDir(opts.OutputDir, kind), false))
	}

	// Publishing the transcript matrix fails after the gene matrix is in.
	failAt := KindDir(opts.OutputDir, featuremap.Transcript)
	defer func() { rename = os.Rename }()
	rename = func(from, to string) error {
		if to == failAt && strings.Contains(from, ".staging-") && !strings.HasSuffix(from, ".old") {
			return errors.E("rename failed")
		}
		return os.Rename(from, to)
	}
	opts.BarcodeSuffix = "-2"
	_, err = Run(ctx, opts)
	assert.NotNil(t, err)
	for i, kind := range featuremap.Kinds {
		expect.EQ(t, readMEX(t, KindDir(opts.OutputDir, kind), false), before[i])
	}
	noStaging(t, dir)

	rename = os.Rename
	_, err = Run(ctx, opts)
	assert.NoError(t, err)
	for _, kind := range featuremap.Kinds {
		expect.EQ(t, readMEX(t, KindDir(opts.OutputDir, kind), false)[2], "AAA-2\nBBB-2\nCCC-2\n")
	}
	noStaging(t, dir)
}
