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
	"bufio"
	"context"
	"io"
	"path/filepath"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/isomex/featuremap"
	"github.com/grailbio/isomex/util"
)

// Names of the files in a MEX directory, before the optional ".gz".
const (
	MatrixFile   = "matrix.mtx"
	FeaturesFile = "features.tsv"
	BarcodesFile = "barcodes.tsv"
)

// MatrixHeader is the first line of matrix.mtx.
const MatrixHeader = "%%MatrixMarket matrix coordinate integer general"

// FeatureType returns the third features.tsv column for kind.
func FeatureType(kind featuremap.Kind, cellRanger bool) string {
	if !cellRanger {
		return kind.String()
	}
	switch kind {
	case featuremap.Gene:
		return "Gene Expression"
	case featuremap.Transcript:
		return "Transcript Expression"
	}
	return kind.String() + " Expression"
}

// MEXPaths returns the matrix, features and barcodes paths under dir.
func MEXPaths(dir string, compress bool) (matrix, features, barcodes string) {
	suffix := ""
	if compress {
		suffix = util.GzipSuffix
	}
	return filepath.Join(dir, MatrixFile+suffix),
		filepath.Join(dir, FeaturesFile+suffix),
		filepath.Join(dir, BarcodesFile+suffix)
}

// WriteMEX writes m to dir as matrix.mtx, features.tsv and barcodes.tsv. Only
// opts.Compress, opts.BarcodeSuffix and opts.CellRangerFeatureTypes are used.
// An empty matrix is written with a valid header. The output depends only on
// m and opts. On error the files in dir must not be trusted.
func WriteMEX(ctx context.Context, dir string, m *Matrix, opts Opts) error {
	matrixPath, featuresPath, barcodesPath := MEXPaths(dir, opts.Compress)
	if err := writeFile(ctx, matrixPath, opts.Compress, func(w io.Writer) error {
		return writeMatrix(w, m)
	}); err != nil {
		return err
	}
	if err := writeFile(ctx, featuresPath, opts.Compress, func(w io.Writer) error {
		return writeFeatures(w, m.Features, FeatureType(m.Kind, opts.CellRangerFeatureTypes))
	}); err != nil {
		return err
	}
	return writeFile(ctx, barcodesPath, opts.Compress, func(w io.Writer) error {
		return writeBarcodes(w, m.Barcodes, opts.BarcodeSuffix)
	})
}

func writeFile(ctx context.Context, path string, compress bool, fn func(io.Writer) error) (err error) {
	out, err := util.Create(ctx, path, compress)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err = fn(out); err != nil {
		return errors.E("write", path, err)
	}
	return nil
}

// writeMatrix writes the MatrixMarket coordinate body with 1-based indices.
func writeMatrix(out io.Writer, m *Matrix) error {
	w := bufio.NewWriter(out)
	var buf []byte
	buf = append(buf, MatrixHeader...)
	buf = append(buf, "\n%\n"...)
	buf = strconv.AppendInt(buf, int64(m.Rows()), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(m.Cols()), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(m.NonZero()), 10)
	buf = append(buf, '\n')
	if _, err := w.Write(buf); err != nil {
		return err
	}
	for _, e := range m.Entries {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, int64(e.Row+1), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(e.Col+1), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, e.Value, 10)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeFeatures(out io.Writer, features []Feature, featureType string) error {
	w := tsv.NewWriter(out)
	for _, f := range features {
		w.WriteString(f.ID)
		w.WriteString(f.Name)
		w.WriteString(featureType)
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeBarcodes(out io.Writer, barcodes []string, suffix string) error {
	w := tsv.NewWriter(out)
	for _, bc := range barcodes {
		w.WriteString(bc + suffix)
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}
