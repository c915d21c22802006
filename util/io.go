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

// Package util contains file and table helpers shared by the isomex
// packages.
package util

import (
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
)

// GzipSuffix is appended to the names of compressed output files.
const GzipSuffix = ".gz"

type reader struct {
	io.Reader
	ctx context.Context
	in  file.File
	gz  *gzip.Reader
}

func (r *reader) Close() error {
	e := errors.Once{}
	if r.gz != nil {
		e.Set(r.gz.Close())
	}
	e.Set(r.in.Close(r.ctx))
	return e.Err()
}

// Open opens path for reading. Gzipped files (by name) are decompressed on
// the fly. A file that cannot be opened yields an errors.NotExist error, since
// for our purposes an unreadable input is a missing one.
func Open(ctx context.Context, path string) (io.ReadCloser, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.NotExist, "open", path, err)
	}
	r := &reader{Reader: in.Reader(ctx), ctx: ctx, in: in}
	if IsGzip(path) {
		if r.gz, err = gzip.NewReader(r.Reader); err != nil {
			_ = in.Close(ctx)
			return nil, errors.E(errors.Invalid, "gunzip", path, err)
		}
		r.Reader = r.gz
	}
	return r, nil
}

type writer struct {
	io.Writer
	ctx  context.Context
	path string
	out  file.File
	gz   *gzip.Writer
}

func (w *writer) Close() error {
	e := errors.Once{}
	if w.gz != nil {
		e.Set(w.gz.Close())
	}
	e.Set(w.out.Close(w.ctx))
	if err := e.Err(); err != nil {
		return errors.E("close", w.path, err)
	}
	return nil
}

// Create creates path for writing. If compress is set, the content is
// gzipped. The gzip header carries no name and no modification time, so
// equal content always produces equal bytes.
func Create(ctx context.Context, path string, compress bool) (io.WriteCloser, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E("create", path, err)
	}
	w := &writer{Writer: out.Writer(ctx), ctx: ctx, path: path, out: out}
	if compress {
		if w.gz, err = gzip.NewWriterLevel(w.Writer, gzip.DefaultCompression); err != nil {
			_ = out.Close(ctx)
			return nil, errors.E("gzip", path, err)
		}
		w.Writer = w.gz
	}
	return w, nil
}

// IsGzip reports whether path names a gzipped file.
func IsGzip(path string) bool {
	return fileio.DetermineType(path) == fileio.Gzip
}
