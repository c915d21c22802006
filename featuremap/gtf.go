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
package featuremap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/isomex/util"
)

// gtfRecord stores one line of a GTF file.
type gtfRecord struct {
	Chrom    string
	Source   string
	Molecule string
	Start    int
	Stop     int
	Score    string // unused floating point value, but may be "."
	Strand   string
	Frame    string
	Fields   string
}

// parseAttributes parses the attribute column of a GTF line, e.g.
//
//   gene_id "ENSG1.1"; gene_name "FOO";
//
// into parsed, which is cleared first.
func parseAttributes(parsed map[string]string, attrs string) error {
	for k := range parsed {
		delete(parsed, k)
	}
	for _, field := range strings.Split(strings.TrimSpace(attrs), ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		sp := strings.IndexAny(field, " \t")
		if sp < 0 {
			return fmt.Errorf("attribute %q has no value", field)
		}
		parsed[field[:sp]] = strings.Trim(strings.TrimSpace(field[sp+1:]), "\"")
	}
	return nil
}

// ReadGTF extracts the gene and transcript maps from a GTF annotation: the
// gene_id/gene_name attributes of "gene" lines and the
// transcript_id/transcript_name attributes of "transcript" lines. A feature
// without a name attribute is named by its id. If an id occurs more than once
// the first name wins. Gzipped input is accepted.
func ReadGTF(ctx context.Context, path string) (genes, transcripts *Map, err error) {
	in, err := util.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if cerr := in.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	genes, transcripts = New(Gene), New(Transcript)
	if err = parseGTF(bufio.NewReaderSize(in, 64<<10), path, genes, transcripts); err != nil {
		return nil, nil, err
	}
	log.Printf("GTF %s: %d genes, %d transcripts", path, genes.Len(), transcripts.Len())
	return genes, transcripts, nil
}

func parseGTF(in io.Reader, path string, genes, transcripts *Map) error {
	scanner := tsv.NewReader(in)
	scanner.Comment = '#'
	scanner.LazyQuotes = true
	var (
		line      gtfRecord
		attrs     = map[string]string{}
		nLine     int
		nConflict int
	)
	for {
		if err := scanner.Read(&line); err != nil {
			if err == io.EOF {
				break
			}
			return errors.E(errors.Invalid, path, err)
		}
		nLine++
		var m *Map
		switch line.Molecule {
		case "gene":
			m = genes
		case "transcript":
			m = transcripts
		default:
			continue
		}
		if err := parseAttributes(attrs, line.Fields); err != nil {
			return errors.E(errors.Invalid, fmt.Sprintf("%s: record %d", path, nLine), err)
		}
		kind := m.Kind()
		id := attrs[kind.IDColumn()]
		if id == "" {
			continue
		}
		name := attrs[kind.NameColumn()]
		if name == "" {
			name = id
		}
		if old, ok := m.Name(id); ok {
			if old != name {
				nConflict++
			}
			continue
		}
		if err := m.Add(id, name); err != nil {
			return err
		}
	}
	if nConflict > 0 {
		log.Printf("GTF %s: %d repeated ids carried a different name; kept the first", path, nConflict)
	}
	return nil
}
