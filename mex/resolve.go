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
	"strconv"

	"github.com/grailbio/isomex/featuremap"
	"github.com/grailbio/isomex/isoform"
)

// Unassigned is the id and name of the feature that records with a blank
// feature id are counted under. If the map or the records already use it as
// an id, the first free "unassigned.<n>" (n = 1, 2, ...) is used instead.
const Unassigned = "unassigned"

// Feature is the canonical identity of a gene or transcript.
type Feature struct {
	ID   string
	Name string
	Kind featuremap.Kind
	// Novel is true iff ID is not in the annotation map.
	Novel bool
}

// Resolver maps records to canonical Features of one kind. For a fixed set
// of records, records with the same raw id always resolve to the same
// Feature, whatever names they report.
type Resolver struct {
	fmap       *featuremap.Map
	matchNames bool
	// blankID is the id blank raw ids resolve to.
	blankID string
	// novel maps each novel id in the records to its display name.
	novel map[string]string
}

// NewResolver creates a resolver for fmap.Kind(). records must contain every
// record that will be passed to Resolve: novel names are chosen up front so
// that the choice does not depend on record order. A novel id reported under
// several names is given the smallest of them (in byte order), ignoring blank
// names; an id reported only with blank names is named by itself.
func NewResolver(fmap *featuremap.Map, records []isoform.Record, matchNames bool) *Resolver {
	r := &Resolver{fmap: fmap, matchNames: matchNames, novel: map[string]string{}}
	r.blankID = blankID(fmap, records)
	for i := range records {
		rawID, rawName := records[i].Feature(fmap.Kind())
		id, novel := r.lookup(rawID)
		if !novel {
			continue
		}
		if rawID == "" { // Blank ids contribute no name.
			rawName = ""
		}
		name, seen := r.novel[id]
		switch {
		case !seen:
			r.novel[id] = rawName
		case rawName == "":
		case name == "" || rawName < name:
			r.novel[id] = rawName
		}
	}
	for id, name := range r.novel {
		if name == "" {
			r.novel[id] = id
		}
	}
	return r
}

// blankID returns Unassigned, or the first "Unassigned.<n>" that is neither
// a map id nor a raw id of records. The choice depends only on the sets of
// ids, not on their order.
func blankID(fmap *featuremap.Map, records []isoform.Record) string {
	used := map[string]bool{}
	for i := range records {
		if rawID, _ := records[i].Feature(fmap.Kind()); rawID != "" {
			used[rawID] = true
		}
	}
	id := Unassigned
	for n := 1; ; n++ {
		if _, ok := fmap.Name(id); !ok && !used[id] {
			return id
		}
		id = Unassigned + "." + strconv.Itoa(n)
	}
}

// lookup returns the canonical id for rawID and whether it is novel.
func (r *Resolver) lookup(rawID string) (id string, novel bool) {
	if rawID == "" {
		return r.blankID, true
	}
	if _, ok := r.fmap.Name(rawID); ok {
		return rawID, false
	}
	if r.matchNames {
		if id, ok := r.fmap.IDForName(rawID); ok {
			return id, false
		}
	}
	return rawID, true
}

// Resolve returns the canonical feature of rec. A novel id that NewResolver
// did not see is named by itself.
func (r *Resolver) Resolve(rec *isoform.Record) Feature {
	rawID, _ := rec.Feature(r.fmap.Kind())
	id, novel := r.lookup(rawID)
	f := Feature{ID: id, Kind: r.fmap.Kind(), Novel: novel}
	if novel {
		var ok bool
		if f.Name, ok = r.novel[id]; !ok {
			f.Name = id
		}
	} else {
		f.Name, _ = r.fmap.Name(id)
	}
	return f
}

// NumNovel returns the number of distinct novel ids seen by NewResolver.
func (r *Resolver) NumNovel() int { return len(r.novel) }
