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
	"sort"

	"github.com/grailbio/isomex/featuremap"
)

// Count is the total count of one feature in one barcode.
type Count struct {
	FeatureID string
	Barcode   string
	Total     int64
}

type countKey struct {
	featureID, barcode string
}

// Aggregator sums counts per (feature, barcode). Its memory is proportional
// to the number of distinct pairs, not to the number of records added.
// Addition commutes, so the result does not depend on the order of Add calls.
type Aggregator struct {
	kind     featuremap.Kind
	features map[string]Feature
	sums     map[countKey]int64
}

// NewAggregator creates an empty aggregator for features of the given kind.
func NewAggregator(kind featuremap.Kind) *Aggregator {
	return &Aggregator{
		kind:     kind,
		features: map[string]Feature{},
		sums:     map[countKey]int64{},
	}
}

// Kind returns the feature kind the aggregator was created for.
func (a *Aggregator) Kind() featuremap.Kind { return a.kind }

// Add adds n observations of f in barcode. Features are keyed by ID; the
// Resolver guarantees that one ID always comes with the same Feature.
func (a *Aggregator) Add(f Feature, barcode string, n int64) {
	if f.Kind != a.kind {
		panic(f)
	}
	if _, ok := a.features[f.ID]; !ok {
		a.features[f.ID] = f
	}
	a.sums[countKey{f.ID, barcode}] += n
}

// Feature returns the feature registered under id.
func (a *Aggregator) Feature(id string) (Feature, bool) {
	f, ok := a.features[id]
	return f, ok
}

// Counts returns one Count per (feature, barcode) pair with a non-zero total,
// sorted by feature id and then barcode.
func (a *Aggregator) Counts() []Count {
	counts := make([]Count, 0, len(a.sums))
	for k, n := range a.sums {
		if n == 0 {
			continue
		}
		counts = append(counts, Count{FeatureID: k.featureID, Barcode: k.barcode, Total: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].FeatureID != counts[j].FeatureID {
			return counts[i].FeatureID < counts[j].FeatureID
		}
		return counts[i].Barcode < counts[j].Barcode
	})
	return counts
}
