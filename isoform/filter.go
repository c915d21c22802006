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
package isoform

import "strings"

// Structural categories reported by SQANTI3. See
// https://isoseq.how/classification/categories.html.
const (
	FullSpliceMatch       = "full-splice_match"
	IncompleteSpliceMatch = "incomplete-splice_match"
	NovelInCatalog        = "novel_in_catalog"
	NovelNotInCatalog     = "novel_not_in_catalog"
	Genic                 = "genic"
	Fusion                = "fusion"
	Intergenic            = "intergenic"
	Antisense             = "antisense"
	MoreJunctions         = "moreJunctions"
)

// ParseCategories splits a comma-separated category list, trimming spaces and
// dropping empty labels. It returns nil for an empty list.
func ParseCategories(s string) []string {
	var cats []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	return cats
}

// Filter returns the records whose Category is one of categories, compared
// exactly. An empty categories list keeps every record. The result may be
// empty. records is not modified.
func Filter(records []Record, categories []string) []Record {
	if len(categories) == 0 {
		return records
	}
	keep := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		keep[c] = struct{}{}
	}
	var out []Record
	for _, r := range records {
		if _, ok := keep[r.Category]; ok {
			out = append(out, r)
		}
	}
	return out
}
