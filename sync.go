//  Copyright (c) 2014 the Seacow authors.
//  Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file
//  except in compliance with the License. You may obtain a copy of the License at
//    http://www.apache.org/licenses/LICENSE-2.0
//  Unless required by applicable law or agreed to in writing, software distributed under the
//  License is distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND,
//  either express or implied. See the License for the specific language governing permissions
//  and limitations under the License.

package seacow

import (
	"fmt"
	"sort"
)

// Options for SyncMany.
type SyncOptions struct {
	// RemoveMissing deletes views and filters that exist in a stored design
	// document but appear in none of the given definitions.
	RemoveMissing bool

	// Callback is invoked with each changed design document before the batch
	// is written back.
	Callback func(*DesignDoc)
}

// Returned when the definitions for one design document declare more than one
// language. A design document runs all of its functions on a single engine.
type LanguageConflictError struct {
	DesignName string
	Languages  []string
}

func (err *LanguageConflictError) Error() string {
	return fmt.Sprintf("found different language views in one design document %q: %v",
		err.DesignName, err.Languages)
}

// SyncMany ensures that the design documents referenced by the given
// definitions match them, updating more than one document if needed. Only
// documents that actually changed are written, in a single bulk call, so the
// whole update is as atomic as the database's bulk update makes it. Errors
// from the database propagate unmodified.
func SyncMany(db Database, defs []Definition, opts *SyncOptions) ([]UpdateResult, error) {
	if opts == nil {
		opts = &SyncOptions{}
	}

	// Group by design document, keeping the documents in first-seen order and
	// the definitions in input order.
	var order []string
	groups := map[string][]*DesignDefinition{}
	for _, def := range defs {
		base := def.base()
		if _, seen := groups[base.design]; !seen {
			order = append(order, base.design)
		}
		groups[base.design] = append(groups[base.design], base)
	}

	var docs []*DesignDoc
	for _, design := range order {
		doc, err := mergeDefinitions(db, design, groups[design], opts)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return db.UpdateDesignDocs(docs)
}

// Merges one design document's definitions into its stored state. Returns nil
// if the document came out unchanged.
func mergeDefinitions(db Database, design string, group []*DesignDefinition, opts *SyncOptions) (*DesignDoc, error) {
	docID := DesignDocID(design)
	doc, err := db.GetDesignDoc(docID)
	if err != nil {
		if !IsMissing(err) {
			return nil, err
		}
		doc = &DesignDoc{ID: docID}
	}
	orig := doc.Copy()

	// Entries present now but not re-defined in this pass are candidates for
	// removal.
	missingViews := make(map[string]bool, len(doc.Views))
	for name := range doc.Views {
		missingViews[name] = true
	}
	missingFilters := make(map[string]bool, len(doc.Filters))
	for name := range doc.Filters {
		missingFilters[name] = true
	}

	languages := map[string]bool{}
	for _, def := range group {
		if def.filterFun != "" {
			delete(missingFilters, def.name)
			if doc.Filters == nil {
				doc.Filters = FilterMap{}
			}
			doc.Filters[def.name] = def.filterFun
		} else {
			delete(missingViews, def.name)
			if doc.Views == nil {
				doc.Views = ViewMap{}
			}
			doc.Views[def.name] = ViewDef{
				Map:     def.mapFun,
				Reduce:  def.reduceFun,
				Options: copyOptionsMap(def.options),
			}
		}
		languages[def.language] = true
	}

	if opts.RemoveMissing {
		for name := range missingViews {
			delete(doc.Views, name)
		}
		for name := range missingFilters {
			delete(doc.Filters, name)
		}
	} else if (len(missingViews) > 0 || len(missingFilters) > 0) && doc.Language != "" {
		// Untouched entries keep running on the document's current engine, so
		// it has to agree with the definitions'.
		languages[doc.Language] = true
	}

	if len(languages) > 1 {
		names := make([]string, 0, len(languages))
		for language := range languages {
			names = append(names, language)
		}
		sort.Strings(names)
		return nil, &LanguageConflictError{DesignName: design, Languages: names}
	}
	for language := range languages {
		doc.Language = language
	}

	if doc.Equals(orig) {
		return nil, nil
	}
	if opts.Callback != nil {
		opts.Callback(doc)
	}
	return doc, nil
}
