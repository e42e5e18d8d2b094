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
	"reflect"
	"strings"
)

// Document-ID prefix that marks a design document.
const DesignDocPrefix = "_design/"

// A single view stored in a design document: a map function, an optional
// reduce function, and optional engine-specific options (e.g. collation mode).
type ViewDef struct {
	Map     string                 `json:"map"`
	Reduce  string                 `json:"reduce,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ViewMap map[string]ViewDef

// Filters map a filter name to its function source.
type FilterMap map[string]string

type DesignDocOptions struct {
	LocalSeq      bool `json:"local_seq,omitempty"`
	IncludeDesign bool `json:"include_design,omitempty"`
}

// A CouchDB-style design document, which stores view and filter function
// definitions. One design document declares exactly one language for all of
// its functions combined.
type DesignDoc struct {
	ID       string            `json:"_id,omitempty"`
	Rev      string            `json:"_rev,omitempty"`
	Language string            `json:"language,omitempty"`
	Views    ViewMap           `json:"views,omitempty"`
	Filters  FilterMap         `json:"filters,omitempty"`
	Options  *DesignDocOptions `json:"options,omitempty"`
}

// DesignDocID returns the full document ID for a design-document name,
// accepting either a bare name or an already-qualified ID.
func DesignDocID(name string) string {
	return DesignDocPrefix + trimDesignPrefix(name)
}

func trimDesignPrefix(name string) string {
	return strings.TrimPrefix(name, DesignDocPrefix)
}

// Name returns the design document's name without the "_design/" prefix.
func (ddoc *DesignDoc) Name() string {
	return trimDesignPrefix(ddoc.ID)
}

// Copy returns a deep copy, detached from the receiver's maps. The
// synchronizer keeps one to diff against after merging definitions.
func (ddoc *DesignDoc) Copy() *DesignDoc {
	dup := *ddoc
	if ddoc.Views != nil {
		dup.Views = make(ViewMap, len(ddoc.Views))
		for name, view := range ddoc.Views {
			view.Options = copyOptionsMap(view.Options)
			dup.Views[name] = view
		}
	}
	if ddoc.Filters != nil {
		dup.Filters = make(FilterMap, len(ddoc.Filters))
		for name, source := range ddoc.Filters {
			dup.Filters[name] = source
		}
	}
	if ddoc.Options != nil {
		options := *ddoc.Options
		dup.Options = &options
	}
	return &dup
}

// Equals reports structural equality. Design documents are plain trees of
// strings and maps, so value comparison is all the change detection needed.
func (ddoc *DesignDoc) Equals(other *DesignDoc) bool {
	return reflect.DeepEqual(ddoc, other)
}

func copyOptionsMap(options map[string]interface{}) map[string]interface{} {
	if options == nil {
		return nil
	}
	dup := make(map[string]interface{}, len(options))
	for key, value := range options {
		dup[key] = value
	}
	return dup
}
