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

	sgbucket "github.com/couchbase/sg-bucket"
)

// A single entry in a changes query.
type ChangeEvent struct {
	Seq     uint64
	ID      string
	Deleted bool
	Doc     []byte // Raw JSON content, nil for deletions and raw documents
}

// Changes returns the documents modified after the given sequence, in
// sequence order. If filterPath names a stored filter ("<design>/<name>"),
// only documents the filter function accepts are included. This is a
// synchronous query; it does not follow future changes.
func (db *MemDatabase) Changes(since uint64, filterPath string) ([]ChangeEvent, error) {
	var filter *JSFilterFunction
	if filterPath != "" {
		design, name, err := splitViewPath(filterPath)
		if err != nil {
			return nil, err
		}
		db.lock.RLock()
		if ddoc, exists := db.views[design]; exists {
			filter = ddoc.filters[name]
		}
		db.lock.RUnlock()
		if filter == nil {
			return nil, sgbucket.MissingError{Key: filterPath}
		}
	}

	db.lock.RLock()
	events := make([]ChangeEvent, 0, len(db.Docs))
	for docid, doc := range db.Docs {
		if doc.Sequence <= since {
			continue
		}
		event := ChangeEvent{
			Seq:     doc.Sequence,
			ID:      docid,
			Deleted: doc.Raw == nil,
		}
		if doc.IsJSON {
			event.Doc = copySlice(doc.Raw)
		}
		events = append(events, event)
	}
	db.lock.RUnlock()

	sort.Slice(events, func(i, j int) bool { return events[i].Seq < events[j].Seq })

	if filter == nil {
		return events, nil
	}
	filtered := make([]ChangeEvent, 0, len(events))
	for _, event := range events {
		include, err := filter.CallFunction(changeEventJSON(event))
		if err != nil {
			return nil, err
		}
		if include {
			filtered = append(filtered, event)
		}
	}
	return filtered, nil
}

// The 'doc' argument the filter function sees for an event.
func changeEventJSON(event ChangeEvent) string {
	if event.Deleted {
		return fmt.Sprintf(`{"_id":%q,"_deleted":true}`, event.ID)
	}
	if event.Doc == nil {
		return `{}`
	}
	return string(event.Doc)
}
