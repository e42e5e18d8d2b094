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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	sgbucket "github.com/couchbase/sg-bucket"
	"github.com/google/uuid"
)

// The persistent portion of a MemDatabase (the stuff that gets archived to
// disk).
type memData struct {
	LastSeq    uint64
	Docs       map[string]*memDoc
	DesignDocs map[string]*DesignDoc // Source form, keyed by full "_design/..." ID
}

// A document stored in a MemDatabase's Docs map.
type memDoc struct {
	Raw      []byte // Raw data content, or nil if deleted
	IsJSON   bool   // Is the data a JSON document?
	Sequence uint64 // Sequence number assigned by the last write
}

// Simple, inefficient in-memory implementation of Database, with a JavaScript
// view engine. Suitable for tests and as a reference for what the
// synchronizer expects of a real database client.
type MemDatabase struct {
	name  string
	path  string // Filesystem path, if it's persistent
	uuid  string
	lock  sync.RWMutex
	views map[string]memDesignDoc // Compiled view/filter data, keyed by design name
	memData
}

var _ Database = &MemDatabase{}

// Creates an empty in-memory database.
func NewMemDatabase(name string) *MemDatabase {
	logg("NewMemDatabase %s", name)
	return &MemDatabase{
		name: name,
		uuid: uuid.New().String(),
		memData: memData{
			Docs:       map[string]*memDoc{},
			DesignDocs: map[string]*DesignDoc{},
		},
		views: map[string]memDesignDoc{},
	}
}

func (db *MemDatabase) GetName() string {
	return db.name // name is immutable so this needs no lock
}

func (db *MemDatabase) GetUUID() string {
	return db.uuid
}

//////// DOCUMENTS:

func copySlice(slice []byte) []byte {
	if slice == nil {
		return nil
	}
	copied := make([]byte, len(slice))
	copy(copied, slice)
	return copied
}

// Set stores v as a JSON document.
func (db *MemDatabase) Set(k string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return db.write(k, raw, true)
}

// SetRaw stores raw bytes; raw documents are ignored by views.
func (db *MemDatabase) SetRaw(k string, v []byte) error {
	if v == nil {
		panic("nil value")
	}
	return db.write(k, v, false)
}

func (db *MemDatabase) Get(k string, rv interface{}) error {
	raw, err := db.GetRaw(k)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, rv)
}

func (db *MemDatabase) GetRaw(k string) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	doc := db.Docs[k]
	if doc == nil || doc.Raw == nil {
		return nil, sgbucket.MissingError{Key: k}
	}
	return copySlice(doc.Raw), nil // Copied so the caller can't alter the doc
}

// Delete leaves a tombstone so the deletion shows up in Changes.
func (db *MemDatabase) Delete(k string) error {
	return db.write(k, nil, false)
}

// Incr adjusts a counter document by amt, initializing it to def if absent.
func (db *MemDatabase) Incr(k string, amt, def uint64) (uint64, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	counter := def
	if doc := db.Docs[k]; doc != nil && doc.Raw != nil {
		var err error
		counter, err = strconv.ParseUint(string(doc.Raw), 10, 64)
		if err != nil {
			return 0, err
		}
		counter += amt
	}
	db.Docs[k] = &memDoc{
		Raw:      []byte(strconv.FormatUint(counter, 10)),
		IsJSON:   false,
		Sequence: db._nextSequence(),
	}
	return counter, db._save()
}

func (db *MemDatabase) write(k string, raw []byte, isJSON bool) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.Docs[k] = &memDoc{
		Raw:      raw,
		IsJSON:   isJSON,
		Sequence: db._nextSequence(),
	}
	return db._save()
}

// Generates the next sequence number to assign to a document update.
// (Use only while locked.)
func (db *MemDatabase) _nextSequence() uint64 {
	db.LastSeq++
	return db.LastSeq
}

//////// DESIGN DOCUMENTS:

func (db *MemDatabase) GetDesignDoc(id string) (*DesignDoc, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	ddoc := db.DesignDocs[id]
	if ddoc == nil {
		return nil, sgbucket.MissingError{Key: id}
	}
	return ddoc.Copy(), nil
}

// UpdateDesignDocs stores a batch of design documents. The batch is checked
// first (language, function compilation, revision match) and nothing is
// applied unless every document passes; failures come back as one aggregate
// error.
func (db *MemDatabase) UpdateDesignDocs(docs []*DesignDoc) ([]UpdateResult, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	compiled := make([]memDesignDoc, len(docs))
	var errs multiError
	batchIDs := make(map[string]bool, len(docs))
	for i, doc := range docs {
		if batchIDs[doc.ID] {
			errs = append(errs, fmt.Errorf("document %q update conflict: duplicated in batch", doc.ID))
			continue
		}
		batchIDs[doc.ID] = true
		if stored := db.DesignDocs[doc.ID]; stored != nil && stored.Rev != doc.Rev {
			errs = append(errs, fmt.Errorf("document %q update conflict: rev %q != %q",
				doc.ID, doc.Rev, stored.Rev))
			continue
		}
		ddoc, err := compileDesignDoc(doc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		compiled[i] = ddoc
	}
	if len(errs) > 0 {
		return nil, errs
	}

	results := make([]UpdateResult, len(docs))
	for i, doc := range docs {
		stored := doc.Copy()
		stored.Rev = nextRev(doc.Rev)
		db.DesignDocs[doc.ID] = stored
		db.views[stored.Name()] = compiled[i]
		results[i] = UpdateResult{ID: doc.ID, Rev: stored.Rev}
	}
	return results, db._save()
}

func (db *MemDatabase) DeleteDesignDoc(id string) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	ddoc := db.DesignDocs[id]
	if ddoc == nil {
		return sgbucket.MissingError{Key: id}
	}
	delete(db.DesignDocs, id)
	delete(db.views, ddoc.Name())
	return db._save()
}

// CheckDesignDoc verifies that a design document could be stored here: the
// language must be JavaScript and every map and filter function must compile.
func CheckDesignDoc(ddoc *DesignDoc) error {
	_, err := compileDesignDoc(ddoc)
	return err
}

func compileDesignDoc(ddoc *DesignDoc) (memDesignDoc, error) {
	if ddoc.Language != "" && ddoc.Language != "javascript" {
		return memDesignDoc{}, fmt.Errorf("MemDatabase design docs don't support language %q", ddoc.Language)
	}
	compiled := memDesignDoc{
		views:   make(map[string]*memView, len(ddoc.Views)),
		filters: make(map[string]*JSFilterFunction, len(ddoc.Filters)),
	}
	for name, fns := range ddoc.Views {
		mapper, err := NewJSMapFunction(fns.Map)
		if err != nil {
			return memDesignDoc{}, err
		}
		raw, _ := fns.Options["collation"].(string)
		compiled.views[name] = &memView{
			mapFunction:    mapper,
			reduceFunction: fns.Reduce,
			collator:       &JSONCollator{Raw: raw == "raw"},
		}
	}
	for name, source := range ddoc.Filters {
		filter, err := NewJSFilterFunction(source)
		if err != nil {
			return memDesignDoc{}, err
		}
		compiled.filters[name] = filter
	}
	return compiled, nil
}

// Revision strings count generations like CouchDB's "<n>-<suffix>".
func nextRev(rev string) string {
	generation := 0
	if i := strings.IndexByte(rev, '-'); i > 0 {
		generation, _ = strconv.Atoi(rev[:i])
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%d-%s", generation+1, suffix)
}

// Splits a "<design>/<name>" view or filter path.
func splitViewPath(path string) (design string, name string, err error) {
	parts := strings.Split(trimDesignPrefix(path), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid view path %q", path)
	}
	return parts[0], parts[1], nil
}
