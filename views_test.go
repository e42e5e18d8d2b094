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
	"testing"

	"github.com/couchbaselabs/go.assert"
)

func setJSON(db *MemDatabase, docid string, jsonDoc string) error {
	var obj interface{}
	if err := json.Unmarshal([]byte(jsonDoc), &obj); err != nil {
		return err
	}
	return db.Set(docid, obj)
}

// Create a simple view and run it on some documents
func TestView(t *testing.T) {
	db := NewMemDatabase("viewdb")
	ddoc := &DesignDoc{ID: "_design/docname",
		Views: ViewMap{"view1": ViewDef{Map: byKeyMap}}}
	_, err := db.UpdateDesignDocs([]*DesignDoc{ddoc})
	assertNoError(t, err, "UpdateDesignDocs failed")

	setJSON(db, "doc1", `{"key": "k1", "value": "v1"}`)
	setJSON(db, "doc2", `{"key": "k2", "value": "v2"}`)
	setJSON(db, "doc3", `{"key": 17, "value": ["v3"]}`)
	setJSON(db, "doc4", `{"key": [17, false], "value": null}`)
	setJSON(db, "doc5", `{"key": [17, true], "value": null}`)

	// raw docs and counters should not be indexed by views
	db.SetRaw("rawdoc", []byte("this is raw data"))
	db.Incr("counter", 1, 0)

	result, err := db.View("docname/view1", nil)
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 5)
	assert.DeepEquals(t, result.Rows[0], ViewRow{ID: "doc3", Key: 17.0, Value: []interface{}{"v3"}})
	assert.DeepEquals(t, result.Rows[1], ViewRow{ID: "doc1", Key: "k1", Value: "v1"})
	assert.DeepEquals(t, result.Rows[2], ViewRow{ID: "doc2", Key: "k2", Value: "v2"})
	assert.DeepEquals(t, result.Rows[3], ViewRow{ID: "doc4", Key: []interface{}{17.0, false}})
	assert.DeepEquals(t, result.Rows[4], ViewRow{ID: "doc5", Key: []interface{}{17.0, true}})

	// Try a startkey:
	var expectedDoc interface{} = map[string]interface{}{"key": "k2", "value": "v2"}
	result, err = db.View("docname/view1", &ViewOptions{StartKey: "k2", IncludeDocs: true})
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 3)
	assert.DeepEquals(t, result.Rows[0], ViewRow{ID: "doc2", Key: "k2", Value: "v2",
		Doc: &expectedDoc})

	// Try an endkey:
	result, err = db.View("docname/view1", &ViewOptions{StartKey: "k2", EndKey: "k2"})
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 1)
	assert.DeepEquals(t, result.Rows[0], ViewRow{ID: "doc2", Key: "k2", Value: "v2"})

	// Try an endkey out of range:
	result, err = db.View("docname/view1", &ViewOptions{StartKey: "k2", EndKey: "k999"})
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 1)

	// Try without inclusive_end:
	exclusive := false
	result, err = db.View("docname/view1",
		&ViewOptions{StartKey: "k2", EndKey: "k2", InclusiveEnd: &exclusive})
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 0)

	// Try a single key:
	result, err = db.View("docname/view1", &ViewOptions{Key: "k2"})
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 1)
	assert.DeepEquals(t, result.Rows[0], ViewRow{ID: "doc2", Key: "k2", Value: "v2"})

	// Limit, skip and descending:
	result, err = db.View("docname/view1", &ViewOptions{Limit: 2})
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 2)
	assert.Equals(t, result.Rows[0].ID, "doc3")

	result, err = db.View("docname/view1", &ViewOptions{Skip: 4})
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 1)
	assert.Equals(t, result.Rows[0].ID, "doc5")

	result, err = db.View("docname/view1", &ViewOptions{Descending: true, Limit: 1})
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 1)
	assert.Equals(t, result.Rows[0].ID, "doc5")
}

func TestViewMissing(t *testing.T) {
	db := NewMemDatabase("viewdb")
	_, err := db.View("nodoc/view", nil)
	assertTrue(t, IsMissing(err), "expected missing error for unknown design doc")

	ddoc := &DesignDoc{ID: "_design/docname", Views: ViewMap{"view1": ViewDef{Map: byKeyMap}}}
	_, err = db.UpdateDesignDocs([]*DesignDoc{ddoc})
	assertNoError(t, err, "UpdateDesignDocs failed")
	_, err = db.View("docname/noview", nil)
	assertTrue(t, IsMissing(err), "expected missing error for unknown view")

	_, err = db.View("junk", nil)
	assertTrue(t, err != nil, "expected error for malformed path")
}

func TestViewIndexIsRefreshed(t *testing.T) {
	db := NewMemDatabase("viewdb")
	ddoc := &DesignDoc{ID: "_design/docname", Views: ViewMap{"view1": ViewDef{Map: byKeyMap}}}
	_, err := db.UpdateDesignDocs([]*DesignDoc{ddoc})
	assertNoError(t, err, "UpdateDesignDocs failed")

	setJSON(db, "doc1", `{"key": "k1", "value": "v1"}`)
	result, err := db.View("docname/view1", nil)
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 1)

	setJSON(db, "doc2", `{"key": "k2", "value": "v2"}`)
	result, err = db.View("docname/view1", nil)
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 2)

	assertNoError(t, db.Delete("doc1"), "Delete")
	result, err = db.View("docname/view1", nil)
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 1)
	assert.Equals(t, result.Rows[0].ID, "doc2")
}

func TestViewBuiltinReduce(t *testing.T) {
	db := NewMemDatabase("viewdb")
	ddoc := &DesignDoc{ID: "_design/docname", Views: ViewMap{
		"sum":   ViewDef{Map: `function(doc){if (doc.n) emit(doc._id, doc.n)}`, Reduce: "_sum"},
		"count": ViewDef{Map: `function(doc){if (doc.n) emit(doc._id, doc.n)}`, Reduce: "_count"},
		"js":    ViewDef{Map: byKeyMap, Reduce: `function(keys,values){return 0;}`},
	}}
	_, err := db.UpdateDesignDocs([]*DesignDoc{ddoc})
	assertNoError(t, err, "UpdateDesignDocs failed")

	setJSON(db, "doc1", `{"n": 1}`)
	setJSON(db, "doc2", `{"n": 2}`)
	setJSON(db, "doc3", `{"n": 3}`)

	result, err := db.View("docname/sum", nil)
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 1)
	assert.Equals(t, result.Rows[0].Value, float64(6))

	result, err = db.View("docname/count", nil)
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.Rows[0].Value, float64(3))

	// A JS reduce is stored but can't be run here:
	_, err = db.View("docname/js", nil)
	assertTrue(t, err != nil, "expected JS reduce to be unsupported")

	// Unless the caller turns reduce off:
	off := false
	result, err = db.View("docname/sum", &ViewOptions{Reduce: &off})
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.TotalRows, 3)
}

func TestViewRawCollation(t *testing.T) {
	db := NewMemDatabase("viewdb")
	ddoc := &DesignDoc{ID: "_design/docname", Views: ViewMap{
		"unicode": ViewDef{Map: byKeyMap},
		"raw": ViewDef{Map: byKeyMap,
			Options: map[string]interface{}{"collation": "raw"}},
	}}
	_, err := db.UpdateDesignDocs([]*DesignDoc{ddoc})
	assertNoError(t, err, "UpdateDesignDocs failed")

	setJSON(db, "doc1", `{"key": "a", "value": 1}`)
	setJSON(db, "doc2", `{"key": "A", "value": 2}`)

	result, err := db.View("docname/unicode", nil)
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.Rows[0].Key, "a")

	result, err = db.View("docname/raw", nil)
	assertNoError(t, err, "View call failed")
	assert.Equals(t, result.Rows[0].Key, "A")
}

func TestViewDefinitionQuery(t *testing.T) {
	db := NewMemDatabase("viewdb")
	view := mustViewDefinition(t, "docname", "view1", byKeyMap,
		WithDefaults(&ViewOptions{Limit: 10}))
	_, err := view.Sync(db)
	assertNoError(t, err, "Sync")

	for i := 0; i < 7; i++ {
		setJSON(db, string(rune('a'+i)), `{"key": "k", "value": "v"}`)
	}

	result, err := view.Query(db, nil)
	assertNoError(t, err, "Query")
	assert.Equals(t, result.TotalRows, 7)

	// Call-time options win over the stored defaults:
	result, err = view.Query(db, &ViewOptions{Limit: 5})
	assertNoError(t, err, "Query")
	assert.Equals(t, result.TotalRows, 5)
}

func TestViewDefinitionQueryWrapper(t *testing.T) {
	db := NewMemDatabase("viewdb")
	view := mustViewDefinition(t, "docname", "view1", byKeyMap,
		WithWrapper(func(row ViewRow) ViewRow {
			row.Value = "default-wrapped"
			return row
		}))
	_, err := view.Sync(db)
	assertNoError(t, err, "Sync")
	setJSON(db, "doc1", `{"key": "k1", "value": "v1"}`)

	result, err := view.Query(db, nil)
	assertNoError(t, err, "Query")
	assert.Equals(t, result.Rows[0].Value, "default-wrapped")

	// A caller-supplied wrapper replaces the definition's:
	result, err = view.Query(db, &ViewOptions{Wrapper: func(row ViewRow) ViewRow {
		row.Value = "mine"
		return row
	}})
	assertNoError(t, err, "Query")
	assert.Equals(t, result.Rows[0].Value, "mine")
}
