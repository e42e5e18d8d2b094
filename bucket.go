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
	"errors"
	"fmt"

	sgbucket "github.com/couchbase/sg-bucket"
)

// Abstract interface to the slice of a document database that design-document
// management needs: fetch a design document, write a batch of them back, and
// query a view. MemDatabase implements it; so can any client wrapping a real
// server.
type Database interface {
	// GetDesignDoc fetches the design document with the given full ID
	// ("_design/<name>"). A missing document is reported with an error for
	// which IsMissing returns true.
	GetDesignDoc(id string) (*DesignDoc, error)

	// UpdateDesignDocs writes all the given documents in one bulk call,
	// returning one result per submitted document.
	UpdateDesignDocs(docs []*DesignDoc) ([]UpdateResult, error)

	// View queries the view at "<design>/<name>".
	View(path string, opts *ViewOptions) (ViewResult, error)
}

// Per-document outcome of a bulk update.
type UpdateResult struct {
	ID  string
	Rev string
	Err error
}

// Result of a view query.
type ViewResult struct {
	TotalRows int `json:"total_rows"`
	Rows      ViewRows
	Errors    []ViewError
}

type ViewRows []ViewRow

// A single result row from a view query.
type ViewRow struct {
	ID    string
	Key   interface{}
	Value interface{}
	Doc   *interface{}
}

type ViewError struct {
	From   string
	Reason string
}

func (ve ViewError) Error() string {
	return fmt.Sprintf("Node: %v, reason: %v", ve.From, ve.Reason)
}

// IsMissing reports whether an error from a Database means the requested
// document does not exist.
func IsMissing(err error) bool {
	var missing sgbucket.MissingError
	return errors.As(err, &missing)
}

//////// VIEW ROWS: (implementation of sort.Interface)

func (rows ViewRows) Len() int {
	return len(rows)
}

func (rows ViewRows) Swap(i, j int) {
	rows[i], rows[j] = rows[j], rows[i]
}

func (rows ViewRows) Less(i, j int) bool {
	return CollateJSON(rows[i].Key, rows[j].Key) < 0
}
