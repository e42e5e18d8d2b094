package seacow

import (
	"encoding/json"
	"fmt"
	"sort"

	sgbucket "github.com/couchbase/sg-bucket"
)

// A single view stored in a MemDatabase.
type memView struct {
	mapFunction         *JSMapFunction // The compiled map function
	reduceFunction      string         // The source of the reduce function (if any)
	collator            *JSONCollator  // Key ordering, per the view's collation option
	index               ViewResult     // The latest complete result
	lastIndexedSequence uint64         // LastSeq at the time the index was built
}

// Compiled runtime form of one design document.
type memDesignDoc struct {
	views   map[string]*memView
	filters map[string]*JSFilterFunction
}

type jsMapFunctionInput struct {
	docid string
	doc   string
}

func (db *MemDatabase) View(path string, opts *ViewOptions) (ViewResult, error) {
	design, viewName, err := splitViewPath(path)
	if err != nil {
		return ViewResult{}, err
	}
	if opts == nil {
		opts = &ViewOptions{}
	}

	view, result, err := db.freshView(design, viewName)
	if err != nil {
		return ViewResult{}, err
	}
	collator := view.collator

	// The index is shared; slice and reorder a copy.
	rows := make(ViewRows, len(result.Rows))
	copy(rows, result.Rows)

	if opts.Key != nil {
		filtered := make(ViewRows, 0, len(rows))
		for _, row := range rows {
			if collator.Collate(row.Key, opts.Key) == 0 {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	} else {
		if opts.StartKey != nil {
			i := sort.Search(len(rows), func(i int) bool {
				return collator.Collate(rows[i].Key, opts.StartKey) >= 0
			})
			rows = rows[i:]
		}
		if opts.EndKey != nil {
			limit := func(i int) bool {
				return collator.Collate(rows[i].Key, opts.EndKey) > 0
			}
			if !opts.inclusiveEnd() {
				limit = func(i int) bool {
					return collator.Collate(rows[i].Key, opts.EndKey) >= 0
				}
			}
			rows = rows[:sort.Search(len(rows), limit)]
		}
	}

	if opts.Descending {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	if opts.Skip > 0 {
		if opts.Skip >= len(rows) {
			rows = ViewRows{}
		} else {
			rows = rows[opts.Skip:]
		}
	}
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}

	if view.reduceFunction != "" && opts.reduceEnabled() {
		rows, err = reduceRows(view.reduceFunction, rows)
		if err != nil {
			return ViewResult{}, err
		}
	} else if opts.IncludeDocs {
		for i, row := range rows {
			raw, err := db.GetRaw(row.ID)
			if err != nil {
				continue
			}
			var parsedDoc interface{}
			json.Unmarshal(raw, &parsedDoc)
			rows[i].Doc = &parsedDoc
		}
	}

	if opts.Wrapper != nil {
		for i, row := range rows {
			rows[i] = opts.Wrapper(row)
		}
	}

	result.Rows = rows
	result.TotalRows = len(rows)
	return result, nil
}

// Looks up a view and returns it along with an up-to-date index.
func (db *MemDatabase) freshView(design, viewName string) (*memView, ViewResult, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	ddoc, exists := db.views[design]
	if !exists {
		return nil, ViewResult{}, sgbucket.MissingError{Key: DesignDocID(design)}
	}
	view := ddoc.views[viewName]
	if view == nil {
		return nil, ViewResult{}, sgbucket.MissingError{Key: design + "/" + viewName}
	}
	return view, db._updateView(view), nil
}

// Rebuilds the view index if the database changed since it was last built.
// (Use only while locked.)
func (db *MemDatabase) _updateView(view *memView) ViewResult {
	if view.lastIndexedSequence >= db.LastSeq {
		return view.index
	}

	//OPT: Should index incrementally by re-mapping only docs whose sequence
	// is newer than lastIndexedSequence
	var result ViewResult
	result.Rows = make(ViewRows, 0, len(db.Docs))
	input := make(chan jsMapFunctionInput, len(db.Docs))
	for docid, doc := range db.Docs {
		if doc.Raw == nil {
			continue
		}
		raw := doc.Raw
		if !doc.IsJSON {
			raw = []byte(`{}`) // Ignore contents of non-JSON (raw) docs
		}
		input <- jsMapFunctionInput{docid: docid, doc: string(raw)}
	}
	close(input)

	for item := range Parallelize(view.mapDocument, 0, input) {
		switch item := item.(type) {
		case []ViewRow:
			result.Rows = append(result.Rows, item...)
		case ViewError:
			result.Errors = append(result.Errors, item)
		}
	}
	sort.SliceStable(result.Rows, func(i, j int) bool {
		return view.collator.Collate(result.Rows[i].Key, result.Rows[j].Key) < 0
	})

	view.lastIndexedSequence = db.LastSeq
	view.index = result
	return result
}

// PipelineFunc that runs the map function on one document.
func (view *memView) mapDocument(input jsMapFunctionInput, output chan<- interface{}) {
	rows, err := view.mapFunction.CallFunction(input.doc, input.docid)
	if err != nil {
		output <- ViewError{From: input.docid, Reason: err.Error()}
	} else {
		output <- rows
	}
}

// Evaluates a builtin reduce function over the rows. JavaScript reduce
// functions are stored but not executed here.
func reduceRows(reduceFun string, rows ViewRows) (ViewRows, error) {
	switch reduceFun {
	case "_count":
		return ViewRows{ViewRow{Value: float64(len(rows))}}, nil
	case "_sum":
		total := float64(0)
		for _, row := range rows {
			switch value := row.Value.(type) {
			case float64:
				total += value
			case int64:
				total += float64(value)
			default:
				return nil, fmt.Errorf("_sum reduce over non-numeric value %#v", row.Value)
			}
		}
		return ViewRows{ViewRow{Value: total}}, nil
	}
	return nil, fmt.Errorf("Reduce function %q is not supported, sorry", reduceFun)
}
