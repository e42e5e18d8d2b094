//  Copyright (c) 2014 the Seacow authors.
//  Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file
//  except in compliance with the License. You may obtain a copy of the License at
//    http://www.apache.org/licenses/LICENSE-2.0
//  Unless required by applicable law or agreed to in writing, software distributed under the
//  License is distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND,
//  either express or implied. See the License for the specific language governing permissions
//  and limitations under the License.

package seacow

// Wraps a result row before it is returned to the caller.
type ViewRowWrapper func(ViewRow) ViewRow

// Query options for a view. Zero values mean "not set"; engine-specific
// settings without a field of their own go in Extra.
type ViewOptions struct {
	Key          interface{}
	StartKey     interface{}
	EndKey       interface{}
	InclusiveEnd *bool // nil means true, as in CouchDB
	Limit        int
	Skip         int
	Descending   bool
	IncludeDocs  bool
	Reduce       *bool // nil means true when the view has a reduce function
	Wrapper      ViewRowWrapper
	Extra        map[string]interface{}
}

// Layers call-time options over defaults; a call-time field wins whenever it
// is set. Neither input is modified.
func mergeViewOptions(defaults, opts *ViewOptions) *ViewOptions {
	var merged ViewOptions
	if defaults != nil {
		merged = *defaults
		merged.Extra = copyOptionsMap(defaults.Extra)
	}
	if opts == nil {
		return &merged
	}
	if opts.Key != nil {
		merged.Key = opts.Key
	}
	if opts.StartKey != nil {
		merged.StartKey = opts.StartKey
	}
	if opts.EndKey != nil {
		merged.EndKey = opts.EndKey
	}
	if opts.InclusiveEnd != nil {
		merged.InclusiveEnd = opts.InclusiveEnd
	}
	if opts.Limit != 0 {
		merged.Limit = opts.Limit
	}
	if opts.Skip != 0 {
		merged.Skip = opts.Skip
	}
	if opts.Descending {
		merged.Descending = true
	}
	if opts.IncludeDocs {
		merged.IncludeDocs = true
	}
	if opts.Reduce != nil {
		merged.Reduce = opts.Reduce
	}
	if opts.Wrapper != nil {
		merged.Wrapper = opts.Wrapper
	}
	if len(opts.Extra) > 0 && merged.Extra == nil {
		merged.Extra = make(map[string]interface{}, len(opts.Extra))
	}
	for key, value := range opts.Extra {
		merged.Extra[key] = value
	}
	return &merged
}

func (opts *ViewOptions) inclusiveEnd() bool {
	return opts.InclusiveEnd == nil || *opts.InclusiveEnd
}

func (opts *ViewOptions) reduceEnabled() bool {
	return opts.Reduce == nil || *opts.Reduce
}
