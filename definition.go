//  Copyright (c) 2014 the Seacow authors.
//  Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file
//  except in compliance with the License. You may obtain a copy of the License at
//    http://www.apache.org/licenses/LICENSE-2.0
//  Unless required by applicable law or agreed to in writing, software distributed under the
//  License is distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND,
//  either express or implied. See the License for the specific language governing permissions
//  and limitations under the License.

// Package seacow manages CouchDB-style design documents: it packages view and
// filter function sources into design documents, diffs them against what a
// database currently stores, and writes back only the documents that changed.
package seacow

// Common state of a view or filter definition: an immutable value object
// describing one named entry of a design document.
type DesignDefinition struct {
	design    string
	name      string
	mapFun    string
	reduceFun string
	filterFun string
	language  string
	options   map[string]interface{}
	defaults  *ViewOptions
}

// Definition is implemented by *ViewDefinition and *FilterDefinition.
type Definition interface {
	DesignName() string
	Name() string
	base() *DesignDefinition
}

// Definition of a view stored in a specific design document. A ViewDefinition
// can be used to query the view's results as well as to keep the stored
// definition up to date with the one in application code.
type ViewDefinition struct {
	DesignDefinition
	wrapper ViewRowWrapper
}

// Definition of a change-feed filter stored in a specific design document.
type FilterDefinition struct {
	DesignDefinition
}

// Returned when a definition is constructed with neither a map function nor a
// filter function.
type ValidationError struct {
	Reason string
}

func (err *ValidationError) Error() string {
	return "invalid design definition: " + err.Reason
}

type definitionConfig struct {
	reduceFun string
	language  string
	options   map[string]interface{}
	defaults  *ViewOptions
	wrapper   ViewRowWrapper
}

type DefinitionOption func(*definitionConfig)

// WithReduce sets the view's reduce function source. Only meaningful alongside
// a map function.
func WithReduce(source string) DefinitionOption {
	return func(cfg *definitionConfig) { cfg.reduceFun = source }
}

// WithLanguage sets the language tag naming the execution engine that should
// run the definition's code. The default is "javascript".
func WithLanguage(language string) DefinitionOption {
	return func(cfg *definitionConfig) { cfg.language = language }
}

// WithOptions sets engine-specific view options (e.g. {"collation": "raw"}).
func WithOptions(options map[string]interface{}) DefinitionOption {
	return func(cfg *definitionConfig) { cfg.options = options }
}

// WithDefaults sets default query options applied whenever the definition is
// queried; call-time options override them key by key.
func WithDefaults(defaults *ViewOptions) DefinitionOption {
	return func(cfg *definitionConfig) { cfg.defaults = defaults }
}

// WithWrapper sets a wrapper applied to each result row when the view is
// queried, unless the caller supplies its own.
func WithWrapper(wrapper ViewRowWrapper) DefinitionOption {
	return func(cfg *definitionConfig) { cfg.wrapper = wrapper }
}

// NewViewDefinition defines the view <name> in the design document <design>.
// The design name may be given bare or as a full "_design/..." ID. The map
// source (and a reduce source, if any) is normalized with NormalizeSource.
func NewViewDefinition(design, name, mapFun string, opts ...DefinitionOption) (*ViewDefinition, error) {
	cfg := applyDefinitionOptions(opts)
	base, err := newDesignDefinition(design, name, mapFun, "", cfg)
	if err != nil {
		return nil, err
	}
	return &ViewDefinition{DesignDefinition: *base, wrapper: cfg.wrapper}, nil
}

// NewFilterDefinition defines the change-feed filter <name> in the design
// document <design>.
func NewFilterDefinition(design, name, filterFun string, opts ...DefinitionOption) (*FilterDefinition, error) {
	cfg := applyDefinitionOptions(opts)
	cfg.reduceFun = ""
	base, err := newDesignDefinition(design, name, "", filterFun, cfg)
	if err != nil {
		return nil, err
	}
	return &FilterDefinition{DesignDefinition: *base}, nil
}

func applyDefinitionOptions(opts []DefinitionOption) *definitionConfig {
	cfg := &definitionConfig{language: "javascript"}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.language == "" {
		cfg.language = "javascript"
	}
	return cfg
}

func newDesignDefinition(design, name, mapFun, filterFun string, cfg *definitionConfig) (*DesignDefinition, error) {
	mapFun = NormalizeSource(mapFun)
	filterFun = NormalizeSource(filterFun)
	if mapFun == "" && filterFun == "" {
		return nil, &ValidationError{Reason: "a map or a filter function is required"}
	}
	return &DesignDefinition{
		design:    trimDesignPrefix(design),
		name:      name,
		mapFun:    mapFun,
		reduceFun: NormalizeSource(cfg.reduceFun),
		filterFun: filterFun,
		language:  cfg.language,
		options:   cfg.options,
		defaults:  cfg.defaults,
	}, nil
}

func (def *DesignDefinition) base() *DesignDefinition { return def }

// DesignName returns the owning design document's name, without "_design/".
func (def *DesignDefinition) DesignName() string { return def.design }

// Name returns the view or filter name within the design document.
func (def *DesignDefinition) Name() string { return def.name }

func (def *DesignDefinition) MapFunction() string    { return def.mapFun }
func (def *DesignDefinition) ReduceFunction() string { return def.reduceFun }
func (def *DesignDefinition) FilterFunction() string { return def.filterFun }
func (def *DesignDefinition) Language() string       { return def.language }

func (def *DesignDefinition) String() string {
	return DesignDocPrefix + def.design + "/" + def.name
}

// GetDoc fetches the design document this definition belongs to, or nil if it
// does not exist yet.
func (def *DesignDefinition) GetDoc(db Database) (*DesignDoc, error) {
	doc, err := db.GetDesignDoc(DesignDocID(def.design))
	if err != nil {
		if IsMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

// Sync ensures the stored design document matches this single definition,
// leaving other entries of the document untouched.
func (def *DesignDefinition) Sync(db Database) ([]UpdateResult, error) {
	return SyncMany(db, []Definition{def}, nil)
}

// Query executes the view in the given database. The definition's default
// options are applied first, then overridden by the call-time options; the
// definition's row wrapper is used unless the caller supplied one.
func (view *ViewDefinition) Query(db Database, opts *ViewOptions) (ViewResult, error) {
	merged := mergeViewOptions(view.defaults, opts)
	if merged.Wrapper == nil {
		merged.Wrapper = view.wrapper
	}
	return db.View(view.design+"/"+view.name, merged)
}
