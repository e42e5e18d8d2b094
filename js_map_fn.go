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

	"github.com/robertkrimen/otto"
)

// A compiled JavaScript 'map' function.
type JSMapFunction struct {
	js *JSServer
}

// One runtime executing the map function; collects the rows produced by the
// emit() calls of a single invocation.
type jsMapTask struct {
	*JSRunner
	output []ViewRow
}

func newJSMapTask(funcSource string) (JSServerTask, error) {
	runner, err := NewJSRunner(funcSource)
	if err != nil {
		return nil, err
	}
	task := &jsMapTask{JSRunner: runner}

	// Implementation of the 'emit()' callback:
	runner.DefineNativeFunction("emit", func(call otto.FunctionCall) otto.Value {
		// Argument() returns undefined for missing args; emit(key) is legal
		// and stores a null value.
		key, err1 := call.Argument(0).Export()
		value, err2 := call.Argument(1).Export()
		if err1 != nil || err2 != nil {
			panic(fmt.Sprintf("Unsupported key or value types: emit(%#v,%#v): %v %v", key, value, err1, err2))
		}
		task.output = append(task.output, ViewRow{Key: key, Value: value})
		return otto.UndefinedValue()
	})

	runner.Before = func() {
		task.output = []ViewRow{}
	}
	runner.After = func(result otto.Value, err error) (interface{}, error) {
		output := task.output
		task.output = nil
		return output, err
	}
	return task, nil
}

// Compiles a JavaScript map function to a JSMapFunction object.
func NewJSMapFunction(funcSource string) (*JSMapFunction, error) {
	js, err := NewJSServer(funcSource, newJSMapTask)
	if err != nil {
		return nil, err
	}
	return &JSMapFunction{js: js}, nil
}

// MakeMeta returns the JSON 'meta' argument map functions receive alongside
// the document.
func MakeMeta(docid string) string {
	meta := map[string]interface{}{"id": docid}
	rawMeta, _ := json.Marshal(meta)
	return string(rawMeta)
}

// Calls a JSMapFunction on one document. Thread-safe.
func (mapper *JSMapFunction) CallFunction(doc string, docid string) ([]ViewRow, error) {
	result, err := mapper.js.CallWithJSON(doc, MakeMeta(docid))
	if err != nil {
		return nil, err
	}
	rows := result.([]ViewRow)
	for i := range rows {
		rows[i].ID = docid
	}
	return rows, nil
}
