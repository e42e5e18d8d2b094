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
	"github.com/robertkrimen/otto"
)

// A compiled JavaScript changes-feed 'filter' function. The function receives
// (doc, req) and its return value decides whether the document is included.
type JSFilterFunction struct {
	js *JSServer
}

type jsFilterTask struct {
	*JSRunner
}

func newJSFilterTask(funcSource string) (JSServerTask, error) {
	runner, err := NewJSRunner(funcSource)
	if err != nil {
		return nil, err
	}
	runner.After = func(result otto.Value, err error) (interface{}, error) {
		if err != nil {
			return false, err
		}
		include, err := result.ToBoolean()
		return include, err
	}
	return &jsFilterTask{JSRunner: runner}, nil
}

// Compiles a JavaScript filter function to a JSFilterFunction object.
func NewJSFilterFunction(funcSource string) (*JSFilterFunction, error) {
	js, err := NewJSServer(funcSource, newJSFilterTask)
	if err != nil {
		return nil, err
	}
	return &JSFilterFunction{js: js}, nil
}

// Calls a JSFilterFunction on one document. Thread-safe.
func (filter *JSFilterFunction) CallFunction(doc string) (bool, error) {
	result, err := filter.js.CallWithJSON(doc, `{}`)
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}
