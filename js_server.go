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
	"sync"
)

// Number of idle interpreter tasks kept around for reuse.
const kMaxJSTasks = 4

// Abstract interface for a callable interpreted function. JSRunner implements
// this.
type JSServerTask interface {
	SetFunction(funcSource string) (bool, error)
	Call(inputs ...interface{}) (interface{}, error)
}

// Factory function that creates JSServerTasks.
type JSServerTaskFactory func(fnSource string) (JSServerTask, error)

// Thread-safe wrapper around a pool of JSRunners, all compiled from the same
// function source.
type JSServer struct {
	factory  JSServerTaskFactory
	tasks    chan JSServerTask
	fnSource string
	lock     sync.RWMutex // Protects access to .fnSource
}

// Creates a new JSServer that will run a JavaScript function.
// 'funcSource' should look like "function(x,y) { ... }". The source is
// compiled eagerly, so invalid code is reported here, not on first call.
func NewJSServer(funcSource string, factory JSServerTaskFactory) (*JSServer, error) {
	server := &JSServer{
		factory:  factory,
		fnSource: funcSource,
		tasks:    make(chan JSServerTask, kMaxJSTasks),
	}
	task, err := factory(funcSource)
	if err != nil {
		return nil, err
	}
	server.returnTask(task)
	return server, nil
}

func (server *JSServer) Function() string {
	server.lock.RLock()
	defer server.lock.RUnlock()
	return server.fnSource
}

// Public thread-safe entry point for changing the JS function.
func (server *JSServer) SetFunction(fnSource string) (bool, error) {
	server.lock.Lock()
	defer server.lock.Unlock()
	if fnSource == server.fnSource {
		return false, nil
	}
	server.fnSource = fnSource
	return true, nil
}

func (server *JSServer) getTask() (task JSServerTask, err error) {
	fnSource := server.Function()
	select {
	case task = <-server.tasks:
		_, err = task.SetFunction(fnSource)
	default:
		task, err = server.factory(fnSource)
	}
	return
}

func (server *JSServer) returnTask(task JSServerTask) {
	select {
	case server.tasks <- task:
	default:
		// Drop the task if the pool is full.
	}
}

// Invokes the function with the given inputs, each a JSON string to be parsed
// into an argument value. Thread-safe.
func (server *JSServer) CallWithJSON(jsonInputs ...string) (interface{}, error) {
	task, err := server.getTask()
	if err != nil {
		return nil, err
	}
	defer server.returnTask(task)

	inputs := make([]interface{}, len(jsonInputs))
	for i, input := range jsonInputs {
		inputs[i] = JSONString(input)
	}
	return task.Call(inputs...)
}
