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
	"testing"
)

func TestCollateJSON(t *testing.T) {

	tests := []struct {
		left   interface{}
		right  interface{}
		result int
	}{

		// scalars
		{true, false, 1},
		{false, true, -1},
		{nil, float64(17), -3},
		{float64(1), float64(1), 0},
		{float64(123), float64(1), 1},
		{float64(123), 0123.0, 0},
		{float64(123), "123", -1},
		{"1234", "123", 1},
		{"1234", "1235", -1},
		{"1234", "1234", 0},

		// verify unicode collation
		{"a", "A", -1},
		{"A", "aa", -1},
		{"B", "aa", 1},

		// arrays
		{[]interface{}{}, "foo", 1},
		{[]interface{}{}, []interface{}{}, 0},
		{[]interface{}{true}, []interface{}{true}, 0},
		{[]interface{}{false}, []interface{}{nil}, 1},
		{[]interface{}{}, []interface{}{nil}, -1},
		{[]interface{}{float64(123)}, []interface{}{float64(45)}, 1},
		{[]interface{}{float64(123)}, []interface{}{float64(45), float64(67)}, 1},
		{[]interface{}{123.4, "wow"}, []interface{}{123.40, float64(789)}, 1},
		{[]interface{}{float64(5), "wow"}, []interface{}{float64(5), "wow"}, 0},
		{[]interface{}{float64(5), "wow"}, float64(1), 2},
		{[]interface{}{float64(1)}, []interface{}{float64(5), "wow"}, -1},

		// nested arrays
		{[]interface{}{[]interface{}{}}, []interface{}{}, 1},
		{[]interface{}{float64(1), []interface{}{float64(2)}},
			[]interface{}{float64(1), []interface{}{float64(2), float64(3)}}, -1},
	}

	for _, test := range tests {
		result := CollateJSON(test.left, test.right)
		if result != test.result {
			t.Errorf("CollateJSON(%v, %v) = %d, expected %d",
				test.left, test.right, result, test.result)
		}
	}
}

// Raw collation orders strings by code point instead of Unicode rules.
func TestCollateRawStrings(t *testing.T) {
	raw := &JSONCollator{Raw: true}

	if result := raw.Collate("A", "a"); result >= 0 {
		t.Errorf("raw Collate(A, a) = %d, expected < 0", result)
	}
	if result := CollateJSON("A", "a"); result <= 0 {
		t.Errorf("unicode Collate(A, a) = %d, expected > 0", result)
	}
	if result := raw.Collate([]interface{}{"B"}, []interface{}{"a"}); result >= 0 {
		t.Errorf("raw Collate([B], [a]) = %d, expected < 0", result)
	}
}
