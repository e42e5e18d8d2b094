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
	"fmt"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var unicodeCollator = collate.New(language.Und)

// Collates JSON values the way CouchDB orders view keys:
// null < false < true < numbers < strings < arrays < objects.
// See: http://wiki.apache.org/couchdb/View_collation#Collation_Specification
// Raw switches string comparison from Unicode collation to code-point order
// (the "collation": "raw" view option).
type JSONCollator struct {
	Raw bool
}

// CollateJSON compares two JSON values with the default Unicode collation.
func CollateJSON(key1, key2 interface{}) int {
	return defaultCollator.Collate(key1, key2)
}

var defaultCollator = &JSONCollator{}

func (c *JSONCollator) Collate(key1, key2 interface{}) int {
	type1 := collationType(key1)
	type2 := collationType(key2)
	if type1 != type2 {
		return type1 - type2
	}
	switch type1 {
	case 0, 1, 2:
		return 0
	case 3:
		n1 := collationToFloat64(key1)
		n2 := collationToFloat64(key2)
		if n1 < n2 {
			return -1
		} else if n1 > n2 {
			return 1
		}
		return 0
	case 4:
		return c.compareStrings(key1.(string), key2.(string))
	case 5:
		array1 := key1.([]interface{})
		array2 := key2.([]interface{})
		for i, item1 := range array1 {
			if i >= len(array2) {
				return 1
			}
			if cmp := c.Collate(item1, array2[i]); cmp != 0 {
				return cmp
			}
		}
		return len(array1) - len(array2)
	case 6:
		return 0 // ignore ordering for catch-all stuff
	}
	panic("bogus collationType")
}

func (c *JSONCollator) compareStrings(s1, s2 string) int {
	if c.Raw {
		return strings.Compare(s1, s2)
	}
	return unicodeCollator.CompareString(s1, s2)
}

func collationType(value interface{}) int {
	if value == nil {
		return 0
	}
	switch value := value.(type) {
	case bool:
		if !value {
			return 1
		}
		return 2
	case float64, int, int64, uint64:
		return 3
	case string:
		return 4
	case []interface{}:
		return 5
	case map[string]interface{}:
		return 6
	}
	panic(fmt.Sprintf("collationType doesn't understand %+v", value))
}

func collationToFloat64(value interface{}) float64 {
	switch value := value.(type) {
	case float64:
		return value
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case uint64:
		return float64(value)
	}
	panic(fmt.Sprintf("collationToFloat64 doesn't understand %+v", value))
}
