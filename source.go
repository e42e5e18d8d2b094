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
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
)

// NormalizeSource cleans up function source for storage in a design document:
// leading decorator lines (lines starting with "@" before the first real
// line) are dropped, trailing whitespace and leading newlines are trimmed,
// and the common leading whitespace of all lines is removed, so code pasted
// from an indented context stores cleanly.
func NormalizeSource(source string) string {
	source = stripDecorators(strings.TrimRight(source, " \t\n"))
	return dedent(strings.TrimLeft(source, "\n"))
}

// LoadSourceFile reads function source from a file and normalizes it.
func LoadSourceFile(path string) (string, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading function source from %s", path)
	}
	return NormalizeSource(string(data)), nil
}

// Drops decorator lines preceding the first non-blank, non-decorator line.
func stripDecorators(source string) string {
	lines := strings.Split(source, "\n")
	kept := make([]string, 0, len(lines))
	beginning := true
	for _, line := range lines {
		if beginning && !isWhitespaceLine(line) {
			if strings.HasPrefix(strings.TrimLeft(line, " \t"), "@") {
				continue
			}
			beginning = false
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Removes the whitespace prefix common to all non-blank lines. Lines that
// consist solely of whitespace don't count toward the margin and come out
// empty.
func dedent(source string) string {
	lines := strings.Split(source, "\n")
	margin := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		switch {
		case first:
			margin = indent
			first = false
		case strings.HasPrefix(indent, margin):
			// margin still fits
		case strings.HasPrefix(margin, indent):
			margin = indent
		default:
			margin = commonPrefix(margin, indent)
		}
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
		} else {
			lines[i] = strings.TrimPrefix(line, margin)
		}
	}
	return strings.Join(lines, "\n")
}

func isWhitespaceLine(line string) bool {
	return len(line) > 0 && strings.TrimSpace(line) == ""
}

func commonPrefix(a, b string) string {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return a[:i]
}
