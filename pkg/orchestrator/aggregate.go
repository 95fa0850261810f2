// Copyright 2026 The casetrace Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"fmt"
	"strings"
)

// Aggregate merges an ordered sequence of search results into one
// comprehensive text, preserving the sub-query <-> result association so
// downstream validation can reference which sub-query produced which fact.
// It is deterministic and order-preserving: no reordering by score or
// length. Empty and failed results are skipped, never fatal.
func Aggregate(results []SearchResult) string {
	sections := make([]string, 0, len(results))

	for i, r := range results {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("[%d] %s\n%s", i+1, r.Query.Text, text))
	}

	return strings.Join(sections, "\n\n")
}
