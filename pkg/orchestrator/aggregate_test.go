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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregatePreservesOrderAndProvenance(t *testing.T) {
	results := []SearchResult{
		{Query: SubQuery{Text: "q1"}, Text: "first answer"},
		{Query: SubQuery{Text: "q2"}, Text: "second answer"},
	}

	out := Aggregate(results)
	assert.Contains(t, out, "[1] q1\nfirst answer")
	assert.Contains(t, out, "[2] q2\nsecond answer")
	assert.Less(t, strings.Index(out, "q1"), strings.Index(out, "q2"))
}

func TestAggregateSkipsEmptyAndFailed(t *testing.T) {
	results := []SearchResult{
		{Query: SubQuery{Text: "q1"}, Text: "answer"},
		{Query: SubQuery{Text: "q2"}, Err: errors.New("timed out")},
		{Query: SubQuery{Text: "q3"}, Text: "   "},
	}

	out := Aggregate(results)
	assert.Contains(t, out, "answer")
	assert.NotContains(t, out, "q2")
	assert.NotContains(t, out, "q3")
}

func TestAggregateEmpty(t *testing.T) {
	assert.Equal(t, "", Aggregate(nil))
}
