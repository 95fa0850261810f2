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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVerdictStrictJSON(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantComplete  bool
		wantFollowups []string
		wantMissing   []string
	}{
		{
			name:         "complete",
			raw:          `{"answered_in_full": true, "missing_information": [], "additional_queries_needed": []}`,
			wantComplete: true,
		},
		{
			name:          "incomplete with followups",
			raw:           `{"answered_in_full": false, "missing_information": ["governing law"], "additional_queries_needed": ["governing law clause"]}`,
			wantFollowups: []string{"governing law clause"},
			wantMissing:   []string{"governing law"},
		},
		{
			name:         "fenced json",
			raw:          "```json\n{\"answered_in_full\": true}\n```",
			wantComplete: true,
		},
		{
			name:         "is_complete alias",
			raw:          `{"is_complete": true}`,
			wantComplete: true,
		},
		{
			name:        "missing_information as string",
			raw:         `{"answered_in_full": false, "missing_information": "governing law"}`,
			wantMissing: []string{"governing law"},
		},
		{
			name:          "additional_searches_needed alias",
			raw:           `{"answered_in_full": false, "additional_searches_needed": ["notice periods"]}`,
			wantFollowups: []string{"notice periods"},
		},
		{
			name:          "exact duplicate followups collapsed",
			raw:           `{"answered_in_full": false, "additional_queries_needed": ["q1", "q1", "Q1", "q2"]}`,
			wantFollowups: []string{"q1", "Q1", "q2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ParseVerdict(tt.raw)
			assert.Equal(t, tt.wantComplete, v.Complete)
			assert.Equal(t, tt.wantFollowups, v.FollowupQueries)
			assert.Equal(t, tt.wantMissing, v.Missing)
		})
	}
}

func TestParseVerdictHeuristicProse(t *testing.T) {
	raw := `The search results cover most of the question.

What specific information is missing:
1. The governing law of the agreement
2. Any assignment restrictions

What additional searches would help:
1. "governing law clause"
2. assignment and transfer restrictions`

	v := ParseVerdict(raw)
	assert.False(t, v.Complete)
	assert.Equal(t, []string{"The governing law of the agreement", "Any assignment restrictions"}, v.Missing)
	assert.Equal(t, []string{"governing law clause", "assignment and transfer restrictions"}, v.FollowupQueries)
}

func TestParseVerdictProseNeverClaimsComplete(t *testing.T) {
	// Unstructured prose is no proof of completeness, even when it
	// asserts it. The reply must carry parseable structure to count.
	for _, raw := range []string{
		"The question is answered in full by the search results.",
		"The search results fully answer the question. Nothing is missing and no additional searches are needed.",
	} {
		v := ParseVerdict(raw)
		assert.False(t, v.Complete, "raw: %q", raw)
		assert.Empty(t, v.FollowupQueries, "raw: %q", raw)
		assert.NotEmpty(t, v.Missing, "raw: %q", raw)
	}
}

func TestParseVerdictGarbageFailsClosed(t *testing.T) {
	for _, raw := range []string{"", "I cannot evaluate this.", `{"unrelated": 1}`, "```\nnot json\n```"} {
		v := ParseVerdict(raw)
		assert.False(t, v.Complete, "raw: %q", raw)
		assert.Empty(t, v.FollowupQueries, "raw: %q", raw)
		assert.NotEmpty(t, v.Missing, "raw: %q", raw)
	}
}

func TestCleanFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanFences(`{"a":1}`))
}
