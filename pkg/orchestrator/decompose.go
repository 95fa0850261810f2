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
	"encoding/json"
	"strings"
)

// decompositionPayload is the expert agent's reply to a decomposition
// request: whether the question is already specific enough to search
// verbatim, and if not, the searchable alternatives to run instead.
type decompositionPayload struct {
	IsQueryValid     *bool    `json:"is_query_valid"`
	SuggestedQueries []string `json:"suggested_queries"`
}

// ParseDecomposition interprets the expert agent's decomposition reply.
// A query judged valid is searched verbatim; an invalid (vague) query
// is replaced by the agent's suggested alternatives. On any parse
// failure, or when the agent suggests nothing usable, the original
// query is returned as the sole sub-query so the pipeline degrades to
// a single direct search.
func ParseDecomposition(raw, originalQuery string) []SubQuery {
	fallback := []SubQuery{{Text: originalQuery, Origin: OriginDecomposition}}

	var payload decompositionPayload
	if err := json.Unmarshal([]byte(cleanFences(raw)), &payload); err != nil {
		return fallback
	}
	if payload.IsQueryValid == nil || *payload.IsQueryValid {
		return fallback
	}

	queries := dedupeQueries(payload.SuggestedQueries)
	if len(queries) == 0 {
		return fallback
	}

	subs := make([]SubQuery, 0, len(queries))
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		subs = append(subs, SubQuery{Text: q, Origin: OriginDecomposition})
	}
	if len(subs) == 0 {
		return fallback
	}
	return subs
}
