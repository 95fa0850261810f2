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

// SubQueryOrigin records which step produced a sub-query.
type SubQueryOrigin string

const (
	// OriginDecomposition marks sub-queries produced by the initial
	// decomposition step.
	OriginDecomposition SubQueryOrigin = "decomposition"

	// OriginValidationFollowup marks sub-queries suggested by a validation
	// verdict.
	OriginValidationFollowup SubQueryOrigin = "validation-followup"
)

// SubQuery is one narrowly-scoped question derived from the user's original
// question. Never mutated after creation.
type SubQuery struct {
	Text   string
	Origin SubQueryOrigin
}

// SearchResult pairs an executed sub-query with the text it produced. A
// failed search carries an empty Text and a non-nil Err; it still occupies
// its slot so the result sequence stays in sub-query order.
type SearchResult struct {
	Query SubQuery
	Text  string
	Err   error
}

// Result is the terminal outcome of one top-level orchestration.
// Completeness is best-effort: FinalText is returned even when the round cap
// was reached with the answer still incomplete.
type Result struct {
	FinalText   string
	RoundsUsed  int
	WasComplete bool
}
