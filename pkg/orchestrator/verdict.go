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
	"regexp"
	"strings"
)

// ValidationVerdict is the expert agent's judgement on whether the
// aggregated search output fully answers the lawyer's question.
type ValidationVerdict struct {
	Complete        bool
	Missing         []string
	FollowupQueries []string
}

// cleanFences strips a markdown code fence wrapper (``` or ```json)
// from agent output. Agents frequently wrap JSON replies that way.
func cleanFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag on the fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "" || first == "json" || first == "JSON" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// verdictPayload accepts the key aliases observed in practice. Models
// sometimes answer with is_complete instead of answered_in_full, and
// missing_information may be a string or a list.
type verdictPayload struct {
	AnsweredInFull *bool        `json:"answered_in_full"`
	IsComplete     *bool        `json:"is_complete"`
	Missing        stringOrList `json:"missing_information"`
	Additional     []string     `json:"additional_queries_needed"`
	AdditionalAlt  []string     `json:"additional_searches_needed"`
}

type stringOrList []string

func (s *stringOrList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if strings.TrimSpace(one) != "" {
		*s = []string{one}
	}
	return nil
}

// ParseVerdict interprets the expert agent's validation reply. It tries
// strict JSON first (after fence cleaning), then falls back to a
// heuristic scan of the prose. When neither yields a usable verdict the
// result is fail-closed: incomplete with no follow-up queries, so the
// loop terminates rather than searching on garbage.
func ParseVerdict(raw string) ValidationVerdict {
	cleaned := cleanFences(raw)

	var payload verdictPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil {
		if payload.AnsweredInFull != nil || payload.IsComplete != nil {
			v := ValidationVerdict{Missing: payload.Missing}
			if payload.AnsweredInFull != nil {
				v.Complete = *payload.AnsweredInFull
			} else {
				v.Complete = *payload.IsComplete
			}
			v.FollowupQueries = payload.Additional
			if len(v.FollowupQueries) == 0 {
				v.FollowupQueries = payload.AdditionalAlt
			}
			v.FollowupQueries = dedupeQueries(v.FollowupQueries)
			if len(v.FollowupQueries) == 0 {
				v.FollowupQueries = nil
			}
			if len(v.Missing) == 0 {
				v.Missing = nil
			}
			return v
		}
	}

	return parseVerdictHeuristic(raw)
}

var (
	missingHeaderRe  = regexp.MustCompile(`(?i)what specific information is missing`)
	searchesHeaderRe = regexp.MustCompile(`(?i)what additional searches`)
	numberedItemRe   = regexp.MustCompile(`^\s*\d+[\.\)]\s*(.+?)\s*$`)
	quotedItemRe     = regexp.MustCompile(`^\s*\d+[\.\)]\s*"(.+)"\s*$`)
)

// parseVerdictHeuristic scans free-form prose for the section headers
// the expert agent uses when it ignores the JSON instruction. Numbered
// items under "what additional searches" become follow-up queries;
// quoted items have the quotes stripped.
func parseVerdictHeuristic(raw string) ValidationVerdict {
	lines := strings.Split(raw, "\n")

	var v ValidationVerdict
	section := ""
	for _, line := range lines {
		switch {
		case missingHeaderRe.MatchString(line):
			section = "missing"
			continue
		case searchesHeaderRe.MatchString(line):
			section = "searches"
			continue
		}
		if section == "" {
			continue
		}
		item := ""
		if m := quotedItemRe.FindStringSubmatch(line); m != nil {
			item = m[1]
		} else if m := numberedItemRe.FindStringSubmatch(line); m != nil {
			item = strings.Trim(m[1], `"`)
		}
		if item == "" {
			continue
		}
		switch section {
		case "missing":
			v.Missing = append(v.Missing, item)
		case "searches":
			v.FollowupQueries = append(v.FollowupQueries, item)
		}
	}

	// Fail closed: prose with no recognizable sections is never treated
	// as a completeness claim, no matter what it says.
	if len(v.FollowupQueries) == 0 && len(v.Missing) == 0 {
		v.Missing = []string{"validation reply could not be interpreted"}
		return v
	}

	v.FollowupQueries = dedupeQueries(v.FollowupQueries)
	return v
}

// dedupeQueries drops blank entries and exact repeats. Queries are
// otherwise kept verbatim: no case folding or rewriting, so the agent's
// wording reaches the search agent untouched.
func dedupeQueries(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	out := queries[:0]
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}
