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

// Package casetrace orchestrates a fleet of A2A document-analysis agents.
//
// casetrace answers a lawyer's question against a document collection by
// decomposing it into focused sub-queries, running them against a search
// agent, and iterating with an expert agent until the combined answer is
// judged complete or the round cap is reached.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/casetrace/casetrace/cmd/casetrace@latest
//
// Point it at your agent fleet and ask a question:
//
//	export EXPERT_AGENT_URL=localhost:8003
//	export SEARCH_AGENT_URL=localhost:8001
//	casetrace ask --collection 77ca74f6 "What are the termination terms?"
//
// Or expose the orchestrator itself as an A2A agent:
//
//	casetrace serve --port 8080
//
// # Using as a Go Library
//
// Import the packages you need:
//
//	import (
//	    "github.com/casetrace/casetrace/pkg/a2a"
//	    "github.com/casetrace/casetrace/pkg/orchestrator"
//	    "github.com/casetrace/casetrace/pkg/registry"
//	)
//
// # Architecture
//
// All agent communication uses the A2A protocol: JSON-RPC 2.0 over HTTP
// with message/send for single responses and message/stream (SSE) for
// chunked deltas. Agents are discovered via their card at
// /.well-known/agent.json and addressed by logical name through the
// registry. Every call is scoped to a document collection via the
// X-Context-Id header and paced by a shared rate limiter.
package casetrace
