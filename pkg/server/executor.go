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

// Package server exposes an Executor as an A2A agent over HTTP: agent-card
// discovery, JSON-RPC message/send, and SSE message/stream.
package server

import (
	"context"

	"github.com/casetrace/casetrace/pkg/orchestrator"
)

// Executor produces the reply to one incoming message. contextID is the
// caller-supplied X-Context-Id (the document collection for this fleet).
type Executor interface {
	Execute(ctx context.Context, text, contextID string) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, text, contextID string) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, text, contextID string) (string, error) {
	return f(ctx, text, contextID)
}

// OrchestratorExecutor serves the orchestrator itself as an agent: each
// incoming message is treated as a lawyer question against the collection
// named by the context id.
func OrchestratorExecutor(o *orchestrator.Orchestrator) Executor {
	return ExecutorFunc(func(ctx context.Context, text, contextID string) (string, error) {
		res, err := o.Answer(ctx, text, contextID)
		if err != nil {
			return "", err
		}
		return res.FinalText, nil
	})
}
