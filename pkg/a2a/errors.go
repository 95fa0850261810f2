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

package a2a

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a failed agent call. Every transport failure maps to
// exactly one kind; callers branch on it instead of probing error text.
type ErrorKind string

const (
	// KindTimeout means a timeout phase budget was exceeded.
	KindTimeout ErrorKind = "timeout"

	// KindConnection means the transport could not be established
	// (connection refused, DNS failure, discovery failure).
	KindConnection ErrorKind = "connection"

	// KindRemote means the peer returned a well-formed error response.
	KindRemote ErrorKind = "remote"
)

// Phase names the timeout phase that elapsed, so the caller can advise which
// configuration knob to raise.
type Phase string

const (
	PhaseConnect Phase = "connect"
	PhaseWrite   Phase = "write"
	PhaseRead    Phase = "read"
	PhaseStream  Phase = "stream-idle"
)

// CallError is the single error type returned by failed A2A calls. A call
// returns either a result or a *CallError, never both.
type CallError struct {
	Kind   ErrorKind
	Phase  Phase  // set when Kind == KindTimeout
	Code   int    // set when Kind == KindRemote
	Agent  string // resolved address of the peer
	Detail string
	Err    error
}

func (e *CallError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("agent call timed out during %s phase (%s): %s", e.Phase, e.Agent, e.Detail)
	case KindRemote:
		return fmt.Sprintf("agent %s returned error %d: %s", e.Agent, e.Code, e.Detail)
	default:
		return fmt.Sprintf("could not connect to agent %s: %s", e.Agent, e.Detail)
	}
}

func (e *CallError) Unwrap() error { return e.Err }

// Timeout reports whether err is a timeout call failure, and if so during
// which phase.
func Timeout(err error) (Phase, bool) {
	var ce *CallError
	if errors.As(err, &ce) && ce.Kind == KindTimeout {
		return ce.Phase, true
	}
	return "", false
}

// classifyTransportError maps a raw HTTP transport error onto the taxonomy.
// Deadline errors become timeouts attributed to the given phase; everything
// else is a connection failure.
func classifyTransportError(err error, addr string, phase Phase) *CallError {
	detail := err.Error()

	if errors.Is(err, context.DeadlineExceeded) {
		return &CallError{Kind: KindTimeout, Phase: phase, Agent: addr, Detail: detail, Err: err}
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &CallError{Kind: KindTimeout, Phase: phase, Agent: addr, Detail: detail, Err: err}
	}
	return &CallError{Kind: KindConnection, Agent: addr, Detail: detail, Err: err}
}
