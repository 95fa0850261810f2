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

// Package a2a implements the agent-to-agent wire protocol used by the
// casetrace fleet: a JSON-RPC 2.0 envelope over HTTP with two methods,
// message/send (single response) and message/stream (SSE chunked deltas),
// plus agent-card discovery at /.well-known/agent.json.
package a2a

import (
	"encoding/json"

	"github.com/google/uuid"
)

const (
	// ProtocolVersion is reported in agent cards.
	ProtocolVersion = "1.0"

	// MethodMessageSend is the single-response exchange method.
	MethodMessageSend = "message/send"

	// MethodMessageStream is the chunked SSE exchange method.
	MethodMessageStream = "message/stream"

	// AgentCardPath is the well-known discovery endpoint.
	AgentCardPath = "/.well-known/agent.json"

	// ContextIDHeader threads the collection/session identifier through a
	// call out-of-band. It is required for search operations.
	ContextIDHeader = "X-Context-Id"
)

// ============================================================================
// AGENT CARD - discovery & capability advertisement
// ============================================================================

// AgentCard describes an agent's identity and capabilities. It is fetched
// once per client session from AgentCardPath and treated as immutable.
type AgentCard struct {
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	URL          string            `json:"url"`
	Version      string            `json:"version,omitempty"`
	Capabilities AgentCapabilities `json:"capabilities"`
	Skills       []AgentSkill      `json:"skills,omitempty"`
}

// AgentCapabilities advertises which wire styles the agent supports.
type AgentCapabilities struct {
	Streaming bool `json:"streaming"`
}

// AgentSkill describes one capability of an agent.
type AgentSkill struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ============================================================================
// MESSAGE - one logical exchange unit
// ============================================================================

// MessageRole identifies the sender of a message.
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleAgent MessageRole = "agent"
)

// PartKind discriminates message part payloads. Only text parts are used by
// the orchestration core.
type PartKind string

const PartKindText PartKind = "text"

// Part is one element of a message's ordered content sequence.
type Part struct {
	Kind PartKind `json:"kind"`
	Text string   `json:"text,omitempty"`
}

// Message is the unit exchanged between agents. Created per call, never
// persisted beyond it.
type Message struct {
	MessageID string      `json:"message_id"`
	Role      MessageRole `json:"role"`
	Parts     []Part      `json:"parts"`
	Kind      string      `json:"kind"`
}

// NewTextMessage builds a message with a fresh UUID and a single text part.
func NewTextMessage(role MessageRole, text string) Message {
	return Message{
		MessageID: uuid.NewString(),
		Role:      role,
		Parts:     []Part{{Kind: PartKindText, Text: text}},
		Kind:      "message",
	}
}

// Text concatenates the message's text parts in order.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Kind == PartKindText {
			out += p.Text
		}
	}
	return out
}

// MessageSendParams is the params object for message/send and message/stream.
type MessageSendParams struct {
	Message Message `json:"message"`
}

// ============================================================================
// JSON-RPC ENVELOPE
// ============================================================================

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a well-formed error reported by a remote agent.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// NewRequest builds a request envelope with a fresh UUID id.
func NewRequest(method string, params MessageSendParams) (Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, err
	}
	return Request{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  raw,
	}, nil
}

// ============================================================================
// STREAMING - SSE frame payloads
// ============================================================================

// StatusUpdate is the result payload of one message/stream frame. Each frame
// carries a message holding the next text delta; the last frame sets Final.
type StatusUpdate struct {
	Kind   string        `json:"kind"`
	Status MessageStatus `json:"status"`
	Final  bool          `json:"final"`
}

// MessageStatus wraps the delta message inside a status update.
type MessageStatus struct {
	State   string   `json:"state,omitempty"`
	Message *Message `json:"message,omitempty"`
}

// TextDelta extracts the text carried by one stream frame, or "" if the
// frame has no message part.
func (u StatusUpdate) TextDelta() string {
	if u.Status.Message == nil {
		return ""
	}
	return u.Status.Message.Text()
}
