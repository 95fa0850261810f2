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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextMessage(t *testing.T) {
	msg := NewTextMessage(RoleUser, "hello")

	assert.NotEmpty(t, msg.MessageID)
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "message", msg.Kind)
	require.Len(t, msg.Parts, 1)
	assert.Equal(t, PartKindText, msg.Parts[0].Kind)
	assert.Equal(t, "hello", msg.Parts[0].Text)

	other := NewTextMessage(RoleUser, "hello")
	assert.NotEqual(t, msg.MessageID, other.MessageID)
}

func TestMessageTextConcatenatesParts(t *testing.T) {
	msg := Message{Parts: []Part{
		{Kind: PartKindText, Text: "first "},
		{Kind: "file"},
		{Kind: PartKindText, Text: "second"},
	}}
	assert.Equal(t, "first second", msg.Text())
}

func TestMessageWireShape(t *testing.T) {
	raw, err := json.Marshal(NewTextMessage(RoleUser, "q"))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Contains(t, m, "message_id")
	assert.Equal(t, "message", m["kind"])
	assert.Equal(t, "user", m["role"])
}

func TestNewRequestEnvelope(t *testing.T) {
	req, err := NewRequest(MethodMessageSend, MessageSendParams{Message: NewTextMessage(RoleUser, "q")})
	require.NoError(t, err)

	assert.Equal(t, "2.0", req.JSONRPC)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "message/send", req.Method)

	var params MessageSendParams
	require.NoError(t, json.Unmarshal(req.Params, &params))
	assert.Equal(t, "q", params.Message.Text())
}

func TestStatusUpdateTextDelta(t *testing.T) {
	msg := NewTextMessage(RoleAgent, "delta")
	update := StatusUpdate{Status: MessageStatus{State: "working", Message: &msg}}
	assert.Equal(t, "delta", update.TextDelta())

	assert.Equal(t, "", StatusUpdate{Final: true}.TextDelta())
}
