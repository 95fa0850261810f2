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
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient() *Client {
	return NewClient(ClientConfig{Timeouts: Timeouts{
		Connect: time.Second,
		Write:   time.Second,
		Read:    5 * time.Second,
		Pool:    time.Second,
	}})
}

func rpcReply(t *testing.T, w http.ResponseWriter, id string, text string) {
	t.Helper()
	msg := NewTextMessage(RoleAgent, text)
	result, err := json.Marshal(msg)
	require.NoError(t, err)
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", ID: id, Result: result}))
}

func TestDiscover(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, AgentCardPath, r.URL.Path)
		json.NewEncoder(w).Encode(AgentCard{
			Name:         "search_agent",
			URL:          "http://localhost:8001",
			Capabilities: AgentCapabilities{Streaming: true},
		})
	}))
	defer ts.Close()

	card, err := fastClient().Discover(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "search_agent", card.Name)
	assert.True(t, card.Capabilities.Streaming)
}

func TestDiscoverConnectionRefused(t *testing.T) {
	_, err := fastClient().Discover(context.Background(), "http://127.0.0.1:1")
	require.Error(t, err)

	var ce *CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindConnection, ce.Kind)
}

func TestSendMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "coll-1", r.Header.Get(ContextIDHeader))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, MethodMessageSend, req.Method)

		var params MessageSendParams
		require.NoError(t, json.Unmarshal(req.Params, &params))
		rpcReply(t, w, req.ID, "reply to: "+params.Message.Text())
	}))
	defer ts.Close()

	reply, err := fastClient().SendMessage(context.Background(), ts.URL, "coll-1", NewTextMessage(RoleUser, "question"))
	require.NoError(t, err)
	assert.Equal(t, "reply to: question", reply)
}

func TestSendMessageRPCError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Response{
			JSONRPC: "2.0",
			ID:      "1",
			Error:   &RPCError{Code: CodeInternalError, Message: "backend exploded"},
		})
	}))
	defer ts.Close()

	_, err := fastClient().SendMessage(context.Background(), ts.URL, "", NewTextMessage(RoleUser, "q"))
	require.Error(t, err)

	var ce *CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindRemote, ce.Kind)
	assert.Equal(t, CodeInternalError, ce.Code)
	assert.Contains(t, ce.Detail, "backend exploded")
}

func TestSendMessageHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := fastClient().SendMessage(context.Background(), ts.URL, "", NewTextMessage(RoleUser, "q"))
	require.Error(t, err)

	var ce *CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindRemote, ce.Kind)
	assert.Equal(t, http.StatusTooManyRequests, ce.Code)
}

func TestSendMessageReadTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer ts.Close()

	client := NewClient(ClientConfig{Timeouts: Timeouts{
		Connect: time.Second,
		Write:   time.Second,
		Read:    50 * time.Millisecond,
		Pool:    time.Second,
	}})
	_, err := client.SendMessage(context.Background(), ts.URL, "", NewTextMessage(RoleUser, "q"))
	require.Error(t, err)

	phase, ok := Timeout(err)
	require.True(t, ok, "expected a timeout error, got %v", err)
	assert.Equal(t, PhaseRead, phase)
}

func sseFrame(t *testing.T, update StatusUpdate) string {
	t.Helper()
	result, err := json.Marshal(update)
	require.NoError(t, err)
	frame, err := json.Marshal(Response{JSONRPC: "2.0", ID: "1", Result: result})
	require.NoError(t, err)
	return fmt.Sprintf("data: %s\n\n", frame)
}

func workingFrame(t *testing.T, text string) string {
	msg := NewTextMessage(RoleAgent, text)
	return sseFrame(t, StatusUpdate{Kind: "status-update", Status: MessageStatus{State: "working", Message: &msg}})
}

func finalFrame(t *testing.T) string {
	return sseFrame(t, StatusUpdate{Kind: "status-update", Status: MessageStatus{State: "completed"}, Final: true})
}

func TestStreamMessageDeliversChunksInOrder(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range []string{"first ", "second ", "third"} {
			fmt.Fprint(w, workingFrame(t, chunk))
			flusher.Flush()
		}
		fmt.Fprint(w, finalFrame(t))
		flusher.Flush()
	}))
	defer ts.Close()

	chunks, err := fastClient().StreamMessage(context.Background(), ts.URL, "coll-1", NewTextMessage(RoleUser, "q"))
	require.NoError(t, err)

	var sb strings.Builder
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		sb.WriteString(chunk.Text)
	}
	assert.Equal(t, "first second third", sb.String())
}

func TestStreamMessageIdleTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, workingFrame(t, "partial"))
		flusher.Flush()
		// Never send another frame; the client's idle budget must trip.
		time.Sleep(400 * time.Millisecond)
	}))
	defer ts.Close()

	client := NewClient(ClientConfig{Timeouts: Timeouts{
		Connect: time.Second,
		Write:   time.Second,
		Read:    80 * time.Millisecond,
		Pool:    time.Second,
	}})
	chunks, err := client.StreamMessage(context.Background(), ts.URL, "", NewTextMessage(RoleUser, "q"))
	require.NoError(t, err)

	var got []StreamChunk
	for chunk := range chunks {
		got = append(got, chunk)
	}
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	require.Error(t, last.Err)

	phase, ok := Timeout(last.Err)
	require.True(t, ok, "expected a timeout, got %v", last.Err)
	assert.Equal(t, PhaseStream, phase)
}

func TestStreamMessageEstablishmentErrorIsSynchronous(t *testing.T) {
	_, err := fastClient().StreamMessage(context.Background(), "http://127.0.0.1:1", "", NewTextMessage(RoleUser, "q"))
	require.Error(t, err)

	var ce *CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindConnection, ce.Kind)
}

func TestStreamMessageRemoteErrorFrame(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		frame, err := json.Marshal(Response{
			JSONRPC: "2.0",
			ID:      "1",
			Error:   &RPCError{Code: CodeInternalError, Message: "stream failed"},
		})
		require.NoError(t, err)
		fmt.Fprintf(w, "data: %s\n\n", frame)
	}))
	defer ts.Close()

	chunks, err := fastClient().StreamMessage(context.Background(), ts.URL, "", NewTextMessage(RoleUser, "q"))
	require.NoError(t, err)

	var last StreamChunk
	for chunk := range chunks {
		last = chunk
	}
	require.Error(t, last.Err)

	var ce *CallError
	require.ErrorAs(t, last.Err, &ce)
	assert.Equal(t, KindRemote, ce.Kind)
}
