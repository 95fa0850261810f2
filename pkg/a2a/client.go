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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync/atomic"
	"time"
)

// Timeouts decomposes a call's budget into phases. Read is deliberately
// generous because search operations are slow; connect and write are short.
type Timeouts struct {
	Connect time.Duration // establishing the TCP connection
	Write   time.Duration // sending the request body
	Read    time.Duration // waiting for the first response byte
	Pool    time.Duration // idle pooled connections
}

// DefaultTimeouts returns the stock phase budget: connect 10s, read 120s,
// write 10s, pool 10s.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect: 10 * time.Second,
		Write:   10 * time.Second,
		Read:    120 * time.Second,
		Pool:    10 * time.Second,
	}
}

// ClientConfig configures an A2A transport client.
type ClientConfig struct {
	Timeouts Timeouts
}

// Client is the A2A transport client. It performs card discovery and single
// or streaming message exchanges against one agent base URL per call. It is
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	timeouts   Timeouts
}

// NewClient creates an A2A client. Zero timeout fields fall back to the
// defaults.
func NewClient(cfg ClientConfig) *Client {
	t := cfg.Timeouts
	def := DefaultTimeouts()
	if t.Connect == 0 {
		t.Connect = def.Connect
	}
	if t.Write == 0 {
		t.Write = def.Write
	}
	if t.Read == 0 {
		t.Read = def.Read
	}
	if t.Pool == 0 {
		t.Pool = def.Pool
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: t.Connect,
		}).DialContext,
		TLSHandshakeTimeout:   t.Connect,
		ResponseHeaderTimeout: t.Read,
		IdleConnTimeout:       t.Pool,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		timeouts:   t,
	}
}

// Timeouts returns the effective phase budget.
func (c *Client) Timeouts() Timeouts { return c.timeouts }

// ============================================================================
// DISCOVERY
// ============================================================================

// Discover fetches the agent card from baseURL. The caller is expected to
// cache the card for the lifetime of a session.
func (c *Client) Discover(ctx context.Context, baseURL string) (*AgentCard, error) {
	cardURL := strings.TrimRight(baseURL, "/") + AgentCardPath

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Connect+c.timeouts.Read)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cardURL, nil)
	if err != nil {
		return nil, &CallError{Kind: KindConnection, Agent: baseURL, Detail: err.Error(), Err: err}
	}

	resp, phase, err := c.do(req)
	if err != nil {
		return nil, classifyTransportError(err, baseURL, phase)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &CallError{
			Kind:   KindRemote,
			Code:   resp.StatusCode,
			Agent:  baseURL,
			Detail: fmt.Sprintf("agent card fetch failed: %s - %s", resp.Status, string(body)),
		}
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, &CallError{Kind: KindConnection, Agent: baseURL, Detail: "malformed agent card: " + err.Error(), Err: err}
	}
	return &card, nil
}

// ============================================================================
// MESSAGE SENDING
// ============================================================================

// SendMessage performs one message/send exchange and returns the peer's
// reply text. contextID, when non-empty, is threaded via the X-Context-Id
// header.
func (c *Client) SendMessage(ctx context.Context, baseURL, contextID string, msg Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Connect+c.timeouts.Write+c.timeouts.Read)
	defer cancel()

	resp, phase, err := c.postRPC(ctx, baseURL, contextID, MethodMessageSend, msg)
	if err != nil {
		return "", classifyTransportError(err, baseURL, phase)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &CallError{
			Kind:   KindRemote,
			Code:   resp.StatusCode,
			Agent:  baseURL,
			Detail: fmt.Sprintf("%s - %s", resp.Status, string(body)),
		}
	}

	var envelope Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", classifyTransportError(err, baseURL, PhaseRead)
	}
	if envelope.Error != nil {
		return "", &CallError{
			Kind:   KindRemote,
			Code:   envelope.Error.Code,
			Agent:  baseURL,
			Detail: envelope.Error.Message,
		}
	}

	var reply Message
	if err := json.Unmarshal(envelope.Result, &reply); err != nil {
		return "", &CallError{Kind: KindRemote, Agent: baseURL, Detail: "malformed result message: " + err.Error(), Err: err}
	}
	return reply.Text(), nil
}

// StreamChunk is one text delta from a message/stream exchange, delivered in
// emission order with no reordering or dedup. Err is set only on the
// terminal chunk of a failed stream.
type StreamChunk struct {
	Text string
	Err  error
}

// StreamMessage performs one message/stream exchange. Establishment failures
// (connect, write, HTTP or JSON-RPC errors before the first frame) are
// returned synchronously; after that, chunks arrive on the channel until the
// final frame or a mid-stream failure. The channel is always closed.
func (c *Client) StreamMessage(ctx context.Context, baseURL, contextID string, msg Message) (<-chan StreamChunk, error) {
	resp, phase, err := c.postRPC(ctx, baseURL, contextID, MethodMessageStream, msg)
	if err != nil {
		return nil, classifyTransportError(err, baseURL, phase)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &CallError{
			Kind:   KindRemote,
			Code:   resp.StatusCode,
			Agent:  baseURL,
			Detail: fmt.Sprintf("%s - %s", resp.Status, string(body)),
		}
	}

	chunks := make(chan StreamChunk, 8)
	go c.readSSE(ctx, resp, baseURL, chunks)
	return chunks, nil
}

// readSSE parses data: frames off the response body, enforcing the
// idle-between-chunks budget with a resettable timer that aborts the read.
func (c *Client) readSSE(ctx context.Context, resp *http.Response, baseURL string, chunks chan<- StreamChunk) {
	defer close(chunks)
	defer resp.Body.Close()

	var timedOut atomic.Bool
	idle := time.AfterFunc(c.timeouts.Read, func() {
		timedOut.Store(true)
		resp.Body.Close()
	})
	defer idle.Stop()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		idle.Reset(c.timeouts.Read)

		var envelope Response
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &envelope); err != nil {
			slog.Debug("Skipping unparseable stream frame", "agent", baseURL, "error", err)
			continue
		}
		if envelope.Error != nil {
			chunks <- StreamChunk{Err: &CallError{
				Kind:   KindRemote,
				Code:   envelope.Error.Code,
				Agent:  baseURL,
				Detail: envelope.Error.Message,
			}}
			return
		}

		var update StatusUpdate
		if err := json.Unmarshal(envelope.Result, &update); err != nil {
			slog.Debug("Skipping unparseable status update", "agent", baseURL, "error", err)
			continue
		}
		if delta := update.TextDelta(); delta != "" {
			chunks <- StreamChunk{Text: delta}
		}
		if update.Final {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		if timedOut.Load() {
			chunks <- StreamChunk{Err: &CallError{
				Kind:   KindTimeout,
				Phase:  PhaseStream,
				Agent:  baseURL,
				Detail: fmt.Sprintf("no chunk received within %s", c.timeouts.Read),
				Err:    err,
			}}
			return
		}
		chunks <- StreamChunk{Err: classifyTransportError(err, baseURL, PhaseStream)}
	}
}

// ============================================================================
// INTERNALS
// ============================================================================

// postRPC sends one JSON-RPC envelope. The returned Phase names the last
// phase entered before a transport error, so failures can be attributed to
// the right timeout knob.
func (c *Client) postRPC(ctx context.Context, baseURL, contextID, method string, msg Message) (*http.Response, Phase, error) {
	rpcReq, err := NewRequest(method, MessageSendParams{Message: msg})
	if err != nil {
		return nil, PhaseWrite, err
	}
	body, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, PhaseWrite, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, PhaseConnect, err
	}
	req.Header.Set("Content-Type", "application/json")
	if method == MethodMessageStream {
		req.Header.Set("Accept", "text/event-stream")
	}
	if contextID != "" {
		req.Header.Set(ContextIDHeader, contextID)
	}

	return c.do(req)
}

// do runs the request while tracking which phase it is in via httptrace.
func (c *Client) do(req *http.Request) (*http.Response, Phase, error) {
	phase := PhaseConnect
	trace := &httptrace.ClientTrace{
		ConnectDone: func(network, addr string, err error) {
			if err == nil {
				phase = PhaseWrite
			}
		},
		GotConn: func(httptrace.GotConnInfo) {
			phase = PhaseWrite
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			phase = PhaseRead
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, phase, err
	}
	return resp, PhaseRead, nil
}
