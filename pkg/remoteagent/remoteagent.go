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

// Package remoteagent exchanges logical messages with named remote agents.
// It resolves names through the registry, discovers and caches each agent's
// capability card, and picks the single-response or streaming wire style the
// peer advertises. Callers of Send never see partial chunks; SendStreaming
// is the lower-level variant for consumers, such as an interactive relay,
// that need deltas in emission order.
package remoteagent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/casetrace/casetrace/pkg/a2a"
	"github.com/casetrace/casetrace/pkg/registry"
)

// Caller performs one logical request/response exchange per Send. It is
// safe for concurrent use across requests.
type Caller struct {
	registry *registry.AgentRegistry
	client   *a2a.Client

	mu    sync.RWMutex
	cards map[string]*a2a.AgentCard
}

// New creates a Caller on top of an agent registry and an A2A transport
// client.
func New(reg *registry.AgentRegistry, client *a2a.Client) *Caller {
	return &Caller{
		registry: reg,
		client:   client,
		cards:    make(map[string]*a2a.AgentCard),
	}
}

// Send exchanges one text message with the named agent and returns the full
// reply text. When the peer advertises streaming, the exchange runs over
// message/stream and the deltas are concatenated in arrival order before
// returning. contextID threads the collection/session identifier; it is the
// caller's, never defaulted here.
func (c *Caller) Send(ctx context.Context, agentName, text, contextID string) (string, error) {
	addr, card, err := c.resolve(ctx, agentName)
	if err != nil {
		return "", err
	}

	start := time.Now()
	var reply string
	if card.Capabilities.Streaming {
		reply, err = c.sendStreamed(ctx, addr, text, contextID)
	} else {
		msg := a2a.NewTextMessage(a2a.RoleUser, text)
		reply, err = c.client.SendMessage(ctx, addr, contextID, msg)
	}

	c.logOutcome(agentName, addr, time.Since(start), err)
	if err != nil {
		c.dropCardOnConnectionFailure(agentName, err)
		return "", err
	}
	return reply, nil
}

// SendStreaming exchanges one text message over message/stream and returns
// the chunk channel directly: deltas in emission order, no reordering, no
// dedup. Establishment failures are returned synchronously.
func (c *Caller) SendStreaming(ctx context.Context, agentName, text, contextID string) (<-chan a2a.StreamChunk, error) {
	addr, _, err := c.resolve(ctx, agentName)
	if err != nil {
		return nil, err
	}
	msg := a2a.NewTextMessage(a2a.RoleUser, text)
	chunks, err := c.client.StreamMessage(ctx, addr, contextID, msg)
	if err != nil {
		c.dropCardOnConnectionFailure(agentName, err)
		return nil, err
	}
	return chunks, nil
}

// Card returns the cached (or freshly discovered) capability card for the
// named agent.
func (c *Caller) Card(ctx context.Context, agentName string) (*a2a.AgentCard, error) {
	_, card, err := c.resolve(ctx, agentName)
	return card, err
}

// resolve maps the logical name to an address and discovers the agent card,
// caching it for the session. An unknown name is fatal; a discovery failure
// fails the call fast rather than silently degrading.
func (c *Caller) resolve(ctx context.Context, agentName string) (string, *a2a.AgentCard, error) {
	u, err := c.registry.Resolve(agentName)
	if err != nil {
		return "", nil, err
	}
	addr := strings.TrimRight(u.String(), "/")

	c.mu.RLock()
	card, ok := c.cards[agentName]
	c.mu.RUnlock()
	if ok {
		return addr, card, nil
	}

	card, err = c.client.Discover(ctx, addr)
	if err != nil {
		return "", nil, err
	}
	slog.Info("Discovered agent",
		"agent", card.Name,
		"address", addr,
		"streaming", card.Capabilities.Streaming,
		"skills", len(card.Skills))

	c.mu.Lock()
	c.cards[agentName] = card
	c.mu.Unlock()
	return addr, card, nil
}

// sendStreamed collects all deltas of a streamed exchange into one logical
// reply. A mid-stream failure surfaces as the call's error; partial text is
// discarded.
func (c *Caller) sendStreamed(ctx context.Context, addr, text, contextID string) (string, error) {
	msg := a2a.NewTextMessage(a2a.RoleUser, text)
	chunks, err := c.client.StreamMessage(ctx, addr, contextID, msg)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		sb.WriteString(chunk.Text)
	}
	return sb.String(), nil
}

// dropCardOnConnectionFailure invalidates the cached descriptor so the next
// call re-resolves, since the peer may have moved or restarted.
func (c *Caller) dropCardOnConnectionFailure(agentName string, err error) {
	var ce *a2a.CallError
	if !errors.As(err, &ce) || ce.Kind != a2a.KindConnection {
		return
	}
	c.mu.Lock()
	delete(c.cards, agentName)
	c.mu.Unlock()
}

// logOutcome records every call with the resolved address, elapsed time and
// outcome variant. Observability only; never affects control flow.
func (c *Caller) logOutcome(agentName, addr string, elapsed time.Duration, err error) {
	if err == nil {
		slog.Info("Agent call completed",
			"agent", agentName,
			"address", addr,
			"elapsed", elapsed,
			"outcome", "ok")
		return
	}

	outcome := "connection_failed"
	var ce *a2a.CallError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case a2a.KindTimeout:
			outcome = "timed_out(" + string(ce.Phase) + ")"
		case a2a.KindRemote:
			outcome = "remote_error"
		}
	}
	slog.Warn("Agent call failed",
		"agent", agentName,
		"address", addr,
		"elapsed", elapsed,
		"outcome", outcome,
		"error", err)
}
