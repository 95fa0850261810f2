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

// Package registry maps logical agent names to network addresses. The
// mapping is populated once at process start from configuration and is
// read-only thereafter; there is no runtime registration.
package registry

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// NotFoundError reports an unknown agent name. It lists the currently known
// names so the caller can surface a helpful error. An unknown name is a
// configuration error and is never silently downgraded.
type NotFoundError struct {
	Name  string
	Known []string
}

func (e *NotFoundError) Error() string {
	known := "none"
	if len(e.Known) > 0 {
		known = strings.Join(e.Known, ", ")
	}
	return fmt.Sprintf("agent %q not found in registry. Available agents: %s", e.Name, known)
}

// AgentRegistry is the static name -> base URL mapping shared by all
// requests. It requires no locking: it is immutable after construction.
type AgentRegistry struct {
	agents map[string]*url.URL
	names  []string // sorted, for stable error messages
}

// New builds a registry from logical name -> base address pairs. Addresses
// without a scheme default to http. Empty names or unparseable addresses are
// rejected.
func New(agents map[string]string) (*AgentRegistry, error) {
	resolved := make(map[string]*url.URL, len(agents))
	names := make([]string, 0, len(agents))

	for name, addr := range agents {
		if name == "" {
			return nil, fmt.Errorf("agent name cannot be empty")
		}
		if !strings.Contains(addr, "://") {
			addr = "http://" + addr
		}
		u, err := url.Parse(addr)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid address %q for agent %q", addr, name)
		}
		resolved[name] = u
		names = append(names, name)
	}
	sort.Strings(names)

	return &AgentRegistry{agents: resolved, names: names}, nil
}

// Resolve returns the base URL registered for name, or a *NotFoundError
// listing the known agents.
func (r *AgentRegistry) Resolve(name string) (*url.URL, error) {
	u, ok := r.agents[name]
	if !ok {
		return nil, &NotFoundError{Name: name, Known: r.names}
	}
	return u, nil
}

// Names returns the registered agent names in sorted order.
func (r *AgentRegistry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Count returns the number of registered agents.
func (r *AgentRegistry) Count() int { return len(r.agents) }
