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

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/casetrace/casetrace/pkg/a2a"
	"github.com/casetrace/casetrace/pkg/logger"
)

// Options configures a Server.
type Options struct {
	// Card is served at the well-known discovery path. Its URL field is
	// filled from Addr when empty.
	Card a2a.AgentCard

	Addr string

	Logger *slog.Logger
}

// Server exposes one Executor as an A2A agent.
type Server struct {
	executor Executor
	card     a2a.AgentCard
	addr     string
	logger   *slog.Logger

	httpServer *http.Server
}

func New(executor Executor, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	if opts.Card.URL == "" {
		opts.Card.URL = "http://" + opts.Addr
	}
	opts.Card.Capabilities.Streaming = true
	if opts.Card.Version == "" {
		opts.Card.Version = a2a.ProtocolVersion
	}

	s := &Server{
		executor: executor,
		card:     opts.Card,
		addr:     opts.Addr,
		logger:   opts.Logger,
	}
	s.httpServer = &http.Server{
		Addr:    opts.Addr,
		Handler: s.Router(),
	}
	return s
}

// Router builds the HTTP routes. Exposed separately so tests can drive the
// handler without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get(a2a.AgentCardPath, s.handleAgentCard)
	r.Get("/health", s.handleHealth)
	r.Post("/", s.handleJSONRPC)

	return r
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("agent server listening", "addr", s.addr, "agent", s.card.Name)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.card)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req a2a.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, "", a2a.CodeParseError, "invalid JSON")
		return
	}
	if req.JSONRPC != "2.0" {
		writeRPCError(w, req.ID, a2a.CodeInvalidRequest, "jsonrpc must be 2.0")
		return
	}

	var params a2a.MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeRPCError(w, req.ID, a2a.CodeInvalidParams, "invalid params")
		return
	}
	text := params.Message.Text()
	if text == "" {
		writeRPCError(w, req.ID, a2a.CodeInvalidParams, "message has no text parts")
		return
	}
	contextID := r.Header.Get(a2a.ContextIDHeader)

	switch req.Method {
	case a2a.MethodMessageSend:
		s.serveSend(w, r, req.ID, text, contextID)
	case a2a.MethodMessageStream:
		s.serveStream(w, r, req.ID, text, contextID)
	default:
		writeRPCError(w, req.ID, a2a.CodeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method))
	}
}

func (s *Server) serveSend(w http.ResponseWriter, r *http.Request, id, text, contextID string) {
	reply, err := s.executor.Execute(r.Context(), text, contextID)
	if err != nil {
		s.logger.Error("execution failed", "error", err)
		writeRPCError(w, id, a2a.CodeInternalError, err.Error())
		return
	}

	result, err := json.Marshal(a2a.NewTextMessage(a2a.RoleAgent, reply))
	if err != nil {
		writeRPCError(w, id, a2a.CodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a2a.Response{JSONRPC: "2.0", ID: id, Result: result})
}

// serveStream runs the executor and emits the reply as SSE status-update
// frames: the full text as one working frame, then a final completed frame.
func (s *Server) serveStream(w http.ResponseWriter, r *http.Request, id, text, contextID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeRPCError(w, id, a2a.CodeInternalError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	reply, err := s.executor.Execute(r.Context(), text, contextID)
	if err != nil {
		s.logger.Error("execution failed", "error", err)
		s.writeFrame(w, flusher, id, failedUpdate(err))
		return
	}

	msg := a2a.NewTextMessage(a2a.RoleAgent, reply)
	s.writeFrame(w, flusher, id, a2a.StatusUpdate{
		Kind:   "status-update",
		Status: a2a.MessageStatus{State: "working", Message: &msg},
	})
	s.writeFrame(w, flusher, id, a2a.StatusUpdate{
		Kind:   "status-update",
		Status: a2a.MessageStatus{State: "completed"},
		Final:  true,
	})
}

func (s *Server) writeFrame(w http.ResponseWriter, flusher http.Flusher, id string, update a2a.StatusUpdate) {
	result, err := json.Marshal(update)
	if err != nil {
		s.logger.Error("encoding stream frame", "error", err)
		return
	}
	frame, err := json.Marshal(a2a.Response{JSONRPC: "2.0", ID: id, Result: result})
	if err != nil {
		s.logger.Error("encoding stream frame", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", frame)
	flusher.Flush()
}

func failedUpdate(err error) a2a.StatusUpdate {
	msg := a2a.NewTextMessage(a2a.RoleAgent, err.Error())
	return a2a.StatusUpdate{
		Kind:   "status-update",
		Status: a2a.MessageStatus{State: "failed", Message: &msg},
		Final:  true,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeRPCError(w http.ResponseWriter, id string, code int, message string) {
	writeJSON(w, http.StatusOK, a2a.Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &a2a.RPCError{Code: code, Message: message},
	})
}
