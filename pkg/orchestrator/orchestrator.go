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

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/casetrace/casetrace/pkg/logger"
	"github.com/casetrace/casetrace/pkg/ratelimit"
	"github.com/casetrace/casetrace/pkg/registry"
)

// MaxRounds caps the number of search rounds per question. The first
// round runs the decomposition's sub-queries; at most one more round
// runs the validation verdict's follow-up queries.
const MaxRounds = 2

// defaultMaxParallel bounds concurrent sub-query searches within a round.
const defaultMaxParallel = 3

// validationHeadroom is the minimum time that must remain on the
// context deadline for a validation round to be worth starting.
const validationHeadroom = 20 * time.Second

// AgentCaller sends one text message to a named agent and returns the
// full reply text. Implemented by remoteagent.Caller.
type AgentCaller interface {
	Send(ctx context.Context, agentName, text, contextID string) (string, error)
}

// Options configures an Orchestrator.
type Options struct {
	ExpertAgent string
	SearchAgent string
	MaxParallel int
	Limiter     *ratelimit.Limiter
	Logger      *slog.Logger
}

// Orchestrator coordinates the decompose -> search -> combine -> validate
// loop across the expert and search agents for a single question at a
// time. It is safe for concurrent use; per-question state lives on the
// stack of Answer.
type Orchestrator struct {
	caller      AgentCaller
	limiter     *ratelimit.Limiter
	expertAgent string
	searchAgent string
	maxParallel int
	logger      *slog.Logger
}

func New(caller AgentCaller, opts Options) *Orchestrator {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaultMaxParallel
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New(ratelimit.DefaultConfig())
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	return &Orchestrator{
		caller:      caller,
		limiter:     opts.Limiter,
		expertAgent: opts.ExpertAgent,
		searchAgent: opts.SearchAgent,
		maxParallel: opts.MaxParallel,
		logger:      opts.Logger,
	}
}

// Answer runs the full orchestration for one lawyer question against
// one document collection. collectionID is required: every agent call
// it makes is scoped to that collection.
//
// The flow degrades rather than aborts: a failed decomposition falls
// back to searching the original question verbatim, a failed search
// leaves an error-flagged slot in the result sequence, and a failed
// validation ends the loop with the combined text as the final answer.
// An exceeded overall deadline finishes with whatever results have
// completed. Only an unknown agent name is fatal.
func (o *Orchestrator) Answer(ctx context.Context, query, collectionID string) (*Result, error) {
	if query == "" {
		return nil, errors.New("orchestrator: empty query")
	}
	if collectionID == "" {
		return nil, errors.New("orchestrator: collection id is required")
	}

	subQueries, err := o.decompose(ctx, query, collectionID)
	if err != nil {
		return nil, err
	}
	o.logger.Info("query decomposed", "sub_queries", len(subQueries))

	var (
		accumulated []SearchResult
		round       int
		complete    bool
	)
	for {
		results, err := o.searchAll(ctx, subQueries, collectionID)
		if err != nil {
			return nil, err
		}
		accumulated = append(accumulated, results...)

		combined := Aggregate(accumulated)

		// Past the overall deadline: keep whatever completed and finish.
		if ctx.Err() != nil {
			o.logger.Warn("deadline exceeded, returning combined results", "round", round)
			break
		}
		if !enoughTimeFor(ctx, validationHeadroom) {
			o.logger.Warn("deadline near, skipping validation", "round", round)
			break
		}

		verdict, verr := o.validate(ctx, query, combined, collectionID)
		if verr != nil {
			if fatal(verr) {
				return nil, verr
			}
			o.logger.Warn("validation failed, returning combined results", "error", verr)
			break
		}
		if verdict.Complete {
			complete = true
			break
		}
		if round+1 >= MaxRounds {
			o.logger.Info("round cap reached with answer incomplete", "rounds_used", round)
			break
		}
		if len(verdict.FollowupQueries) == 0 {
			o.logger.Info("verdict incomplete but no follow-up queries, stopping")
			break
		}

		o.logger.Info("answer incomplete, searching follow-ups",
			"round", round, "followups", len(verdict.FollowupQueries), "missing", len(verdict.Missing))
		subQueries = subQueries[:0]
		for _, q := range verdict.FollowupQueries {
			subQueries = append(subQueries, SubQuery{Text: q, Origin: OriginValidationFollowup})
		}
		round++
	}

	return &Result{
		FinalText:   Aggregate(accumulated),
		RoundsUsed:  round,
		WasComplete: complete,
	}, nil
}

// decompose asks the expert agent to break the question into focused
// sub-queries. Any non-fatal failure degrades to the original question.
func (o *Orchestrator) decompose(ctx context.Context, query, collectionID string) ([]SubQuery, error) {
	prompt := decompositionPrompt(query)
	raw, err := ratelimit.Do(ctx, o.limiter, func(ctx context.Context) (string, error) {
		return o.caller.Send(ctx, o.expertAgent, prompt, collectionID)
	})
	if err != nil {
		if fatal(err) {
			return nil, err
		}
		o.logger.Warn("decomposition failed, searching original query", "error", err)
		return []SubQuery{{Text: query, Origin: OriginDecomposition}}, nil
	}
	return ParseDecomposition(raw, query), nil
}

// searchAll runs one round of searches, bounded by maxParallel. Results
// come back indexed by sub-query order regardless of completion order.
// Individual failures are recorded in their slot; only fatal errors
// abort the round.
func (o *Orchestrator) searchAll(ctx context.Context, subQueries []SubQuery, collectionID string) ([]SearchResult, error) {
	results := make([]SearchResult, len(subQueries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxParallel)
	for i, sq := range subQueries {
		i, sq := i, sq
		g.Go(func() error {
			text, err := ratelimit.Do(gctx, o.limiter, func(ctx context.Context) (string, error) {
				return o.caller.Send(ctx, o.searchAgent, sq.Text, collectionID)
			})
			if err != nil {
				if fatal(err) {
					return err
				}
				o.logger.Warn("search failed", "sub_query", sq.Text, "error", err)
				results[i] = SearchResult{Query: sq, Err: err}
				return nil
			}
			results[i] = SearchResult{Query: sq, Text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// validate asks the expert agent whether the combined search output
// answers the original question in full.
func (o *Orchestrator) validate(ctx context.Context, query, combined, collectionID string) (ValidationVerdict, error) {
	payload, err := json.Marshal(map[string]string{
		"search_agent_response": combined,
		"lawyer_question":       query,
	})
	if err != nil {
		return ValidationVerdict{}, fmt.Errorf("encoding validation payload: %w", err)
	}
	prompt := validationPrompt(string(payload))
	raw, err := ratelimit.Do(ctx, o.limiter, func(ctx context.Context) (string, error) {
		return o.caller.Send(ctx, o.expertAgent, prompt, collectionID)
	})
	if err != nil {
		return ValidationVerdict{}, err
	}
	return ParseVerdict(raw), nil
}

// fatal reports whether an agent call error must abort the whole
// orchestration instead of degrading. Only unknown agent names qualify:
// a configuration problem every later call would share. Timeouts wrap
// context.DeadlineExceeded, so deadline sentinels must stay non-fatal
// or a single slow search would kill the request.
func fatal(err error) bool {
	var nf *registry.NotFoundError
	return errors.As(err, &nf)
}

// enoughTimeFor reports whether the context deadline, if any, leaves at
// least d of headroom.
func enoughTimeFor(ctx context.Context, d time.Duration) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) >= d
}

func decompositionPrompt(query string) string {
	return fmt.Sprintf(`Evaluate whether the following legal question is specific enough to run
against a document search as-is.

Question: %s

Respond with JSON only:
{"is_query_valid": true|false, "suggested_queries": ["...", "..."]}

If is_query_valid is true, suggested_queries should be empty.
If is_query_valid is false, suggested_queries should contain specific,
searchable alternatives.`, query)
}

func validationPrompt(payload string) string {
	return fmt.Sprintf(`Evaluate whether the search results below fully answer the lawyer's question.

%s

Respond with JSON only:
{"answered_in_full": true|false, "missing_information": ["..."], "additional_queries_needed": ["..."]}

List additional_queries_needed only when further searches could supply
the missing information.`, payload)
}
