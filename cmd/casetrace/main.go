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

// Command casetrace orchestrates a fleet of document-analysis agents.
//
// Usage:
//
//	casetrace ask --collection <id> "What are the termination terms?"
//	casetrace serve --port 8080
//	casetrace agents
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/casetrace/casetrace"
	"github.com/casetrace/casetrace/pkg/a2a"
	"github.com/casetrace/casetrace/pkg/config"
	"github.com/casetrace/casetrace/pkg/logger"
	"github.com/casetrace/casetrace/pkg/orchestrator"
	"github.com/casetrace/casetrace/pkg/ratelimit"
	"github.com/casetrace/casetrace/pkg/registry"
	"github.com/casetrace/casetrace/pkg/remoteagent"
	"github.com/casetrace/casetrace/pkg/server"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Ask     AskCmd     `cmd:"" help:"Answer one question against a document collection."`
	Serve   ServeCmd   `cmd:"" help:"Expose the orchestrator as an A2A agent."`
	Agents  AgentsCmd  `cmd:"" help:"List configured agents and probe their cards."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// fleet bundles the wired-up components every command needs.
type fleet struct {
	cfg          *config.Config
	registry     *registry.AgentRegistry
	caller       *remoteagent.Caller
	orchestrator *orchestrator.Orchestrator
}

func buildFleet(cli *CLI) (*fleet, error) {
	if err := config.LoadEnvFiles(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}

	logger.Init(logger.ParseLevel(cli.LogLevel), os.Stderr, cli.LogFormat)

	reg, err := registry.New(cfg.Agents)
	if err != nil {
		return nil, err
	}

	client := a2a.NewClient(a2a.ClientConfig{Timeouts: a2a.Timeouts{
		Connect: cfg.Timeouts.Connect.Duration(),
		Write:   cfg.Timeouts.Write.Duration(),
		Read:    cfg.Timeouts.Read.Duration(),
		Pool:    cfg.Timeouts.Pool.Duration(),
	}})
	caller := remoteagent.New(reg, client)

	limiter := ratelimit.New(ratelimit.Config{
		MinInterval: cfg.RateLimit.MinInterval.Duration(),
		BaseDelay:   cfg.RateLimit.BaseDelay.Duration(),
		MaxRetries:  cfg.RateLimit.MaxRetries,
	})

	return &fleet{
		cfg:      cfg,
		registry: reg,
		caller:   caller,
		orchestrator: orchestrator.New(caller, orchestrator.Options{
			ExpertAgent: config.ExpertAgentName,
			SearchAgent: config.SearchAgentName,
			Limiter:     limiter,
		}),
	}, nil
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(casetrace.GetVersion())
	return nil
}

// AskCmd runs one orchestration and prints the final answer.
type AskCmd struct {
	Question   string        `arg:"" help:"The question to answer."`
	Collection string        `required:"" help:"Document collection ID, threaded to every agent."`
	Deadline   time.Duration `help:"Overall deadline for the orchestration." default:"10m"`
}

func (c *AskCmd) Run(cli *CLI) error {
	f, err := buildFleet(cli)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelDeadline := context.WithTimeout(ctx, c.Deadline)
	defer cancelDeadline()

	res, err := f.orchestrator.Answer(ctx, c.Question, c.Collection)
	if err != nil {
		return err
	}

	fmt.Println(res.FinalText)
	fmt.Fprintf(os.Stderr, "\nrounds: %d, complete: %t\n", res.RoundsUsed+1, res.WasComplete)
	return nil
}

// ServeCmd exposes the orchestrator itself as an A2A agent.
type ServeCmd struct {
	Host string `help:"Host to bind." default:""`
	Port int    `help:"Port to listen on." default:"0"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	f, err := buildFleet(cli)
	if err != nil {
		return err
	}

	host := f.cfg.Server.Host
	if c.Host != "" {
		host = c.Host
	}
	port := f.cfg.Server.Port
	if c.Port != 0 {
		port = c.Port
	}

	srv := server.New(server.OrchestratorExecutor(f.orchestrator), server.Options{
		Addr: fmt.Sprintf("%s:%d", host, port),
		Card: a2a.AgentCard{
			Name:        "casetrace_orchestrator",
			Description: "Answers legal questions by decomposing them across a search agent fleet.",
			Skills: []a2a.AgentSkill{
				{Name: "answer_question", Description: "Answer a question against a document collection."},
			},
		},
	})

	ctx, cancel := signalContext()
	defer cancel()
	return srv.Start(ctx)
}

// AgentsCmd lists registry entries and probes each agent's card.
type AgentsCmd struct {
	Timeout time.Duration `help:"Probe timeout per agent." default:"5s"`
}

func (c *AgentsCmd) Run(cli *CLI) error {
	f, err := buildFleet(cli)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	for _, name := range f.registry.Names() {
		addr, err := f.registry.Resolve(name)
		if err != nil {
			return err
		}

		probeCtx, probeCancel := context.WithTimeout(ctx, c.Timeout)
		card, err := f.caller.Card(probeCtx, name)
		probeCancel()

		if err != nil {
			fmt.Printf("%-16s %-28s unreachable: %v\n", name, addr, err)
			continue
		}
		fmt.Printf("%-16s %-28s %s (streaming: %t)\n", name, addr, card.Name, card.Capabilities.Streaming)
	}
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("casetrace"),
		kong.Description("Multi-agent orchestration for legal document analysis."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
