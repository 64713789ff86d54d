// Copyright 2025 Tom Barlow
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

// Command unitai-mcp is the stdio JSON-RPC MCP server exposing UnitAI's
// per-backend ask-* tools, the ten named workflows, and the observability
// dashboards (spec §4.G, §6).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/Rico1109/unitAI-sub006/internal/engine"
	unitlog "github.com/Rico1109/unitAI-sub006/internal/log"
	"github.com/Rico1109/unitAI-sub006/internal/mcpserver"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

// run contains everything main would otherwise do directly, so a deferred
// recover can turn a panic into the documented exit code 2 (spec §6)
// instead of a bare stack trace.
func run() (exitCode int) {
	var (
		dataDir     = flag.String("data-dir", "data", "directory for the audit/metrics/token-savings/activity SQLite stores")
		logLevel    = flag.String("log-level", "", "overrides UNITAI_LOG_LEVEL (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("unitai-mcp %s (commit: %s)\n", version, commit)
		return 0
	}

	logCfg := unitlog.FromEnv()
	if *logLevel != "" {
		logCfg.Level = *logLevel
	}
	logger := unitlog.New(logCfg)
	slog.SetDefault(logger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("unrecovered panic", slog.Any("panic", r))
			exitCode = 2
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := engine.New(ctx, engine.Options{DataDir: *dataDir, Logger: logger})
	if err != nil {
		logger.Error("initialization failed", slog.Any("error", err))
		return 1
	}
	defer eng.Close()

	mcpServer := server.NewMCPServer("unitai", version)
	mcpserver.Register(mcpServer, eng)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ServeStdio(mcpServer)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
		cancel()
		return 0
	case err := <-errCh:
		if err != nil {
			logger.Error("mcp server error", slog.Any("error", err))
			return 1
		}
		return 0
	}
}
