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

// Package engine wires every other internal package into one explicit
// Context: config, breaker registry, selector, dispatcher, gate,
// observability stores, and the workflow runtime. Nothing here is a
// package-level global — every dependency is constructed once, here, and
// handed to its consumer (Design Notes §9).
package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Rico1109/unitAI-sub006/internal/backend"
	"github.com/Rico1109/unitAI-sub006/internal/backend/executors"
	"github.com/Rico1109/unitAI-sub006/internal/breaker"
	"github.com/Rico1109/unitAI-sub006/internal/config"
	unitlog "github.com/Rico1109/unitAI-sub006/internal/log"
	"github.com/Rico1109/unitAI-sub006/internal/observability/activity"
	"github.com/Rico1109/unitAI-sub006/internal/observability/audit"
	"github.com/Rico1109/unitAI-sub006/internal/observability/metrics"
	"github.com/Rico1109/unitAI-sub006/internal/observability/tokensavings"
	"github.com/Rico1109/unitAI-sub006/internal/permissions"
	"github.com/Rico1109/unitAI-sub006/internal/selector"
	"github.com/Rico1109/unitAI-sub006/internal/workflow"
	unitaierrors "github.com/Rico1109/unitAI-sub006/pkg/errors"
)

// Context holds every long-lived dependency the MCP tool surface and the
// workflow runtime consult. One Context is built at process start and
// lives for the process's lifetime.
type Context struct {
	Config     *config.Config
	Breaker    *breaker.Registry
	Selector   *selector.Selector
	Gate       *permissions.Gate
	Dispatcher *backend.Dispatcher
	Engine     *workflow.Engine
	Workflows  map[string]*workflow.Definition

	Audit        *audit.Store
	Metrics      *metrics.Store
	TokenSavings *tokensavings.Store
	Activity     *activity.Store

	Logger  *slog.Logger
	DataDir string
}

// Options configures Context construction. A zero-valued Options yields
// the engine's built-in defaults.
type Options struct {
	// DataDir overrides where the four SQLite stores live (spec §6: a
	// process-relative "data/" directory by default). Empty uses "./data".
	DataDir string

	// Logger overrides the process logger. Nil builds one from
	// log.FromEnv().
	Logger *slog.Logger
}

const defaultDataDir = "data"

// New constructs a fully wired Context. Callers should Close it on
// shutdown to flush and release the SQLite stores.
func New(ctx context.Context, opts Options) (*Context, error) {
	logger := opts.Logger
	if logger == nil {
		logger = unitlog.New(unitlog.FromEnv())
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, unitaierrors.Wrap(err, "engine: create data dir")
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return nil, unitaierrors.Wrap(err, "engine: resolve config path")
	}
	cfg, err := config.LoadSettings(configPath)
	if err != nil {
		logger.Warn("falling back to default config", unitlog.Error(err))
		cfg = config.Default()
	}

	breakerRegistry := breaker.NewRegistry(logger)
	cfgView := config.NewView(cfg)
	backendSelector := selector.New(cfgView, breakerRegistry)
	gate := permissions.NewGate()

	auditStore, err := audit.Open(ctx, storePath(dataDir, "audit.sqlite"))
	if err != nil {
		return nil, unitaierrors.Wrap(err, "engine: open audit store")
	}
	metricsStore, err := metrics.Open(ctx, storePath(dataDir, "red-metrics.sqlite"), logger)
	if err != nil {
		auditStore.Close()
		return nil, unitaierrors.Wrap(err, "engine: open metrics store")
	}
	tokenSavingsStore, err := tokensavings.Open(ctx, storePath(dataDir, "token-metrics.sqlite"))
	if err != nil {
		auditStore.Close()
		metricsStore.Close()
		return nil, unitaierrors.Wrap(err, "engine: open token savings store")
	}
	activityStore, err := activity.Open(ctx, storePath(dataDir, "activity.sqlite"))
	if err != nil {
		auditStore.Close()
		metricsStore.Close()
		tokenSavingsStore.Close()
		return nil, unitaierrors.Wrap(err, "engine: open activity store")
	}

	dispatcher := backend.NewDispatcher(
		asBackendExecutors(executors.All()),
		breakerRegistry,
		gate,
		auditStore,
		metricsStore,
		allowedAttachmentRoots(),
		logger,
	)

	wfEngine := workflow.NewEngine(dispatcher, backendSelector, gate, auditStore, logger)

	return &Context{
		Config:       cfg,
		Breaker:      breakerRegistry,
		Selector:     backendSelector,
		Gate:         gate,
		Dispatcher:   dispatcher,
		Engine:       wfEngine,
		Workflows:    workflow.Registry(),
		Audit:        auditStore,
		Metrics:      metricsStore,
		TokenSavings: tokenSavingsStore,
		Activity:     activityStore,
		Logger:       logger,
		DataDir:      dataDir,
	}, nil
}

// Close releases every store's underlying SQLite connection. Safe to call
// once during shutdown.
func (c *Context) Close() error {
	var firstErr error
	for _, closer := range []func() error{c.Audit.Close, c.Metrics.Close, c.TokenSavings.Close, c.Activity.Close} {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func storePath(dataDir, file string) string {
	return filepath.Join(dataDir, file)
}

// allowedAttachmentRoots lists the filesystem roots a workflow step may
// attach files from. Spec §4.C scopes this to the current working
// directory; a future multi-root deployment would read this from config.
func allowedAttachmentRoots() []string {
	wd, err := os.Getwd()
	if err != nil {
		return nil
	}
	return []string{wd}
}

// asBackendExecutors re-keys the executors package's registry into the
// backend package's locally-declared Executor interface. Both interfaces
// share a method set by construction (executors.Executor satisfies
// backend.Executor structurally) but Go's map types are invariant in their
// value type, so the map itself must be rebuilt.
func asBackendExecutors(reg map[string]executors.Executor) map[string]backend.Executor {
	out := make(map[string]backend.Executor, len(reg))
	for name, ex := range reg {
		out[name] = ex
	}
	return out
}
