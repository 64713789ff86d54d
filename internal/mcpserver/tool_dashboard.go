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

package mcpserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Rico1109/unitAI-sub006/internal/engine"
	"github.com/Rico1109/unitAI-sub006/internal/observability/metrics"
)

func registerDashboardTools(s *server.MCPServer, eng *engine.Context) {
	s.AddTool(mcp.Tool{
		Name:        "activity-summary",
		Description: "Return the user activity summary: top tools/workflows and per-hour/per-day call distributions.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"days": map[string]interface{}{
					"type":        "integer",
					"description": "Window size in days (default 7).",
					"default":     7,
				},
			},
		},
	}, makeActivitySummaryHandler(eng))

	s.AddTool(mcp.Tool{
		Name:        "metrics-dashboard",
		Description: "Return RED stats (rate/error-rate/p50/p95/p99), error breakdown, circuit-breaker states, and token-savings totals.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"component": map[string]interface{}{
					"type":        "string",
					"description": "Filter to one component (e.g. 'backend').",
				},
				"backend": map[string]interface{}{
					"type":        "string",
					"description": "Filter to one backend name.",
				},
			},
		},
	}, makeMetricsDashboardHandler(eng))
}

func makeActivitySummaryHandler(eng *engine.Context) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestID := resolveRequestID(request.GetString("requestId", ""))
		days := intArg(request, "days", 7)

		summary, err := eng.Activity.GetActivitySummary(ctx, days)
		if err != nil {
			return errorResponse(err.Error(), requestID), nil
		}

		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return errorResponse(err.Error(), requestID), nil
		}
		return textResponse(string(out)), nil
	}
}

// dashboardReport is the combined RED/error/breaker/token-savings view
// metrics-dashboard returns. Spec §4.E names each aggregate separately;
// bundling them into one tool result avoids four near-identical tool
// definitions for what is conceptually a single operator dashboard.
type dashboardReport struct {
	RED            metrics.REDStats           `json:"red"`
	ErrorBreakdown []metrics.ErrorBreakdownRow `json:"errorBreakdown"`
	Breakers       []breakerStat               `json:"breakers"`
	TokenSavings   tokenSavingsReport          `json:"tokenSavings"`
}

type breakerStat struct {
	Backend             string `json:"backend"`
	State               string `json:"state"`
	ConsecutiveFailures uint32 `json:"consecutiveFailures"`
	Requests            uint32 `json:"requests"`
}

type tokenSavingsReport struct {
	SampleCount           int64 `json:"sampleCount"`
	TotalEstimatedSavings int64 `json:"totalEstimatedSavings"`
	TotalActualAvoided    int64 `json:"totalActualAvoided"`
	SuggestionsFollowed   int64 `json:"suggestionsFollowed"`
}

func makeMetricsDashboardHandler(eng *engine.Context) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestID := resolveRequestID(request.GetString("requestId", ""))

		query := metrics.Query{
			Component: request.GetString("component", ""),
			Backend:   request.GetString("backend", ""),
		}

		redStats, err := eng.Metrics.GetREDStats(ctx, query)
		if err != nil {
			return errorResponse(err.Error(), requestID), nil
		}
		breakdown, err := eng.Metrics.GetErrorBreakdown(ctx, query)
		if err != nil {
			return errorResponse(err.Error(), requestID), nil
		}
		totals, err := eng.TokenSavings.Totals(ctx, time.Time{}, time.Time{})
		if err != nil {
			return errorResponse(err.Error(), requestID), nil
		}

		breakerStats := eng.Breaker.GetAllStats()
		breakers := make([]breakerStat, 0, len(breakerStats))
		for _, b := range breakerStats {
			breakers = append(breakers, breakerStat{
				Backend:             b.Backend,
				State:               b.State,
				ConsecutiveFailures: b.ConsecutiveFailures,
				Requests:            b.Requests,
			})
		}

		report := dashboardReport{
			RED:            redStats,
			ErrorBreakdown: breakdown,
			Breakers:       breakers,
			TokenSavings: tokenSavingsReport{
				SampleCount:           totals.SampleCount,
				TotalEstimatedSavings: totals.TotalEstimatedSavings,
				TotalActualAvoided:    totals.TotalActualAvoided,
				SuggestionsFollowed:   totals.SuggestionsFollowed,
			},
		}

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return errorResponse(err.Error(), requestID), nil
		}
		return textResponse(string(out)), nil
	}
}
