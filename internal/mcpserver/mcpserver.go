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

// Package mcpserver exposes the engine's per-backend ask-* tools, the
// workflow runtime, and the observability dashboards as MCP tools (spec
// §4.G). Register is the single entry point a host process calls; nothing
// here opens the stdio transport itself.
package mcpserver

import (
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Rico1109/unitAI-sub006/internal/engine"
	unitaierrors "github.com/Rico1109/unitAI-sub006/pkg/errors"
)

// Register adds every UnitAI tool to s, wiring each handler to eng. It is
// the only function this package exports for production use; cmd/unitai-mcp
// calls it once, then hands s to server.ServeStdio.
func Register(s *server.MCPServer, eng *engine.Context) {
	registerAskTools(s, eng)
	registerWorkflowTools(s, eng)
	registerDashboardTools(s, eng)
}

// errorResponse builds a tool-level error result (spec §7: "a short
// human-readable line plus the requestId").
func errorResponse(message, requestID string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message + " (requestId: " + requestID + ")")
}

// errorResponseFromErr builds a tool-level error result from a dispatch or
// workflow failure. When err carries a UserVisibleError, its UserMessage
// and Suggestion are favored over the raw Go error text (spec §7); any
// other error falls back to err.Error().
func errorResponseFromErr(err error, requestID string) *mcp.CallToolResult {
	var visible unitaierrors.UserVisibleError
	if unitaierrors.As(err, &visible) && visible.IsUserVisible() {
		message := visible.UserMessage()
		if suggestion := visible.Suggestion(); suggestion != "" {
			message += " (" + suggestion + ")"
		}
		return errorResponse(message, requestID)
	}
	return errorResponse(err.Error(), requestID)
}

// textResponse wraps text as a successful tool result.
func textResponse(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

// resolveRequestID returns the caller-supplied requestId or mints a fresh
// one, per spec §3: "requestId (unique per call)".
func resolveRequestID(raw string) string {
	if raw != "" {
		return raw
	}
	return uuid.NewString()
}
