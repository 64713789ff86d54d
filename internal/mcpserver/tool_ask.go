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

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Rico1109/unitAI-sub006/internal/backend"
	"github.com/Rico1109/unitAI-sub006/internal/engine"
	"github.com/Rico1109/unitAI-sub006/internal/permissions"
)

// askBackends lists the five thin ask-* tools (spec §4.G), one per backend
// CLI in §6's argv table.
var askBackends = []struct {
	name        string
	description string
}{
	{"ask-gemini", "Ask the Gemini CLI backend a single prompt."},
	{"ask-cursor", "Ask the Cursor agent CLI backend a single prompt."},
	{"ask-droid", "Ask the Droid exec CLI backend a single prompt."},
	{"ask-qwen", "Ask the Qwen CLI backend a single prompt."},
	{"ask-rovodev", "Ask the Rovodev CLI backend (via acli) a single prompt."},
}

// askInputSchema is shared by all five ask-* tools. Each executor's
// BuildArgv reads only the fields its CLI understands (spec §6); passing an
// irrelevant field is harmless.
var askInputSchema = mcp.ToolInputSchema{
	Type: "object",
	Properties: map[string]interface{}{
		"prompt": map[string]interface{}{
			"type":        "string",
			"description": "The prompt to send to the backend.",
		},
		"model": map[string]interface{}{
			"type":        "string",
			"description": "Model override (gemini, qwen).",
		},
		"files": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Paths to attach, validated against the allowed workspace roots.",
		},
		"sandbox": map[string]interface{}{
			"type":        "boolean",
			"description": "Run in sandboxed mode (gemini -s, qwen -s).",
			"default":     false,
		},
		"autoApprove": map[string]interface{}{
			"type":        "boolean",
			"description": "Auto-approve backend actions (qwen -y). Gated by force-flags.",
			"default":     false,
		},
		"auto": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"low", "medium", "high"},
			"description": "Droid's autonomy flag (--auto). 'high' is gated by force-flags.",
		},
		"sessionId": map[string]interface{}{
			"type":        "string",
			"description": "Droid session ID to resume (--session-id).",
		},
		"skipPermissionsUnsafe": map[string]interface{}{
			"type":        "boolean",
			"description": "Skip Droid's own permission prompts. Requires UNITAI_ALLOW_PERMISSION_BYPASS.",
			"default":     false,
		},
		"cwd": map[string]interface{}{
			"type":        "string",
			"description": "Working directory for the backend subprocess (Droid).",
		},
		"trustedSource": map[string]interface{}{
			"type":        "boolean",
			"description": "Skip prompt sanitization. Only for internally-composed prompts.",
			"default":     false,
		},
		"autonomyLevel": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"read-only", "low", "medium", "high"},
			"description": "Autonomy level this call is gated at.",
			"default":     "low",
		},
		"requestId": map[string]interface{}{
			"type":        "string",
			"description": "Correlation ID to stamp on the resulting audit/metric records. Generated if omitted.",
		},
	},
	Required: []string{"prompt"},
}

func registerAskTools(s *server.MCPServer, eng *engine.Context) {
	for _, b := range askBackends {
		backendName := b.name[len("ask-"):]
		s.AddTool(mcp.Tool{
			Name:        b.name,
			Description: b.description,
			InputSchema: askInputSchema,
		}, makeAskHandler(eng, backendName))
	}
}

func makeAskHandler(eng *engine.Context, backendName string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestID := resolveRequestID(request.GetString("requestId", ""))

		prompt, err := request.RequireString("prompt")
		if err != nil {
			return errorResponse("missing or invalid 'prompt' argument", requestID), nil
		}

		autonomy := permissions.AutonomyLevel(request.GetString("autonomyLevel", string(permissions.LevelLow)))

		req := backend.ExecRequest{
			RequestID:             requestID,
			Prompt:                prompt,
			Model:                 request.GetString("model", ""),
			Sandbox:               request.GetBool("sandbox", false),
			Attachments:           stringSliceArg(request, "files"),
			AutoApprove:           request.GetBool("autoApprove", false),
			Auto:                  request.GetString("auto", ""),
			SessionID:             request.GetString("sessionId", ""),
			SkipPermissionsUnsafe: request.GetBool("skipPermissionsUnsafe", false),
			Cwd:                   request.GetString("cwd", ""),
			TrustedSource:         request.GetBool("trustedSource", false),
			AutonomyLevel:         autonomy,
			OnProgress:            backend.NoopProgressSink,
		}

		result, dispatchErr := eng.Dispatcher.Dispatch(ctx, backendName, req)
		success := dispatchErr == nil && result != nil && result.Success
		if err := eng.Activity.RecordInvocation(ctx, "ask-"+backendName, "", success); err != nil {
			eng.Logger.Warn("activity record failed", "tool", "ask-"+backendName, "error", err)
		}

		if dispatchErr != nil {
			return errorResponseFromErr(dispatchErr, requestID), nil
		}
		if !result.Success {
			return errorResponse(result.Stderr, requestID), nil
		}
		return textResponse(result.Output), nil
	}
}
