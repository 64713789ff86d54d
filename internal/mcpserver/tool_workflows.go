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
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Rico1109/unitAI-sub006/internal/engine"
)

func registerWorkflowTools(s *server.MCPServer, eng *engine.Context) {
	s.AddTool(mcp.Tool{
		Name:        "smart-workflows",
		Description: "Run one of the ten named multi-backend workflows and return its rendered markdown report.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"workflow": map[string]interface{}{
					"type":        "string",
					"description": "Workflow name. See list-workflows for the full set.",
				},
				"params": map[string]interface{}{
					"type":        "object",
					"description": "Workflow-specific parameters; see describe-workflow for the schema.",
				},
				"autonomyLevel": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"read-only", "low", "medium", "high"},
					"description": "Overrides the workflow's default autonomy level.",
				},
				"requestId": map[string]interface{}{
					"type":        "string",
					"description": "Correlation ID. Generated if omitted.",
				},
			},
			Required: []string{"workflow"},
		},
	}, makeSmartWorkflowsHandler(eng))

	s.AddTool(mcp.Tool{
		Name:        "list-workflows",
		Description: "List the ten named workflows with their default autonomy level.",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}, makeListWorkflowsHandler(eng))

	s.AddTool(mcp.Tool{
		Name:        "describe-workflow",
		Description: "Return one workflow's parameter schema and default autonomy level.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"workflow": map[string]interface{}{
					"type":        "string",
					"description": "Workflow name.",
				},
			},
			Required: []string{"workflow"},
		},
	}, makeDescribeWorkflowHandler(eng))
}

func makeSmartWorkflowsHandler(eng *engine.Context) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestID := resolveRequestID(request.GetString("requestId", ""))

		name, err := request.RequireString("workflow")
		if err != nil {
			return errorResponse("missing or invalid 'workflow' argument", requestID), nil
		}

		def, ok := eng.Workflows[name]
		if !ok {
			return errorResponse(fmt.Sprintf("unknown workflow %q", name), requestID), nil
		}

		params := objectArg(request, "params")
		autonomyOverride := request.GetString("autonomyLevel", "")

		if err := eng.Activity.RecordInvocation(ctx, "smart-workflows", name, true); err != nil {
			eng.Logger.Warn("activity record failed", "tool", "smart-workflows", "error", err)
		}

		result, err := eng.Engine.Run(ctx, def, params, autonomyOverride, requestID)
		if err != nil {
			return errorResponseFromErr(err, requestID), nil
		}
		return textResponse(result.Markdown), nil
	}
}

func makeListWorkflowsHandler(eng *engine.Context) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names := make([]string, 0, len(eng.Workflows))
		for name := range eng.Workflows {
			names = append(names, name)
		}
		sort.Strings(names)

		type entry struct {
			Name            string `json:"name"`
			DefaultAutonomy string `json:"defaultAutonomy"`
		}
		listing := make([]entry, 0, len(names))
		for _, name := range names {
			def := eng.Workflows[name]
			listing = append(listing, entry{Name: name, DefaultAutonomy: string(def.DefaultAutonomy)})
		}

		out, err := json.MarshalIndent(listing, "", "  ")
		if err != nil {
			return errorResponse(err.Error(), ""), nil
		}
		return textResponse(string(out)), nil
	}
}

func makeDescribeWorkflowHandler(eng *engine.Context) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestID := resolveRequestID(request.GetString("requestId", ""))

		name, err := request.RequireString("workflow")
		if err != nil {
			return errorResponse("missing or invalid 'workflow' argument", requestID), nil
		}

		def, ok := eng.Workflows[name]
		if !ok {
			return errorResponse(fmt.Sprintf("unknown workflow %q", name), requestID), nil
		}

		out, err := json.MarshalIndent(map[string]any{
			"name":            def.Name,
			"defaultAutonomy": string(def.DefaultAutonomy),
			"deadlineSeconds": def.Deadline.Seconds(),
			"paramSchema":     def.ParamSchema,
		}, "", "  ")
		if err != nil {
			return errorResponse(err.Error(), requestID), nil
		}
		return textResponse(string(out)), nil
	}
}
