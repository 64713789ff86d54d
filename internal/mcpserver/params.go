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

import "github.com/mark3labs/mcp-go/mcp"

// stringSliceArg pulls an optional []string argument out of a raw MCP
// argument map, tolerating both already-typed []string (tests construct
// requests this way) and the []interface{} the JSON-RPC layer decodes.
func stringSliceArg(request mcp.CallToolRequest, key string) []string {
	args := request.GetArguments()
	if args == nil {
		return nil
	}
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// intArg pulls an optional integer argument out of the raw map, tolerating
// the float64 the JSON-RPC layer decodes numbers into.
func intArg(request mcp.CallToolRequest, key string, def int) int {
	args := request.GetArguments()
	if args == nil {
		return def
	}
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// objectArg pulls an optional object argument out of the raw map, used by
// smart-workflows' free-form params and yielding an empty (not nil) map so
// callers can range over it unconditionally.
func objectArg(request mcp.CallToolRequest, key string) map[string]any {
	args := request.GetArguments()
	if args == nil {
		return map[string]any{}
	}
	switch v := args[key].(type) {
	case map[string]any:
		return v
	default:
		return map[string]any{}
	}
}
