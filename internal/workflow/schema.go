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

package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	unitaierrors "github.com/Rico1109/unitAI-sub006/pkg/errors"
)

// compiledSchemas caches one compiled *jsonschema.Schema per workflow name,
// compiled once at first use (spec §4.F's "[ADD] Parameter schemas").
var (
	compileMu sync.Mutex
	compiled  = make(map[string]*jsonschema.Schema)
)

func compileSchema(name string, raw map[string]any) (*jsonschema.Schema, error) {
	compileMu.Lock()
	defer compileMu.Unlock()

	if s, ok := compiled[name]; ok {
		return s, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("workflow: marshal schema for %q: %w", name, err)
	}

	url := "mem://" + name + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("workflow: add schema resource for %q: %w", name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("workflow: compile schema for %q: %w", name, err)
	}

	compiled[name] = schema
	return schema, nil
}

// ValidateParams validates params against def's compiled JSON Schema,
// returning a ValidationError before any step runs (spec §4.F step 1).
func ValidateParams(def *Definition, params map[string]any) error {
	if def.ParamSchema == nil {
		return nil
	}

	schema, err := compileSchema(def.Name, def.ParamSchema)
	if err != nil {
		return err
	}

	// jsonschema validates against decoded JSON values (map[string]any,
	// []any, float64, ...); re-decoding through json keeps params in that
	// canonical shape regardless of what the MCP layer handed us.
	data, err := json.Marshal(params)
	if err != nil {
		return &unitaierrors.ValidationError{Message: fmt.Sprintf("encode params: %v", err)}
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return &unitaierrors.ValidationError{Message: fmt.Sprintf("decode params: %v", err)}
	}

	if err := schema.Validate(decoded); err != nil {
		return &unitaierrors.ValidationError{Message: err.Error()}
	}
	return nil
}
