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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateParams_NilSchemaAlwaysPasses(t *testing.T) {
	def := &Definition{Name: "no-schema"}
	assert.NoError(t, ValidateParams(def, map[string]any{"anything": 1}))
}

func TestValidateParams_RequiredFieldMissingFails(t *testing.T) {
	def := &Definition{
		Name: "test-required",
		ParamSchema: objectSchema([]string{"topic"}, map[string]any{
			"topic": map[string]any{"type": "string"},
		}),
	}
	err := ValidateParams(def, map[string]any{})
	assert.Error(t, err)
}

func TestValidateParams_ValidParamsPass(t *testing.T) {
	def := &Definition{
		Name: "test-valid",
		ParamSchema: objectSchema([]string{"topic"}, map[string]any{
			"topic": map[string]any{"type": "string"},
		}),
	}
	assert.NoError(t, ValidateParams(def, map[string]any{"topic": "queues"}))
}

func TestValidateParams_CachesCompiledSchemaPerName(t *testing.T) {
	def := &Definition{
		Name: "test-cache",
		ParamSchema: objectSchema([]string{"topic"}, map[string]any{
			"topic": map[string]any{"type": "string"},
		}),
	}
	require := assert.New(t)
	require.NoError(ValidateParams(def, map[string]any{"topic": "a"}))
	require.NoError(ValidateParams(def, map[string]any{"topic": "b"}))
}
