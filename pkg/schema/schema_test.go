// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		doc     map[string]interface{}
		wantErr bool
	}{
		{
			name: "valid object schema",
			doc: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"value": map[string]interface{}{"type": "number"},
				},
				"required": []interface{}{"value"},
			},
		},
		{
			name: "empty schema is permissive",
			doc:  map[string]interface{}{},
		},
		{
			name: "nil schema is permissive",
			doc:  nil,
		},
		{
			name:    "invalid type keyword",
			doc:     map[string]interface{}{"type": "not-a-type"},
			wantErr: true,
		},
		{
			name:    "required must be an array",
			doc:     map[string]interface{}{"required": "value"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := Compile(tt.doc)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, compiled)
		})
	}
}

func TestValidate(t *testing.T) {
	requireValue := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"value"},
		"properties": map[string]interface{}{
			"value": map[string]interface{}{"type": "number"},
		},
	}

	tests := []struct {
		name           string
		document       interface{}
		schema         map[string]interface{}
		wantViolations int
	}{
		{
			name:     "document passes",
			document: map[string]interface{}{"value": float64(5)},
			schema:   requireValue,
		},
		{
			name:           "missing required field",
			document:       map[string]interface{}{},
			schema:         requireValue,
			wantViolations: 1,
		},
		{
			name:           "wrong type",
			document:       map[string]interface{}{"value": "five"},
			schema:         requireValue,
			wantViolations: 1,
		},
		{
			name:     "empty schema passes everything",
			document: map[string]interface{}{"anything": "goes"},
			schema:   map[string]interface{}{},
		},
		{
			name:     "nil document validates as empty object",
			document: nil,
			schema:   map[string]interface{}{"type": "object"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations, err := Validate(tt.document, tt.schema)
			require.NoError(t, err)
			assert.Len(t, violations, tt.wantViolations)
		})
	}
}

func TestValidateViolationDetail(t *testing.T) {
	violations, err := Validate(
		map[string]interface{}{"count": "ten"},
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"count": map[string]interface{}{"type": "integer"},
			},
		},
	)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "/count", violations[0].Pointer)
	assert.Equal(t, "type", violations[0].Keyword)
	assert.NotEmpty(t, violations[0].Message)
}

func TestValidateStructDocument(t *testing.T) {
	type payload struct {
		Value int `json:"value"`
	}
	violations, err := Validate(payload{Value: 3}, map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"value"},
	})
	require.NoError(t, err)
	assert.Empty(t, violations)
}
