// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONDocumentRoundTrip(t *testing.T) {
	doc := JSONDocument{"retries": float64(3), "flags": []interface{}{"a", "b"}}

	value, err := doc.Value()
	require.NoError(t, err)

	var scanned JSONDocument
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, doc, scanned)
}

func TestJSONDocumentNilValue(t *testing.T) {
	var doc JSONDocument
	value, err := doc.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", value)

	var scanned JSONDocument
	require.NoError(t, scanned.Scan(nil))
	assert.NotNil(t, scanned)
	assert.Len(t, scanned, 0)
}

func TestSchemaDocumentIsEmpty(t *testing.T) {
	assert.True(t, SchemaDocument(nil).IsEmpty())
	assert.True(t, SchemaDocument{}.IsEmpty())
	assert.False(t, SchemaDocument{"type": "object"}.IsEmpty())
}

func TestSkillTagsScanRejectsUnknownType(t *testing.T) {
	var tags SkillTags
	assert.Error(t, tags.Scan(42))
}

func TestSuccessRate(t *testing.T) {
	s := &Skill{}
	assert.Equal(t, 0.0, s.SuccessRate())

	s.TotalCalls = 4
	s.SuccessCount = 3
	assert.InDelta(t, 0.75, s.SuccessRate(), 1e-9)
}

func TestIsSupportedLanguage(t *testing.T) {
	for _, lang := range SupportedLanguages() {
		assert.True(t, IsSupportedLanguage(lang), lang)
	}
	assert.False(t, IsSupportedLanguage("ruby"))
	assert.False(t, IsSupportedLanguage(""))
}

func TestIsTerminalState(t *testing.T) {
	assert.False(t, IsTerminalState(ExecutionStatePending))
	assert.False(t, IsTerminalState(ExecutionStateRunning))
	assert.True(t, IsTerminalState(ExecutionStateCompleted))
	assert.True(t, IsTerminalState(ExecutionStateFailed))
	assert.True(t, IsTerminalState(ExecutionStateTimedOut))
	assert.True(t, IsTerminalState(ExecutionStateCancelled))
}
