// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorChaining(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := NewError().WithCode(CodeRegistryInternal).WithMessagef("persist skill %s", "demo").WithError(inner)

	assert.Equal(t, CodeRegistryInternal, err.Code)
	assert.Equal(t, "persist skill demo", err.Message)
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, stderrors.Is(err, inner))
}

func TestWrapError(t *testing.T) {
	inner := fmt.Errorf("boom")
	err := WrapError(inner, "sandbox launch", CodeExecutionFailed)

	assert.Equal(t, CodeExecutionFailed, GetCode(err))
	assert.Equal(t, inner, err.InnerError)
	assert.NotEmpty(t, err.Stack)
}

func TestGetCodeNonServiceError(t *testing.T) {
	assert.Equal(t, "", GetCode(fmt.Errorf("plain")))
	assert.Equal(t, "", GetCode(nil))
}

func TestHTTPStatusTable(t *testing.T) {
	cases := map[string]int{
		CodeDuplicateSkill:        http.StatusConflict,
		CodeValidationFailed:      http.StatusUnprocessableEntity,
		CodeInvalidCode:           http.StatusBadRequest,
		CodeRegistryInternal:      http.StatusInternalServerError,
		CodeSkillNotFound:         http.StatusNotFound,
		CodeInvalidInputs:         http.StatusUnprocessableEntity,
		CodeExecutionTimeout:      http.StatusGatewayTimeout,
		CodeExecutionFailed:       http.StatusInternalServerError,
		CodeInvalidWorkflow:       http.StatusUnprocessableEntity,
		CodeCyclicWorkflow:        http.StatusBadRequest,
		CodeOrchestrationInternal: http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), code)
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus("UNKNOWN"))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "duplicate_skill", KindOf(CodeDuplicateSkill))
	assert.Equal(t, "cyclic_workflow", KindOf(CodeCyclicWorkflow))
	assert.Equal(t, "internal_error", KindOf("UNKNOWN"))
}
