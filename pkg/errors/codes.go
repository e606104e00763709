// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package errors

import "net/http"

// Registration errors
const (
	CodeDuplicateSkill   = "SKILL_REG_001"
	CodeValidationFailed = "SKILL_REG_002"
	CodeInvalidCode      = "SKILL_REG_003"
	CodeRegistryInternal = "SKILL_REG_999"
)

// Invocation errors
const (
	CodeSkillNotFound      = "SKILL_INV_001"
	CodeInvalidInputs      = "SKILL_INV_002"
	CodeExecutionTimeout   = "SKILL_INV_003"
	CodeExecutionFailed    = "SKILL_INV_004"
	CodeInvocationInternal = "SKILL_INV_999"
)

// Orchestration errors
const (
	CodeInvalidWorkflow       = "SKILL_ORC_001"
	CodeCyclicWorkflow        = "SKILL_ORC_002"
	CodeOrchestrationInternal = "SKILL_ORC_999"
)

var kinds = map[string]string{
	CodeDuplicateSkill:        "duplicate_skill",
	CodeValidationFailed:      "validation_failed",
	CodeInvalidCode:           "invalid_code",
	CodeRegistryInternal:      "internal_error",
	CodeSkillNotFound:         "skill_not_found",
	CodeInvalidInputs:         "invalid_inputs",
	CodeExecutionTimeout:      "execution_timeout",
	CodeExecutionFailed:       "execution_failed",
	CodeInvocationInternal:    "internal_error",
	CodeInvalidWorkflow:       "invalid_workflow",
	CodeCyclicWorkflow:        "cyclic_workflow",
	CodeOrchestrationInternal: "internal_error",
}

var httpStatuses = map[string]int{
	CodeDuplicateSkill:        http.StatusConflict,
	CodeValidationFailed:      http.StatusUnprocessableEntity,
	CodeInvalidCode:           http.StatusBadRequest,
	CodeRegistryInternal:      http.StatusInternalServerError,
	CodeSkillNotFound:         http.StatusNotFound,
	CodeInvalidInputs:         http.StatusUnprocessableEntity,
	CodeExecutionTimeout:      http.StatusGatewayTimeout,
	CodeExecutionFailed:       http.StatusInternalServerError,
	CodeInvocationInternal:    http.StatusInternalServerError,
	CodeInvalidWorkflow:       http.StatusUnprocessableEntity,
	CodeCyclicWorkflow:        http.StatusBadRequest,
	CodeOrchestrationInternal: http.StatusInternalServerError,
}

// KindOf returns the short machine kind for a code, e.g. "duplicate_skill".
func KindOf(code string) string {
	if kind, ok := kinds[code]; ok {
		return kind
	}
	return "internal_error"
}

// HTTPStatus maps an error code to its HTTP status; unknown codes map to 500.
func HTTPStatus(code string) int {
	if status, ok := httpStatuses[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
