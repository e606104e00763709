// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package model

import "time"

const TableNameSkillExecutions = "skill_executions"

// SkillExecution persists one invocation record. The scheduler keeps the
// live record in memory; rows are written at creation and on terminal
// transitions so recently-terminal executions survive queries.
type SkillExecution struct {
	ID           int64  `gorm:"column:id;primaryKey;autoIncrement:true" json:"-"`
	ExecutionID  string `gorm:"column:execution_id;not null;uniqueIndex" json:"execution_id"`
	SkillID      string `gorm:"column:skill_id;not null;index" json:"skill_id"`
	SkillVersion string `gorm:"column:skill_version;not null" json:"skill_version"`
	State        string `gorm:"column:state;not null;index" json:"state"`

	Inputs JSONDocument `gorm:"column:inputs;default:{}" json:"inputs"`
	Result JSONDocument `gorm:"column:result;default:{}" json:"result,omitempty"`
	Error  JSONDocument `gorm:"column:error;default:{}" json:"error,omitempty"`

	StartedAt      *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ElapsedSeconds float64    `gorm:"column:elapsed_seconds;default:0" json:"elapsed_seconds"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name
func (*SkillExecution) TableName() string {
	return TableNameSkillExecutions
}

// Execution states
const (
	ExecutionStatePending   = "pending"
	ExecutionStateRunning   = "running"
	ExecutionStateCompleted = "completed"
	ExecutionStateFailed    = "failed"
	ExecutionStateTimedOut  = "timed_out"
	ExecutionStateCancelled = "cancelled"
)

// IsTerminalState reports whether state admits no further transitions.
func IsTerminalState(state string) bool {
	switch state {
	case ExecutionStateCompleted, ExecutionStateFailed, ExecutionStateTimedOut, ExecutionStateCancelled:
		return true
	default:
		return false
	}
}
