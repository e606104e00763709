// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package model

import "time"

const TableNameWorkflowExecutions = "workflow_executions"

// WorkflowExecution persists one workflow run: the definition snapshot,
// per-node results, and the failing node when the run stopped early.
type WorkflowExecution struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement:true" json:"-"`
	ExecutionID string `gorm:"column:execution_id;not null;uniqueIndex" json:"execution_id"`
	WorkflowID  string `gorm:"column:workflow_id;not null;index" json:"workflow_id"`
	State       string `gorm:"column:state;not null;index" json:"state"`

	Definition   JSONDocument `gorm:"column:definition;default:{}" json:"definition"`
	GlobalInputs JSONDocument `gorm:"column:global_inputs;default:{}" json:"global_inputs"`
	NodeResults  JSONDocument `gorm:"column:node_results;default:{}" json:"node_results"`
	NodeErrors   JSONDocument `gorm:"column:node_errors;default:{}" json:"node_errors,omitempty"`
	FailedNode   string       `gorm:"column:failed_node" json:"failed_node,omitempty"`

	StartedAt      *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ElapsedSeconds float64    `gorm:"column:elapsed_seconds;default:0" json:"elapsed_seconds"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name
func (*WorkflowExecution) TableName() string {
	return TableNameWorkflowExecutions
}
