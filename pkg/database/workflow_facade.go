// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/wishub-ai/skillhub/pkg/database/model"
)

// WorkflowFacadeInterface defines the interface for workflow execution records
type WorkflowFacadeInterface interface {
	Create(ctx context.Context, execution *model.WorkflowExecution) error
	Update(ctx context.Context, execution *model.WorkflowExecution) error
	GetByExecutionID(ctx context.Context, executionID string) (*model.WorkflowExecution, error)
}

// WorkflowFacade implements WorkflowFacadeInterface
type WorkflowFacade struct {
	db *gorm.DB
}

// NewWorkflowFacade creates a new WorkflowFacade
func NewWorkflowFacade(db *gorm.DB) *WorkflowFacade {
	return &WorkflowFacade{db: db}
}

// Create creates a new workflow execution row
func (f *WorkflowFacade) Create(ctx context.Context, execution *model.WorkflowExecution) error {
	return f.db.WithContext(ctx).Create(execution).Error
}

// Update saves the workflow execution row
func (f *WorkflowFacade) Update(ctx context.Context, execution *model.WorkflowExecution) error {
	execution.UpdatedAt = time.Now()
	return f.db.WithContext(ctx).Save(execution).Error
}

// GetByExecutionID retrieves a workflow execution by its public identifier
func (f *WorkflowFacade) GetByExecutionID(ctx context.Context, executionID string) (*model.WorkflowExecution, error) {
	var execution model.WorkflowExecution
	err := f.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		First(&execution).Error
	if err != nil {
		return nil, err
	}
	return &execution, nil
}
