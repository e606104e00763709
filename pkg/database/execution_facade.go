// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/wishub-ai/skillhub/pkg/database/model"
)

// ExecutionFacadeInterface defines the interface for execution records
type ExecutionFacadeInterface interface {
	Create(ctx context.Context, execution *model.SkillExecution) error
	Update(ctx context.Context, execution *model.SkillExecution) error
	GetByExecutionID(ctx context.Context, executionID string) (*model.SkillExecution, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountByState(ctx context.Context, state string) (int64, error)
}

// ExecutionFacade implements ExecutionFacadeInterface
type ExecutionFacade struct {
	db *gorm.DB
}

// NewExecutionFacade creates a new ExecutionFacade
func NewExecutionFacade(db *gorm.DB) *ExecutionFacade {
	return &ExecutionFacade{db: db}
}

// Create creates a new execution row
func (f *ExecutionFacade) Create(ctx context.Context, execution *model.SkillExecution) error {
	return f.db.WithContext(ctx).Create(execution).Error
}

// Update saves the execution row
func (f *ExecutionFacade) Update(ctx context.Context, execution *model.SkillExecution) error {
	execution.UpdatedAt = time.Now()
	return f.db.WithContext(ctx).Save(execution).Error
}

// GetByExecutionID retrieves an execution by its public identifier
func (f *ExecutionFacade) GetByExecutionID(ctx context.Context, executionID string) (*model.SkillExecution, error) {
	var execution model.SkillExecution
	err := f.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		First(&execution).Error
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

// DeleteTerminalBefore sweeps terminal rows whose completion predates cutoff
func (f *ExecutionFacade) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := f.db.WithContext(ctx).
		Where("state IN ?", []string{
			model.ExecutionStateCompleted,
			model.ExecutionStateFailed,
			model.ExecutionStateTimedOut,
			model.ExecutionStateCancelled,
		}).
		Where("completed_at < ?", cutoff).
		Delete(&model.SkillExecution{})
	return result.RowsAffected, result.Error
}

// CountByState counts executions currently in the given state
func (f *ExecutionFacade) CountByState(ctx context.Context, state string) (int64, error) {
	var count int64
	err := f.db.WithContext(ctx).Model(&model.SkillExecution{}).
		Where("state = ?", state).
		Count(&count).Error
	return count, err
}
