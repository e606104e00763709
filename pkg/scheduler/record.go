// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wishub-ai/skillhub/pkg/database/model"
)

// ErrorInfo describes a terminal failure on an execution record.
type ErrorInfo struct {
	Code   string `json:"code"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Snapshot is a point-in-time copy of an execution record, safe to
// serialize after the record keeps mutating.
type Snapshot struct {
	ExecutionID    string                 `json:"execution_id"`
	SkillID        string                 `json:"skill_id"`
	SkillVersion   string                 `json:"skill_version"`
	State          string                 `json:"state"`
	Inputs         map[string]interface{} `json:"inputs"`
	Result         interface{}            `json:"result,omitempty"`
	Error          *ErrorInfo             `json:"error,omitempty"`
	StartedAt      *time.Time             `json:"started_at,omitempty"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	ElapsedSeconds float64                `json:"elapsed_seconds"`
}

// Record is one live execution. The owning worker is the only writer
// after creation; readers take snapshots under the record lock.
type Record struct {
	mu sync.Mutex

	executionID  string
	skillID      string
	skillVersion string
	state        string
	inputs       map[string]interface{}
	result       interface{}
	errInfo      *ErrorInfo
	startedAt    *time.Time
	completedAt  *time.Time
	elapsed      float64

	cancel context.CancelFunc
	done   chan struct{}
}

// WorkflowExecutionIDPrefix distinguishes workflow runs from single
// skill executions.
const WorkflowExecutionIDPrefix = "exec_wf_"

// NewExecutionID generates an opaque execution identifier.
func NewExecutionID() string {
	return "exec_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewWorkflowExecutionID generates an identifier for a workflow run.
func NewWorkflowExecutionID() string {
	return WorkflowExecutionIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func newRecord(executionID, skillID, skillVersion string, inputs map[string]interface{}) *Record {
	return &Record{
		executionID:  executionID,
		skillID:      skillID,
		skillVersion: skillVersion,
		state:        model.ExecutionStatePending,
		inputs:       inputs,
		done:         make(chan struct{}),
	}
}

// ExecutionID returns the public identifier
func (r *Record) ExecutionID() string {
	return r.executionID
}

// Done is closed once the record reaches a terminal state.
func (r *Record) Done() <-chan struct{} {
	return r.done
}

// Snapshot copies the record under its lock.
func (r *Record) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		ExecutionID:    r.executionID,
		SkillID:        r.skillID,
		SkillVersion:   r.skillVersion,
		State:          r.state,
		Inputs:         r.inputs,
		Result:         r.result,
		Error:          r.errInfo,
		StartedAt:      r.startedAt,
		CompletedAt:    r.completedAt,
		ElapsedSeconds: r.elapsed,
	}
}

// markRunning transitions pending -> running. Returns false if the
// record already left pending (e.g. cancelled before a worker claimed it).
func (r *Record) markRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != model.ExecutionStatePending {
		return false
	}
	now := time.Now()
	r.state = model.ExecutionStateRunning
	r.startedAt = &now
	return true
}

// markTerminal transitions to a terminal state. Terminal states are
// sticky: a second transition is a no-op and returns false.
func (r *Record) markTerminal(state string, result interface{}, errInfo *ErrorInfo) bool {
	if !model.IsTerminalState(state) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if model.IsTerminalState(r.state) {
		return false
	}
	now := time.Now()
	r.state = state
	r.result = result
	r.errInfo = errInfo
	r.completedAt = &now
	if r.startedAt != nil {
		r.elapsed = now.Sub(*r.startedAt).Seconds()
	}
	close(r.done)
	return true
}

// setCancel installs the cancel function for the running sandbox job
func (r *Record) setCancel(cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancel = cancel
}

// requestCancel triggers the sandbox-kill path if the job is in flight.
func (r *Record) requestCancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// row converts the record to its persistence model.
func (r *Record) row() *model.SkillExecution {
	snap := r.Snapshot()
	row := &model.SkillExecution{
		ExecutionID:    snap.ExecutionID,
		SkillID:        snap.SkillID,
		SkillVersion:   snap.SkillVersion,
		State:          snap.State,
		Inputs:         snap.Inputs,
		StartedAt:      snap.StartedAt,
		CompletedAt:    snap.CompletedAt,
		ElapsedSeconds: snap.ElapsedSeconds,
	}
	if snap.Result != nil {
		row.Result = resultDocument(snap.Result)
	}
	if snap.Error != nil {
		row.Error = model.JSONDocument{
			"code":   snap.Error.Code,
			"kind":   snap.Error.Kind,
			"detail": snap.Error.Detail,
		}
	}
	return row
}

// resultDocument shapes an arbitrary JSON result into a JSONB object.
// Non-object results are wrapped so the column stays an object.
func resultDocument(result interface{}) model.JSONDocument {
	if doc, ok := result.(map[string]interface{}); ok {
		return model.JSONDocument(doc)
	}
	return model.JSONDocument{"value": result}
}

// snapshotFromRow rebuilds a query snapshot from a persisted row.
func snapshotFromRow(row *model.SkillExecution) Snapshot {
	snap := Snapshot{
		ExecutionID:    row.ExecutionID,
		SkillID:        row.SkillID,
		SkillVersion:   row.SkillVersion,
		State:          row.State,
		Inputs:         row.Inputs,
		StartedAt:      row.StartedAt,
		CompletedAt:    row.CompletedAt,
		ElapsedSeconds: row.ElapsedSeconds,
	}
	if len(row.Result) > 0 {
		snap.Result = map[string]interface{}(row.Result)
	}
	if len(row.Error) > 0 {
		snap.Error = &ErrorInfo{
			Code:   stringField(row.Error, "code"),
			Kind:   stringField(row.Error, "kind"),
			Detail: stringField(row.Error, "detail"),
		}
	}
	return snap
}

func stringField(doc model.JSONDocument, key string) string {
	if v, ok := doc[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}
