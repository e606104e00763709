// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wishub-ai/skillhub/pkg/config"
	"github.com/wishub-ai/skillhub/pkg/database"
	"github.com/wishub-ai/skillhub/pkg/database/model"
	"github.com/wishub-ai/skillhub/pkg/errors"
	"github.com/wishub-ai/skillhub/pkg/logger/log"
	"github.com/wishub-ai/skillhub/pkg/metrics"
	"github.com/wishub-ai/skillhub/pkg/sandbox"
	"github.com/wishub-ai/skillhub/pkg/schema"
)

// SkillResolver is the slice of the registry the scheduler depends on.
type SkillResolver interface {
	// Resolve returns the requested version, or the latest by semantic
	// version ordering when version is empty.
	Resolve(ctx context.Context, skillID, version string) (*model.Skill, error)

	// Code fetches the skill's code blob.
	Code(ctx context.Context, skill *model.Skill) ([]byte, error)
}

// InvokeRequest is one invocation of a skill.
type InvokeRequest struct {
	SkillID        string
	Version        string
	Inputs         map[string]interface{}
	TimeoutSeconds int
	Async          bool
}

// Scheduler binds invocations to skill versions, drives them through
// the sandbox, and tracks execution records. Async state is
// process-local; terminal records are also persisted for the grace
// window so status survives queries after eviction.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	resolver   SkillResolver
	runtime    sandbox.Runtime
	execFacade database.ExecutionFacadeInterface
	stats      database.SkillFacadeInterface

	records   map[string]*Record
	recordsMu sync.RWMutex

	sem     chan struct{}
	queued  atomic.Int64
	cfg     config.SchedulerConfig
	sandbox config.SandboxConfig
}

// NewScheduler creates a new Scheduler
func NewScheduler(
	resolver SkillResolver,
	runtime sandbox.Runtime,
	execFacade database.ExecutionFacadeInterface,
	stats database.SkillFacadeInterface,
	cfg config.SchedulerConfig,
	sandboxCfg config.SandboxConfig,
) *Scheduler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:        ctx,
		cancel:     cancel,
		resolver:   resolver,
		runtime:    runtime,
		execFacade: execFacade,
		stats:      stats,
		records:    make(map[string]*Record),
		sem:        make(chan struct{}, cfg.MaxConcurrent),
		cfg:        cfg,
		sandbox:    sandboxCfg,
	}
}

// Start launches the retention sweep loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.sweepLoop()
	log.Infof("Scheduler started (max_concurrent=%d)", s.cfg.MaxConcurrent)
}

// Stop cancels all in-flight executions and waits for workers to drain.
func (s *Scheduler) Stop() {
	log.Info("Stopping scheduler...")
	s.cancel()

	s.recordsMu.RLock()
	for _, rec := range s.records {
		rec.requestCancel()
	}
	s.recordsMu.RUnlock()

	s.wg.Wait()
	log.Info("Scheduler stopped")
}

// Invoke validates and dispatches one invocation. Synchronous calls
// block until the record is terminal; asynchronous calls return the
// pending snapshot immediately.
func (s *Scheduler) Invoke(ctx context.Context, req InvokeRequest) (Snapshot, error) {
	skill, err := s.resolver.Resolve(ctx, req.SkillID, req.Version)
	if err != nil {
		return Snapshot{}, errors.WrapError(err,
			fmt.Sprintf("skill not found: %s", req.SkillID), errors.CodeSkillNotFound)
	}

	if violations, verr := schema.Validate(req.Inputs, skill.InputSchema); verr != nil {
		return Snapshot{}, errors.WrapError(verr, "input schema is unusable", errors.CodeInvocationInternal)
	} else if len(violations) > 0 {
		return Snapshot{}, errors.WrapMessage(
			"inputs violate the skill's input schema: "+joinViolations(violations),
			errors.CodeInvalidInputs)
	}

	deadline := effectiveTimeout(req.TimeoutSeconds, skill.TimeoutSeconds)

	rec := newRecord(NewExecutionID(), skill.SkillID, skill.Version, req.Inputs)
	s.recordsMu.Lock()
	s.records[rec.executionID] = rec
	s.recordsMu.Unlock()

	// Persist only after admission: a refused invocation must leave no
	// pending row behind, since nothing would ever finish it.
	if req.Async {
		if s.cfg.QueueSize > 0 && s.queued.Load() >= int64(s.cfg.QueueSize) {
			s.dropRecord(rec.executionID)
			return Snapshot{}, errors.WrapMessage("async queue is full", errors.CodeExecutionFailed)
		}
		s.persist(rec)
		s.queued.Add(1)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			select {
			case s.sem <- struct{}{}:
				s.queued.Add(-1)
				defer func() { <-s.sem }()
				s.runOne(rec, skill, deadline)
			case <-s.ctx.Done():
				s.queued.Add(-1)
				rec.markTerminal(model.ExecutionStateCancelled, nil, &ErrorInfo{
					Code:   errors.CodeExecutionFailed,
					Kind:   "cancelled",
					Detail: "scheduler shut down before the execution started",
				})
				s.persist(rec)
			}
		}()
		return rec.Snapshot(), nil
	}

	// Synchronous admission control: refuse immediately when saturated.
	select {
	case s.sem <- struct{}{}:
	default:
		s.dropRecord(rec.executionID)
		return Snapshot{}, errors.WrapMessage("execution capacity exhausted, retry later or use async",
			errors.CodeExecutionFailed)
	}
	defer func() { <-s.sem }()

	s.persist(rec)
	s.runOne(rec, skill, deadline)
	return rec.Snapshot(), nil
}

// Status returns the current snapshot of an execution. Recently-evicted
// terminal records are served from the persistent store.
func (s *Scheduler) Status(ctx context.Context, executionID string) (Snapshot, error) {
	s.recordsMu.RLock()
	rec, ok := s.records[executionID]
	s.recordsMu.RUnlock()
	if ok {
		return rec.Snapshot(), nil
	}

	row, err := s.execFacade.GetByExecutionID(ctx, executionID)
	if err != nil {
		return Snapshot{}, errors.WrapError(err,
			fmt.Sprintf("execution not found: %s", executionID), errors.CodeSkillNotFound)
	}
	return snapshotFromRow(row), nil
}

// Wait blocks until the execution reaches a terminal state, then
// returns its snapshot. Unknown executions fall through to Status.
func (s *Scheduler) Wait(ctx context.Context, executionID string) (Snapshot, error) {
	s.recordsMu.RLock()
	rec, ok := s.records[executionID]
	s.recordsMu.RUnlock()
	if !ok {
		return s.Status(ctx, executionID)
	}
	select {
	case <-rec.Done():
		return rec.Snapshot(), nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Cancel requests cancellation of an in-flight execution. Pending
// records transition to cancelled directly; running records go through
// the sandbox-kill path.
func (s *Scheduler) Cancel(executionID string) bool {
	s.recordsMu.RLock()
	rec, ok := s.records[executionID]
	s.recordsMu.RUnlock()
	if !ok {
		return false
	}
	if rec.markTerminal(model.ExecutionStateCancelled, nil, &ErrorInfo{
		Code:   errors.CodeExecutionFailed,
		Kind:   "cancelled",
		Detail: "execution cancelled before it started",
	}) {
		s.persist(rec)
		return true
	}
	rec.requestCancel()
	return true
}

// Running reports the number of in-flight sandbox jobs.
func (s *Scheduler) Running() int {
	return len(s.sem)
}

// runOne drives a single record through the sandbox. The calling worker
// is the only writer of the record's state.
func (s *Scheduler) runOne(rec *Record, skill *model.Skill, deadline time.Duration) {
	if !rec.markRunning() {
		return
	}
	s.persist(rec)
	metrics.ExecutionsInflight.Inc()
	defer metrics.ExecutionsInflight.Dec()

	code, err := s.resolver.Code(s.ctx, skill)
	if err != nil {
		s.finish(rec, skill, model.ExecutionStateFailed, nil, &ErrorInfo{
			Code:   errors.CodeInvocationInternal,
			Kind:   "internal_error",
			Detail: fmt.Sprintf("fetch code blob: %v", err),
		})
		return
	}

	inputJSON, err := json.Marshal(rec.inputs)
	if err != nil {
		s.finish(rec, skill, model.ExecutionStateFailed, nil, &ErrorInfo{
			Code:   errors.CodeInvalidInputs,
			Kind:   "invalid_inputs",
			Detail: fmt.Sprintf("marshal inputs: %v", err),
		})
		return
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	rec.setCancel(cancel)
	defer cancel()

	outcome := s.runtime.Run(runCtx, sandbox.Job{
		ExecutionID: rec.executionID,
		Language:    skill.Language,
		Code:        code,
		Input:       inputJSON,
		Timeout:     deadline,
		Caps:        sandbox.DefaultCaps(s.sandbox),
	})

	if runCtx.Err() == context.Canceled {
		s.finish(rec, skill, model.ExecutionStateCancelled, nil, &ErrorInfo{
			Code:   errors.CodeExecutionFailed,
			Kind:   "cancelled",
			Detail: "execution cancelled",
		})
		return
	}

	if !outcome.OK {
		state := model.ExecutionStateFailed
		code := errors.CodeExecutionFailed
		if outcome.FailureKind == sandbox.FailureTimedOut {
			state = model.ExecutionStateTimedOut
			code = errors.CodeExecutionTimeout
		}
		s.finish(rec, skill, state, nil, &ErrorInfo{
			Code:   code,
			Kind:   outcome.FailureKind,
			Detail: outcome.Detail,
		})
		return
	}

	var result interface{}
	if err := json.Unmarshal(outcome.Value, &result); err != nil {
		s.finish(rec, skill, model.ExecutionStateFailed, nil, &ErrorInfo{
			Code:   errors.CodeExecutionFailed,
			Kind:   sandbox.FailureMarshallingFailed,
			Detail: fmt.Sprintf("decode result: %v", err),
		})
		return
	}

	if violations, verr := schema.Validate(result, skill.OutputSchema); verr != nil {
		s.finish(rec, skill, model.ExecutionStateFailed, nil, &ErrorInfo{
			Code:   errors.CodeExecutionFailed,
			Kind:   "output_schema_violation",
			Detail: verr.Error(),
		})
		return
	} else if len(violations) > 0 {
		s.finish(rec, skill, model.ExecutionStateFailed, nil, &ErrorInfo{
			Code:   errors.CodeExecutionFailed,
			Kind:   "output_schema_violation",
			Detail: "result violates the skill's output schema: " + joinViolations(violations),
		})
		return
	}

	s.finish(rec, skill, model.ExecutionStateCompleted, result, nil)
}

// finish applies the terminal transition, persists the row, and updates
// usage statistics and metrics.
func (s *Scheduler) finish(rec *Record, skill *model.Skill, state string, result interface{}, errInfo *ErrorInfo) {
	if !rec.markTerminal(state, result, errInfo) {
		return
	}
	s.persist(rec)

	snap := rec.Snapshot()
	metrics.SkillInvocations.WithLabelValues(skill.SkillID, state).Inc()
	metrics.InvocationDuration.WithLabelValues(skill.SkillID).Observe(snap.ElapsedSeconds)

	statsCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.stats.IncrementStats(statsCtx, skill.SkillID, state == model.ExecutionStateCompleted); err != nil {
		log.Warnf("Failed to update usage stats for %s: %v", skill.SkillID, err)
	}
}

// persist writes the record row, creating or updating by execution id.
// Persistence failures are logged: the in-memory record stays
// authoritative for the process lifetime.
func (s *Scheduler) persist(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := rec.row()
	existing, err := s.execFacade.GetByExecutionID(ctx, row.ExecutionID)
	if err != nil {
		if err := s.execFacade.Create(ctx, row); err != nil {
			log.Warnf("Failed to persist execution %s: %v", row.ExecutionID, err)
		}
		return
	}
	row.ID = existing.ID
	row.CreatedAt = existing.CreatedAt
	if err := s.execFacade.Update(ctx, row); err != nil {
		log.Warnf("Failed to update execution %s: %v", row.ExecutionID, err)
	}
}

func (s *Scheduler) dropRecord(executionID string) {
	s.recordsMu.Lock()
	delete(s.records, executionID)
	s.recordsMu.Unlock()
}

// sweepLoop evicts terminal in-memory records past the retention window
// and prunes the persistent table to match.
func (s *Scheduler) sweepLoop() {
	defer s.wg.Done()

	retention := time.Duration(s.cfg.RetentionMinutes) * time.Minute
	if retention <= 0 {
		retention = time.Hour
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-retention)

			s.recordsMu.Lock()
			for id, rec := range s.records {
				snap := rec.Snapshot()
				if model.IsTerminalState(snap.State) && snap.CompletedAt != nil && snap.CompletedAt.Before(cutoff) {
					delete(s.records, id)
				}
			}
			s.recordsMu.Unlock()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := s.execFacade.DeleteTerminalBefore(ctx, cutoff); err != nil {
				log.Warnf("Retention sweep failed: %v", err)
			} else if n > 0 {
				log.Debugf("Retention sweep removed %d execution rows", n)
			}
			cancel()
		}
	}
}

// effectiveTimeout applies the min(caller, skill) rule.
func effectiveTimeout(callerSeconds, skillSeconds int) time.Duration {
	seconds := skillSeconds
	if callerSeconds > 0 && (seconds <= 0 || callerSeconds < seconds) {
		seconds = callerSeconds
	}
	if seconds <= 0 {
		seconds = 30
	}
	return time.Duration(seconds) * time.Second
}

func joinViolations(violations []schema.Violation) string {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "; ")
}
