// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wishub-ai/skillhub/pkg/config"
	"github.com/wishub-ai/skillhub/pkg/database"
	"github.com/wishub-ai/skillhub/pkg/database/model"
	"github.com/wishub-ai/skillhub/pkg/errors"
	"github.com/wishub-ai/skillhub/pkg/logger/log"
	"github.com/wishub-ai/skillhub/pkg/metrics"
	"github.com/wishub-ai/skillhub/pkg/scheduler"
)

// Invoker is the slice of the scheduler the orchestrator depends on.
type Invoker interface {
	Invoke(ctx context.Context, req scheduler.InvokeRequest) (scheduler.Snapshot, error)
	Wait(ctx context.Context, executionID string) (scheduler.Snapshot, error)
	Cancel(executionID string) bool
}

// Result is the outcome of one workflow run. NodeResults holds every
// completed node, including nodes that finished before a failure.
type Result struct {
	ExecutionID    string                 `json:"execution_id"`
	WorkflowID     string                 `json:"workflow_id"`
	State          string                 `json:"state"`
	NodeResults    map[string]interface{} `json:"results"`
	NodeErrors     map[string]interface{} `json:"node_errors,omitempty"`
	FailedNode     string                 `json:"failed_node,omitempty"`
	ElapsedSeconds float64                `json:"elapsed_seconds"`
}

// Orchestrator validates and runs workflow graphs, driving each node
// through the invocation scheduler.
type Orchestrator struct {
	invoker  Invoker
	facade   database.WorkflowFacadeInterface
	poolSize int
}

// NewOrchestrator creates a new Orchestrator. The worker pool defaults
// to the scheduler's concurrency cap.
func NewOrchestrator(invoker Invoker, facade database.WorkflowFacadeInterface, cfg config.SchedulerConfig) *Orchestrator {
	pool := cfg.MaxConcurrent
	if pool <= 0 {
		pool = 100
	}
	return &Orchestrator{
		invoker:  invoker,
		facade:   facade,
		poolSize: pool,
	}
}

// Run validates and executes one workflow, blocking until the run is
// terminal. Partial results are returned on failure.
func (o *Orchestrator) Run(ctx context.Context, def *Definition) (*Result, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	executionID := scheduler.NewWorkflowExecutionID()
	started := time.Now()

	row := &model.WorkflowExecution{
		ExecutionID:  executionID,
		WorkflowID:   def.WorkflowID,
		State:        model.ExecutionStateRunning,
		Definition:   toDocument(def),
		GlobalInputs: model.JSONDocument(def.GlobalInputs),
		StartedAt:    &started,
	}
	if err := o.facade.Create(ctx, row); err != nil {
		log.Warnf("Failed to persist workflow execution %s: %v", executionID, err)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	var deadline time.Time
	if def.TimeoutSeconds > 0 {
		deadline = started.Add(time.Duration(def.TimeoutSeconds) * time.Second)
		runCtx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	log.Infof("Running workflow %s as %s (%d nodes, mode=%s)",
		def.WorkflowID, executionID, len(def.Nodes), def.effectiveMode())

	state, nodeResults, nodeErrors, failedNode := o.execute(runCtx, def, deadline)

	completed := time.Now()
	result := &Result{
		ExecutionID:    executionID,
		WorkflowID:     def.WorkflowID,
		State:          state,
		NodeResults:    nodeResults,
		NodeErrors:     nodeErrors,
		FailedNode:     failedNode,
		ElapsedSeconds: completed.Sub(started).Seconds(),
	}

	row.State = state
	row.NodeResults = model.JSONDocument(nodeResults)
	row.NodeErrors = model.JSONDocument(nodeErrors)
	row.FailedNode = failedNode
	row.CompletedAt = &completed
	row.ElapsedSeconds = result.ElapsedSeconds
	if err := o.facade.Update(ctx, row); err != nil {
		log.Warnf("Failed to update workflow execution %s: %v", executionID, err)
	}
	metrics.WorkflowExecutions.WithLabelValues(state).Inc()

	return result, nil
}

// Status returns a persisted workflow run by its execution id.
func (o *Orchestrator) Status(ctx context.Context, executionID string) (*Result, error) {
	row, err := o.facade.GetByExecutionID(ctx, executionID)
	if err != nil {
		return nil, errors.WrapError(err,
			fmt.Sprintf("workflow execution not found: %s", executionID), errors.CodeSkillNotFound)
	}
	return &Result{
		ExecutionID:    row.ExecutionID,
		WorkflowID:     row.WorkflowID,
		State:          row.State,
		NodeResults:    row.NodeResults,
		NodeErrors:     row.NodeErrors,
		FailedNode:     row.FailedNode,
		ElapsedSeconds: row.ElapsedSeconds,
	}, nil
}

// nodeOutcome is one node's terminal report to the coordinator.
type nodeOutcome struct {
	nodeID string
	result interface{}
	errDoc map[string]interface{}
}

// execute runs the graph with an in-degree queue and a bounded pool.
// The coordinator goroutine is the only writer of the shared maps;
// node goroutines report through the completions channel.
func (o *Orchestrator) execute(ctx context.Context, def *Definition, deadline time.Time) (string, map[string]interface{}, map[string]interface{}, string) {
	pool := o.poolSize
	if def.effectiveMode() == ModeSequential {
		pool = 1
	}

	nodesByID := make(map[string]Node, len(def.Nodes))
	for _, node := range def.Nodes {
		nodesByID[node.NodeID] = node
	}
	adjacency := def.adjacency()
	degrees := def.inDegrees()

	var ready []string
	for _, node := range def.Nodes {
		if degrees[node.NodeID] == 0 {
			ready = append(ready, node.NodeID)
		}
	}

	// results seeds the substitution scope; "global" resolves the
	// workflow's global inputs.
	results := map[string]interface{}{globalScope: def.GlobalInputs}
	nodeResults := make(map[string]interface{})
	nodeErrors := make(map[string]interface{})
	failedNode := ""

	inflight := newInflightSet()
	completions := make(chan nodeOutcome)
	running := 0

	launch := func() {
		for len(ready) > 0 && running < pool && failedNode == "" {
			nodeID := ready[0]
			ready = ready[1:]
			node := nodesByID[nodeID]

			inputs, err := resolveInputs(node.Inputs, results)
			if err != nil {
				failedNode = nodeID
				nodeErrors[nodeID] = map[string]interface{}{
					"kind":   "reference_missing",
					"detail": err.Error(),
				}
				inflight.cancelAll(o.invoker)
				return
			}

			running++
			go o.runNode(ctx, node, inputs, deadline, inflight, completions)
		}
	}

	launch()
	for running > 0 {
		out := <-completions
		running--
		inflight.remove(out.nodeID)

		if out.errDoc != nil {
			nodeErrors[out.nodeID] = out.errDoc
			if failedNode == "" {
				failedNode = out.nodeID
				inflight.cancelAll(o.invoker)
			}
			continue
		}

		results[out.nodeID] = out.result
		nodeResults[out.nodeID] = out.result
		for _, next := range adjacency[out.nodeID] {
			degrees[next]--
			if degrees[next] == 0 && failedNode == "" {
				ready = append(ready, next)
			}
		}
		launch()
	}

	state := model.ExecutionStateCompleted
	if failedNode != "" {
		state = model.ExecutionStateFailed
		if ctx.Err() == context.DeadlineExceeded {
			state = model.ExecutionStateTimedOut
		}
	}
	return state, nodeResults, nodeErrors, failedNode
}

// runNode drives one node through the scheduler and reports the
// terminal outcome.
func (o *Orchestrator) runNode(ctx context.Context, node Node, inputs map[string]interface{}, deadline time.Time, inflight *inflightSet, completions chan<- nodeOutcome) {
	budget := 0
	if !deadline.IsZero() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			completions <- nodeOutcome{nodeID: node.NodeID, errDoc: map[string]interface{}{
				"kind":   "timed_out",
				"detail": "workflow deadline exceeded before the node started",
			}}
			return
		}
		budget = int(remaining.Seconds())
		if budget < 1 {
			budget = 1
		}
	}

	snap, err := o.invoker.Invoke(ctx, scheduler.InvokeRequest{
		SkillID:        node.SkillID,
		Version:        node.Version,
		Inputs:         inputs,
		TimeoutSeconds: budget,
		Async:          true,
	})
	if err != nil {
		completions <- nodeOutcome{nodeID: node.NodeID, errDoc: map[string]interface{}{
			"code":   errors.GetCode(err),
			"kind":   errors.KindOf(errors.GetCode(err)),
			"detail": err.Error(),
		}}
		return
	}
	inflight.add(node.NodeID, snap.ExecutionID)

	final, err := o.invoker.Wait(ctx, snap.ExecutionID)
	if err != nil {
		// The workflow deadline expired while the node was running.
		o.invoker.Cancel(snap.ExecutionID)
		completions <- nodeOutcome{nodeID: node.NodeID, errDoc: map[string]interface{}{
			"kind":   "timed_out",
			"detail": "workflow deadline exceeded",
		}}
		return
	}

	if final.State == model.ExecutionStateCompleted {
		completions <- nodeOutcome{nodeID: node.NodeID, result: final.Result}
		return
	}

	errDoc := map[string]interface{}{
		"kind":   final.State,
		"detail": "",
	}
	if final.Error != nil {
		errDoc["code"] = final.Error.Code
		errDoc["kind"] = final.Error.Kind
		errDoc["detail"] = final.Error.Detail
	}
	completions <- nodeOutcome{nodeID: node.NodeID, errDoc: errDoc}
}

func (d *Definition) effectiveMode() string {
	if d.Mode == "" {
		return ModeParallel
	}
	return d.Mode
}

// inflightSet tracks the scheduler execution ids of running nodes so a
// failure can cascade cancellation.
type inflightSet struct {
	mu  sync.Mutex
	ids map[string]string
}

func newInflightSet() *inflightSet {
	return &inflightSet{ids: make(map[string]string)}
}

func (s *inflightSet) add(nodeID, executionID string) {
	s.mu.Lock()
	s.ids[nodeID] = executionID
	s.mu.Unlock()
}

func (s *inflightSet) remove(nodeID string) {
	s.mu.Lock()
	delete(s.ids, nodeID)
	s.mu.Unlock()
}

func (s *inflightSet) cancelAll(invoker Invoker) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.ids))
	for _, id := range s.ids {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		invoker.Cancel(id)
	}
}

// toDocument snapshots a struct as a JSONB document.
func toDocument(v interface{}) model.JSONDocument {
	raw, err := json.Marshal(v)
	if err != nil {
		return model.JSONDocument{}
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.JSONDocument{}
	}
	return doc
}
