// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package workflow

import (
	"fmt"

	"github.com/wishub-ai/skillhub/pkg/errors"
)

// Execution modes. Sequential forces a worker pool of one; parallel is
// the default and lets independent nodes run concurrently.
const (
	ModeParallel   = "parallel"
	ModeSequential = "sequential"
)

// globalScope is the pseudo-node placeholders use to reference the
// workflow's global inputs, e.g. ${global.user_id}.
const globalScope = "global"

// Node is one step of a workflow: a skill invocation with an inputs
// template that may reference upstream results.
type Node struct {
	NodeID  string                 `json:"node_id"`
	SkillID string                 `json:"skill_id"`
	Version string                 `json:"version,omitempty"`
	Inputs  map[string]interface{} `json:"inputs"`
}

// Edge is one dependency: From must complete before To starts.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Definition is a workflow graph.
type Definition struct {
	WorkflowID     string                 `json:"workflow_id"`
	Nodes          []Node                 `json:"nodes"`
	Edges          []Edge                 `json:"edges"`
	GlobalInputs   map[string]interface{} `json:"global_inputs"`
	TimeoutSeconds int                    `json:"timeout_seconds"`
	Mode           string                 `json:"mode,omitempty"`
}

// Validate checks the graph before any node runs: declared endpoints,
// acyclicity, and upstream-only placeholder references.
func (d *Definition) Validate() error {
	if len(d.Nodes) == 0 {
		return errors.WrapMessage("workflow has no nodes", errors.CodeInvalidWorkflow)
	}
	if d.Mode != "" && d.Mode != ModeParallel && d.Mode != ModeSequential {
		return errors.WrapMessage(
			fmt.Sprintf("unknown execution mode %q", d.Mode), errors.CodeInvalidWorkflow)
	}

	declared := make(map[string]bool, len(d.Nodes))
	for _, node := range d.Nodes {
		if node.NodeID == "" {
			return errors.WrapMessage("node with empty node_id", errors.CodeInvalidWorkflow)
		}
		if node.NodeID == globalScope {
			return errors.WrapMessage(
				fmt.Sprintf("node id %q is reserved", globalScope), errors.CodeInvalidWorkflow)
		}
		if node.SkillID == "" {
			return errors.WrapMessage(
				fmt.Sprintf("node %s has no skill_id", node.NodeID), errors.CodeInvalidWorkflow)
		}
		if declared[node.NodeID] {
			return errors.WrapMessage(
				fmt.Sprintf("duplicate node id %s", node.NodeID), errors.CodeInvalidWorkflow)
		}
		declared[node.NodeID] = true
	}

	for _, edge := range d.Edges {
		if !declared[edge.From] {
			return errors.WrapMessage(
				fmt.Sprintf("edge references undeclared node %s", edge.From), errors.CodeInvalidWorkflow)
		}
		if !declared[edge.To] {
			return errors.WrapMessage(
				fmt.Sprintf("edge references undeclared node %s", edge.To), errors.CodeInvalidWorkflow)
		}
	}

	if cycle := d.findCycle(); cycle != "" {
		return errors.WrapMessage(
			fmt.Sprintf("workflow has a dependency cycle through %s", cycle), errors.CodeCyclicWorkflow)
	}

	return d.checkReferences()
}

// findCycle runs DFS with grey/black coloring and returns a node on a
// cycle, or empty when the graph is acyclic.
func (d *Definition) findCycle() string {
	adjacency := d.adjacency()

	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int, len(d.Nodes))

	var visit func(id string) string
	visit = func(id string) string {
		color[id] = grey
		for _, next := range adjacency[id] {
			switch color[next] {
			case grey:
				return next
			case white:
				if hit := visit(next); hit != "" {
					return hit
				}
			}
		}
		color[id] = black
		return ""
	}

	for _, node := range d.Nodes {
		if color[node.NodeID] == white {
			if hit := visit(node.NodeID); hit != "" {
				return hit
			}
		}
	}
	return ""
}

// checkReferences verifies every placeholder names the global scope or
// a transitive predecessor of the referring node.
func (d *Definition) checkReferences() error {
	upstream := d.upstreamSets()
	declared := make(map[string]bool, len(d.Nodes))
	for _, node := range d.Nodes {
		declared[node.NodeID] = true
	}

	for _, node := range d.Nodes {
		for _, ref := range collectReferences(node.Inputs) {
			if ref == globalScope {
				continue
			}
			if !declared[ref] {
				return errors.WrapMessage(
					fmt.Sprintf("node %s references unknown node %s", node.NodeID, ref),
					errors.CodeInvalidWorkflow)
			}
			if !upstream[node.NodeID][ref] {
				return errors.WrapMessage(
					fmt.Sprintf("node %s references %s, which is not upstream of it", node.NodeID, ref),
					errors.CodeInvalidWorkflow)
			}
		}
	}
	return nil
}

// upstreamSets computes the transitive predecessor set per node.
func (d *Definition) upstreamSets() map[string]map[string]bool {
	parents := make(map[string][]string, len(d.Nodes))
	for _, edge := range d.Edges {
		parents[edge.To] = append(parents[edge.To], edge.From)
	}

	sets := make(map[string]map[string]bool, len(d.Nodes))
	var build func(id string) map[string]bool
	build = func(id string) map[string]bool {
		if set, ok := sets[id]; ok {
			return set
		}
		set := make(map[string]bool)
		sets[id] = set // breaks recursion on cyclic input; Validate rejects cycles first
		for _, parent := range parents[id] {
			set[parent] = true
			for ancestor := range build(parent) {
				set[ancestor] = true
			}
		}
		return set
	}
	for _, node := range d.Nodes {
		build(node.NodeID)
	}
	return sets
}

// adjacency maps each node to its direct downstream nodes.
func (d *Definition) adjacency() map[string][]string {
	adjacency := make(map[string][]string, len(d.Nodes))
	for _, edge := range d.Edges {
		adjacency[edge.From] = append(adjacency[edge.From], edge.To)
	}
	return adjacency
}

// inDegrees maps each node to its number of direct dependencies.
func (d *Definition) inDegrees() map[string]int {
	degrees := make(map[string]int, len(d.Nodes))
	for _, node := range d.Nodes {
		degrees[node.NodeID] = 0
	}
	for _, edge := range d.Edges {
		degrees[edge.To]++
	}
	return degrees
}
