// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/wishub-ai/skillhub/pkg/config"
)

// Failure kinds surfaced by the sandbox.
const (
	FailureTimedOut           = "timed_out"
	FailureOversizeOutput     = "oversize_output"
	FailureExecutionFailed    = "execution_failed"
	FailureMarshallingFailed  = "marshalling_failed"
	FailureSandboxUnavailable = "sandbox_unavailable"
)

// Caps bound the resources one sandbox job may consume.
type Caps struct {
	MaxOutputBytes  int64
	MaxMemoryMB     int
	NetworkDisabled bool
}

// DefaultCaps returns the operator-default resource caps.
func DefaultCaps(cfg config.SandboxConfig) Caps {
	caps := Caps{
		MaxOutputBytes:  cfg.MaxOutputBytes,
		MaxMemoryMB:     cfg.MaxMemoryMB,
		NetworkDisabled: cfg.NetworkDisabled,
	}
	if caps.MaxOutputBytes <= 0 {
		caps.MaxOutputBytes = 10 * 1024 * 1024
	}
	if caps.MaxMemoryMB <= 0 {
		caps.MaxMemoryMB = 512
	}
	return caps
}

// Job is one skill execution request handed to a Runtime.
type Job struct {
	ExecutionID string
	Language    string
	Code        []byte
	Input       json.RawMessage
	Timeout     time.Duration
	Caps        Caps
}

// Outcome is the result of one sandbox run. Exactly one of Value or
// FailureKind is meaningful, selected by OK.
type Outcome struct {
	OK          bool
	Value       json.RawMessage
	FailureKind string
	Detail      string
	Duration    time.Duration
}

func failure(kind, detail string, dur time.Duration) Outcome {
	return Outcome{FailureKind: kind, Detail: detail, Duration: dur}
}

// Runtime executes skill jobs in isolation. Implementations must not
// share filesystem or process state between the guest and the host
// service beyond the stdio protocol.
type Runtime interface {
	// Run executes one job and blocks until a terminal outcome. The
	// context carries cancellation; expiry of job.Timeout is enforced
	// by the runtime itself.
	Run(ctx context.Context, job Job) Outcome

	// Healthy reports whether the runtime can launch guests.
	Healthy(ctx context.Context) bool
}

// NewRuntime builds the configured runtime backend.
func NewRuntime(cfg config.SandboxConfig) (Runtime, error) {
	switch cfg.Backend {
	case "subprocess", "":
		return NewSubprocessRuntime(cfg), nil
	case "docker":
		return NewDockerRuntime(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported sandbox backend: %s", cfg.Backend)
	}
}

// guestResult is the envelope the harness prints as its final stdout
// line: {"ok":true,"value":...} or {"ok":false,"error":...,"traceback":...}.
type guestResult struct {
	OK        bool            `json:"ok"`
	Value     json.RawMessage `json:"value"`
	Kind      string          `json:"kind"`
	Error     string          `json:"error"`
	Traceback string          `json:"traceback"`
}

// parseGuestOutput extracts the result envelope from captured guest
// stdout. The envelope is the last non-empty line; anything before it is
// guest print noise and ignored.
func parseGuestOutput(stdout []byte, dur time.Duration) Outcome {
	if !utf8.Valid(stdout) {
		return failure(FailureMarshallingFailed, "guest produced non-UTF-8 output", dur)
	}
	line := lastNonEmptyLine(stdout)
	if len(line) == 0 {
		return failure(FailureExecutionFailed, "guest produced no output", dur)
	}

	var result guestResult
	if err := json.Unmarshal(line, &result); err != nil {
		return failure(FailureMarshallingFailed,
			fmt.Sprintf("guest output is not a result envelope: %v", err), dur)
	}

	if result.OK {
		if len(result.Value) == 0 {
			result.Value = json.RawMessage("null")
		}
		return Outcome{OK: true, Value: result.Value, Duration: dur}
	}

	kind := result.Kind
	if kind == "" {
		kind = FailureExecutionFailed
	}
	detail := result.Error
	if result.Traceback != "" {
		detail = result.Error + "\n" + result.Traceback
	}
	return failure(kind, detail, dur)
}

func lastNonEmptyLine(out []byte) []byte {
	end := len(out)
	for end > 0 {
		start := end
		for start > 0 && out[start-1] != '\n' {
			start--
		}
		line := trimSpace(out[start:end])
		if len(line) > 0 {
			return line
		}
		end = start - 1
	}
	return nil
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && (b[start] == ' ' || b[start] == '\t' || b[start] == '\r' || b[start] == '\n') {
		start++
	}
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t' || b[end-1] == '\r' || b[end-1] == '\n') {
		end--
	}
	return b[start:end]
}

// normalizeInput applies the null-inputs policy: a missing or null
// payload runs as an empty object.
func normalizeInput(input json.RawMessage) json.RawMessage {
	trimmed := trimSpace(input)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return json.RawMessage("{}")
	}
	return input
}
