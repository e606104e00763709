// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/wishub-ai/skillhub/pkg/config"
)

// SubprocessRuntime executes skills as host subprocesses under a
// per-job scratch directory. The wall-clock deadline is enforced with
// SIGTERM followed by SIGKILL after the grace window. Memory caps are
// only enforced by the docker backend.
type SubprocessRuntime struct {
	cfg config.SandboxConfig
}

// NewSubprocessRuntime creates a new SubprocessRuntime
func NewSubprocessRuntime(cfg config.SandboxConfig) *SubprocessRuntime {
	return &SubprocessRuntime{cfg: cfg}
}

// Run executes one job and blocks until a terminal outcome
func (r *SubprocessRuntime) Run(ctx context.Context, job Job) Outcome {
	start := time.Now()

	dir, err := os.MkdirTemp(r.cfg.WorkDir, "skill-*")
	if err != nil {
		return failure(FailureSandboxUnavailable, fmt.Sprintf("create scratch dir: %v", err), time.Since(start))
	}
	defer os.RemoveAll(dir)

	harnessFile, skillFile, harnessSource, err := harnessFor(job.Language)
	if err != nil {
		return failure(FailureSandboxUnavailable, err.Error(), time.Since(start))
	}
	harnessPath := filepath.Join(dir, harnessFile)
	skillPath := filepath.Join(dir, skillFile)
	if err := os.WriteFile(harnessPath, []byte(harnessSource), 0644); err != nil {
		return failure(FailureSandboxUnavailable, fmt.Sprintf("write harness: %v", err), time.Since(start))
	}
	if err := os.WriteFile(skillPath, job.Code, 0644); err != nil {
		return failure(FailureSandboxUnavailable, fmt.Sprintf("write skill: %v", err), time.Since(start))
	}

	argv, err := r.argv(job.Language, harnessPath, skillPath)
	if err != nil {
		return failure(FailureSandboxUnavailable, err.Error(), time.Since(start))
	}

	cctx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdin = bytes.NewReader(normalizeInput(job.Input))

	stdout := newCappedBuffer(job.Caps.MaxOutputBytes)
	stderr := newCappedBuffer(64 * 1024)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// SIGTERM on deadline, SIGKILL once the grace window elapses.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = time.Duration(r.cfg.GraceSeconds) * time.Second
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = time.Second
	}

	if err := cmd.Start(); err != nil {
		return failure(FailureSandboxUnavailable, fmt.Sprintf("launch guest: %v", err), time.Since(start))
	}
	runErr := cmd.Wait()
	dur := time.Since(start)

	if cctx.Err() == context.DeadlineExceeded {
		return failure(FailureTimedOut, fmt.Sprintf("deadline of %s exceeded", job.Timeout), dur)
	}
	if stdout.Overflowed() {
		return failure(FailureOversizeOutput,
			fmt.Sprintf("guest output exceeded %d bytes; result discarded", job.Caps.MaxOutputBytes), dur)
	}

	outcome := parseGuestOutput(stdout.Bytes(), dur)
	if !outcome.OK && outcome.FailureKind == FailureExecutionFailed && runErr != nil && outcome.Detail == "guest produced no output" {
		outcome.Detail = fmt.Sprintf("guest exited: %v; stderr: %s", runErr, stderr.Tail(2048))
	}
	return outcome
}

// Healthy reports whether the configured interpreters are present
func (r *SubprocessRuntime) Healthy(ctx context.Context) bool {
	_, err := exec.LookPath(r.interpreter("python"))
	return err == nil
}

func (r *SubprocessRuntime) argv(language, harnessPath, skillPath string) ([]string, error) {
	switch language {
	case "python":
		return []string{r.interpreter(language), harnessPath, skillPath}, nil
	case "typescript":
		return []string{r.interpreter(language), harnessPath, skillPath}, nil
	case "go":
		// go run compiles the blob together with the harness main.
		return []string{r.interpreter(language), "run", skillPath, harnessPath}, nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", language)
	}
}

func (r *SubprocessRuntime) interpreter(language string) string {
	switch language {
	case "python":
		if r.cfg.PythonBin != "" {
			return r.cfg.PythonBin
		}
		return "python3"
	case "typescript":
		if r.cfg.NodeBin != "" {
			return r.cfg.NodeBin
		}
		return "node"
	case "go":
		if r.cfg.GoBin != "" {
			return r.cfg.GoBin
		}
		return "go"
	default:
		return ""
	}
}

// cappedBuffer collects writes up to a byte cap and records overflow
// instead of failing the writer, so the guest runs to completion and
// the host decides the outcome.
type cappedBuffer struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	cap      int64
	overflow bool
}

func newCappedBuffer(max int64) *cappedBuffer {
	return &cappedBuffer{cap: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := b.cap - int64(b.buf.Len())
	if remaining <= 0 {
		b.overflow = true
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.buf.Write(p[:remaining])
		b.overflow = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *cappedBuffer) Overflowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflow
}

func (b *cappedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}

func (b *cappedBuffer) Tail(n int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	data := b.buf.Bytes()
	if len(data) > n {
		data = data[len(data)-n:]
	}
	return string(data)
}
