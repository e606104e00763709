// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package sandbox

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/wishub-ai/skillhub/pkg/config"
)

// DockerRuntime executes skills inside one-shot containers with the
// per-language image, memory cap, and network policy applied at launch.
// The scratch directory is bind-mounted read-only at /app and the stdio
// protocol is identical to the subprocess backend.
type DockerRuntime struct {
	cfg config.SandboxConfig
}

// NewDockerRuntime creates a new DockerRuntime
func NewDockerRuntime(cfg config.SandboxConfig) *DockerRuntime {
	return &DockerRuntime{cfg: cfg}
}

// Run executes one job and blocks until a terminal outcome
func (r *DockerRuntime) Run(ctx context.Context, job Job) Outcome {
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
	if err := os.WriteFile(filepath.Join(dir, harnessFile), []byte(harnessSource), 0644); err != nil {
		return failure(FailureSandboxUnavailable, fmt.Sprintf("write harness: %v", err), time.Since(start))
	}
	if err := os.WriteFile(filepath.Join(dir, skillFile), job.Code, 0644); err != nil {
		return failure(FailureSandboxUnavailable, fmt.Sprintf("write skill: %v", err), time.Since(start))
	}

	image, guestArgv, err := r.guestCommand(job.Language, harnessFile, skillFile)
	if err != nil {
		return failure(FailureSandboxUnavailable, err.Error(), time.Since(start))
	}

	name := containerName(job.ExecutionID)
	argv := []string{
		r.dockerBin(), "run", "--rm", "-i",
		"--name", name,
		"--memory", fmt.Sprintf("%dm", job.Caps.MaxMemoryMB),
		"-v", dir + ":/app:ro",
		"-w", "/app",
	}
	if job.Caps.NetworkDisabled {
		argv = append(argv, "--network", "none")
	}
	argv = append(argv, image)
	argv = append(argv, guestArgv...)

	cctx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(normalizeInput(job.Input))

	stdout := newCappedBuffer(job.Caps.MaxOutputBytes)
	stderr := newCappedBuffer(64 * 1024)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()
	dur := time.Since(start)

	if cctx.Err() == context.DeadlineExceeded || ctx.Err() != nil {
		r.killContainer(name)
		if cctx.Err() == context.DeadlineExceeded {
			return failure(FailureTimedOut, fmt.Sprintf("deadline of %s exceeded", job.Timeout), dur)
		}
		return failure(FailureExecutionFailed, "execution cancelled", dur)
	}
	if stdout.Overflowed() {
		return failure(FailureOversizeOutput,
			fmt.Sprintf("guest output exceeded %d bytes; result discarded", job.Caps.MaxOutputBytes), dur)
	}

	outcome := parseGuestOutput(stdout.Bytes(), dur)
	if !outcome.OK && outcome.FailureKind == FailureExecutionFailed && runErr != nil && outcome.Detail == "guest produced no output" {
		outcome.Detail = fmt.Sprintf("container exited: %v; stderr: %s", runErr, stderr.Tail(2048))
	}
	return outcome
}

// Healthy reports whether the docker daemon responds
func (r *DockerRuntime) Healthy(ctx context.Context) bool {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return exec.CommandContext(cctx, r.dockerBin(), "info").Run() == nil
}

func (r *DockerRuntime) guestCommand(language, harnessFile, skillFile string) (string, []string, error) {
	switch language {
	case "python":
		return pickImage(r.cfg.ImagePython, "python:3.11-slim"),
			[]string{"python", "/app/" + harnessFile, "/app/" + skillFile}, nil
	case "typescript":
		return pickImage(r.cfg.ImageTypeScript, "node:20-slim"),
			[]string{"node", "/app/" + harnessFile, "/app/" + skillFile}, nil
	case "go":
		return pickImage(r.cfg.ImageGo, "golang:1.21-alpine"),
			[]string{"go", "run", "/app/" + skillFile, "/app/" + harnessFile}, nil
	default:
		return "", nil, fmt.Errorf("unsupported language: %s", language)
	}
}

func pickImage(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

func (r *DockerRuntime) killContainer(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = exec.CommandContext(ctx, r.dockerBin(), "kill", name).Run()
}

func (r *DockerRuntime) dockerBin() string {
	if r.cfg.DockerBin != "" {
		return r.cfg.DockerBin
	}
	return "docker"
}

func containerName(executionID string) string {
	if executionID != "" {
		return "skill_" + executionID
	}
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return "skill_" + hex.EncodeToString(b)
}
