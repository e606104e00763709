// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package logger

import "github.com/wishub-ai/skillhub/pkg/logger/conf"

type Fields map[string]interface{}

// Logger is the minimal surface the rest of the codebase logs through.
// Implementations wrap a concrete logging core.
type Logger interface {
	Log(level conf.Level, args ...interface{})
	Logf(level conf.Level, format string, args ...interface{})
	WithFields(fields Fields) Logger
}
