// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package conf

import "strings"

type Level int8

const (
	TraceLevel Level = iota - 1
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// ParseLevel converts a textual level into a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// LogConfig holds the configuration of a logger instance.
type LogConfig struct {
	Core      string
	Level     Level
	Formatter Formatter

	// FileName enables file output with rotation; empty logs to stdout.
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func DefaultConfig() *LogConfig {
	return &LogConfig{
		Core:       "logrus",
		Level:      InfoLevel,
		Formatter:  ConsoleFormater,
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 28,
	}
}

func (c *LogConfig) Validate() *LogConfig {
	if !isValidFormatter(c.Formatter) {
		c.Formatter = ConsoleFormater
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 100
	}
	return c
}
