// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package logrus

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wishub-ai/skillhub/pkg/logger"
	"github.com/wishub-ai/skillhub/pkg/logger/conf"
)

// Wrapper adapts a logrus entry to the logger.Logger interface.
type Wrapper struct {
	entry *logrus.Entry
}

func NewLogrusWrapper(c *conf.LogConfig) (logger.Logger, error) {
	c = c.Validate()

	l := logrus.New()
	l.SetLevel(toLogrusLevel(c.Level))
	l.SetFormatter(toLogrusFormatter(c.Formatter))
	l.SetOutput(buildOutput(c))

	return &Wrapper{entry: logrus.NewEntry(l)}, nil
}

func (w *Wrapper) Log(level conf.Level, args ...interface{}) {
	w.entry.Log(toLogrusLevel(level), args...)
}

func (w *Wrapper) Logf(level conf.Level, format string, args ...interface{}) {
	w.entry.Logf(toLogrusLevel(level), format, args...)
}

func (w *Wrapper) WithFields(fields logger.Fields) logger.Logger {
	return &Wrapper{entry: w.entry.WithFields(logrus.Fields(fields))}
}

func toLogrusLevel(level conf.Level) logrus.Level {
	switch level {
	case conf.TraceLevel:
		return logrus.TraceLevel
	case conf.DebugLevel:
		return logrus.DebugLevel
	case conf.InfoLevel:
		return logrus.InfoLevel
	case conf.WarnLevel:
		return logrus.WarnLevel
	case conf.ErrorLevel:
		return logrus.ErrorLevel
	case conf.FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

func toLogrusFormatter(f conf.Formatter) logrus.Formatter {
	switch f {
	case conf.JSONFormater:
		return &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	case conf.StructuredFormater:
		return &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}
	default:
		return &logrus.TextFormatter{FullTimestamp: true}
	}
}

func buildOutput(c *conf.LogConfig) io.Writer {
	if c.FileName == "" {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   c.FileName,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   c.Compress,
	}
}
