// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package log wires the process logger: terminal or JSON handlers with a
// runtime adjustable level, on top of the geth logging stack used
// throughout the module.
package log

import (
	"io"
	"log/slog"

	ethlog "github.com/luxfi/geth/log"
)

// Logger carries the root logger and its level control.
type Logger struct {
	ethlog.Logger

	logLevel *slog.LevelVar
}

// InitLogger initialises the process logger writing to [writer] in
// terminal or JSON format and installs it as the default.
func InitLogger(alias string, level string, jsonFormat bool, useColor bool, writer io.Writer) (Logger, error) {
	logLevel := &slog.LevelVar{}

	var handler slog.Handler
	if jsonFormat {
		handler = ethlog.JSONHandlerWithLevel(writer, logLevel)
	} else {
		handler = ethlog.NewTerminalHandlerWithLevel(writer, logLevel, useColor)
	}

	l := Logger{
		Logger:   ethlog.NewLogger(handler).New("app", alias),
		logLevel: logLevel,
	}
	if err := l.SetLogLevel(level); err != nil {
		return Logger{}, err
	}
	ethlog.SetDefault(l.Logger)
	return l, nil
}

// SetLogLevel adjusts the level of the initialised handler.
func (l *Logger) SetLogLevel(level string) error {
	logLevel, err := ethlog.LvlFromString(level)
	if err != nil {
		return err
	}
	l.logLevel.Set(logLevel)
	return nil
}
