// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package log implements leveled, teeable logging on top of Go's
// standard log package. A standard logger is available as a package
// global and via package functions. Nil *Loggers are valid and
// ignore all messages, so loggers can be threaded through APIs
// unconditionally.
package log

import (
	"fmt"
	golog "log"
	"os"
)

// Level defines the level of logging. Higher levels are more verbose.
type Level int

const (
	// OffLevel turns logging off.
	OffLevel Level = iota
	// ErrorLevel outputs only error messages.
	ErrorLevel
	// InfoLevel is the standard reporting level.
	InfoLevel
	// DebugLevel outputs detailed debugging output.
	DebugLevel
)

// An Outputter receives published log messages. Go's *log.Logger
// implements Outputter.
type Outputter interface {
	Output(calldepth int, s string) error
}

// A Logger publishes messages at or below its level to its
// outputter. Nil Loggers ignore all log messages.
type Logger struct {
	// Outputter receives all messages at or below Level.
	Outputter
	// Level is the publishing level of this Logger.
	Level Level

	parent *Logger
	prefix string
}

// New creates a new Logger that publishes messages at or below the
// provided level to the provided outputter.
func New(out Outputter, level Level) *Logger {
	if level == OffLevel {
		return nil
	}
	return &Logger{Outputter: out, Level: level}
}

// At tells whether the logger is at or below the provided level.
func (l *Logger) At(level Level) bool {
	return l != nil && level <= l.Level
}

// Tee constructs a new logger that publishes to the provided
// outputter and also forwards to l, prefixing forwarded messages
// with prefix. Out may be nil, in which case messages are published
// to l only.
func (l *Logger) Tee(out Outputter, prefix string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		Outputter: out,
		Level:     l.Level,
		parent:    l,
		prefix:    prefix,
	}
}

// Print publishes a message at InfoLevel in the manner of fmt.Print.
func (l *Logger) Print(v ...interface{}) {
	l.post(2, InfoLevel, "", fmt.Sprint(v...))
}

// Printf publishes a message at InfoLevel in the manner of fmt.Printf.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.post(2, InfoLevel, "", fmt.Sprintf(format, args...))
}

// Error publishes a message at ErrorLevel in the manner of fmt.Print.
func (l *Logger) Error(v ...interface{}) {
	l.post(2, ErrorLevel, "", fmt.Sprint(v...))
}

// Errorf publishes a message at ErrorLevel in the manner of fmt.Printf.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.post(2, ErrorLevel, "", fmt.Sprintf(format, args...))
}

// Debug publishes a message at DebugLevel in the manner of fmt.Print.
func (l *Logger) Debug(v ...interface{}) {
	l.post(2, DebugLevel, "", fmt.Sprint(v...))
}

// Debugf publishes a message at DebugLevel in the manner of fmt.Printf.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.post(2, DebugLevel, "", fmt.Sprintf(format, args...))
}

func (l *Logger) post(calldepth int, level Level, prefix, s string) {
	if l == nil {
		return
	}
	if l.Outputter != nil && level <= l.Level {
		l.Output(calldepth+1, prefix+s)
	}
	if l.parent != nil {
		l.parent.post(calldepth+1, level, prefix+l.prefix, s)
	}
}

// Std is the standard logger.
var Std = New(golog.New(os.Stderr, "", golog.LstdFlags), InfoLevel)

// Convenience functions delegating to the Std logger.
var (
	Print  = Std.Print
	Printf = Std.Printf
	Error  = Std.Error
	Errorf = Std.Errorf
	Debug  = Std.Debug
	Debugf = Std.Debugf
	At     = Std.At
)

// Fatal outputs a message to the standard outputter in the manner of
// fmt.Print and then calls os.Exit(1).
func Fatal(v ...interface{}) {
	Std.Output(2, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf outputs a message to the standard outputter in the manner of
// fmt.Printf and then calls os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	Std.Output(2, fmt.Sprintf(format, v...))
	os.Exit(1)
}
