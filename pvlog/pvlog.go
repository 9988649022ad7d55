// Copyright 2021 the System Transparency Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pvlog exposes leveled logging capabilities.
//
// pvlog wraps two loggers and adds log levels to them:
// There is a standard "log" package logger and another
// using the kernel syslog system.
package pvlog

import (
	"os"
)

const (
	prefix   string = "pciview: "
	errorTag string = "[ERROR] "
	warnTag  string = "[WARN]  "
	infoTag  string = "[INFO]  "
	debugTag string = "[DEBUG] "
)

type LogLevel int

const (
	ErrorLevel LogLevel = iota
	WarnLevel
	InfoLevel
	DebugLevel
)

type LogOutput int

const (
	StdError LogOutput = iota
	KernelSyslog
)

var pvl levelLogger

func init() {
	pvl = newStandardLogger(os.Stderr)
}

type levelLogger interface {
	setLevel(level LogLevel)
	logLevel() LogLevel
	error(format string, v ...interface{})
	warn(format string, v ...interface{})
	info(format string, v ...interface{})
	debug(format string, v ...interface{})
}

// SetOutput sets the package's underlying logger.
func SetOutput(o LogOutput) error {
	switch o {
	case KernelSyslog:
		klog, err := newKernelLogger()
		if err != nil {
			return err
		}

		klog.setLevel(pvl.logLevel())
		pvl = klog
	default:
		sl := newStandardLogger(os.Stderr)
		sl.setLevel(pvl.logLevel())
		pvl = sl
	}

	return nil
}

// SetLevel sets the logging level of the pvlog package.
func SetLevel(l LogLevel) {
	switch l {
	case ErrorLevel, WarnLevel, InfoLevel:
		pvl.setLevel(l)
	default:
		pvl.setLevel(DebugLevel)
	}
}

// Level returns the log level set.
func Level() LogLevel {
	return pvl.logLevel()
}

// Error prints error messages to the currently active logger when permitted
// by the log level. Input can be formatted according to fmt.Printf.
func Error(format string, v ...interface{}) {
	pvl.error(format, v...)
}

// Warn prints warning messages to the currently active logger when permitted
// by the log level. Input can be formatted according to fmt.Printf.
func Warn(format string, v ...interface{}) {
	pvl.warn(format, v...)
}

// Info prints info messages to the currently active logger when permitted
// by the log level. Input can be formatted according to fmt.Printf.
func Info(format string, v ...interface{}) {
	pvl.info(format, v...)
}

// Debug prints debug messages to the currently active logger when permitted
// by the log level. Input can be formatted according to fmt.Printf.
func Debug(format string, v ...interface{}) {
	pvl.debug(format, v...)
}
