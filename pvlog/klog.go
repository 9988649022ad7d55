// Copyright 2021 the System Transparency Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pvlog

import (
	"fmt"

	"github.com/u-root/u-root/pkg/ulog"

	"github.com/dyulu/pciview/pverror"
)

type kernelLogger struct {
	out   *ulog.KLog
	level LogLevel
}

const errOpInitKlog pverror.Op = "init klog"

func newKernelLogger() (*kernelLogger, error) {
	klog := ulog.KernelLog
	klog.SetLogLevel(ulog.KLogNotice)

	if err := klog.SetConsoleLogLevel(ulog.KLogInfo); err != nil {
		return nil, pverror.E(pverror.Pvlog, errOpInitKlog, err)
	}

	return &kernelLogger{
		out:   klog,
		level: DebugLevel,
	}, nil
}

func (l *kernelLogger) setLevel(level LogLevel) {
	l.level = level
}

func (l *kernelLogger) logLevel() LogLevel {
	return l.level
}

func (l *kernelLogger) error(format string, v ...interface{}) {
	if l.level >= ErrorLevel {
		l.out.Print(errorTag + prefix + fmt.Sprintf(format, v...))
	}
}

func (l *kernelLogger) warn(format string, v ...interface{}) {
	if l.level >= WarnLevel {
		l.out.Print(warnTag + prefix + fmt.Sprintf(format, v...))
	}
}

func (l *kernelLogger) info(format string, v ...interface{}) {
	if l.level >= InfoLevel {
		l.out.Print(infoTag + prefix + fmt.Sprintf(format, v...))
	}
}

func (l *kernelLogger) debug(format string, v ...interface{}) {
	if l.level >= DebugLevel {
		l.out.Print(debugTag + prefix + fmt.Sprintf(format, v...))
	}
}
