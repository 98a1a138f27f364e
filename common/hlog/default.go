package hlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

var (
	// 提供默认记录器供使用
	logger FullLogger = newDefaultLogger()

	// 提供系统记录器供使用，事件循环内部日志均经由此记录器输出
	sysLogger FullLogger = &systemLogger{
		logger: newDefaultLogger(),
		prefix: systemLogPrefix,
	}
)

func newDefaultLogger() *defaultLogger {
	return &defaultLogger{
		std:   log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile|log.Lmicroseconds),
		depth: 4,
		level: LevelInfo,
	}
}

// SetOutput 设置默认记录器和系统记录器的写入器。默认为 os.Stderr。
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
	sysLogger.SetOutput(w)
}

// SetLevel 设置默认记录器和系统记录器的输出级别，低于该级别将不输出。默认级别为 LevelInfo。并发不安全。
func SetLevel(lv Level) {
	logger.SetLevel(lv)
	sysLogger.SetLevel(lv)
}

// DefaultLogger 返回默认记录器。
func DefaultLogger() FullLogger {
	return logger
}

// SystemLogger 返回系统记录器。该函数不建议业务端使用。
func SystemLogger() FullLogger {
	return sysLogger
}

// SetSystemLogger 设置系统记录器。并发不安全，须在事件循环运行前调用。
func SetSystemLogger(v FullLogger) {
	sysLogger = &systemLogger{
		logger: v,
		prefix: systemLogPrefix,
	}
}

// SetLogger 设置默认记录器和系统记录器。并发不安全，须在事件循环运行前调用。
func SetLogger(v FullLogger) {
	logger = v
	SetSystemLogger(v)
}

type defaultLogger struct {
	std   *log.Logger
	level Level
	depth int
}

func (l *defaultLogger) SetOutput(w io.Writer) {
	l.std.SetOutput(w)
}

func (l *defaultLogger) SetLevel(lv Level) {
	l.level = lv
}

func (l *defaultLogger) Trace(v ...any) { l.logf(LevelTrace, nil, v...) }
func (l *defaultLogger) Debug(v ...any) { l.logf(LevelDebug, nil, v...) }
func (l *defaultLogger) Info(v ...any)  { l.logf(LevelInfo, nil, v...) }
func (l *defaultLogger) Warn(v ...any)  { l.logf(LevelWarn, nil, v...) }
func (l *defaultLogger) Error(v ...any) { l.logf(LevelError, nil, v...) }
func (l *defaultLogger) Fatal(v ...any) { l.logf(LevelFatal, nil, v...) }

func (l *defaultLogger) Tracef(format string, v ...any) { l.logf(LevelTrace, &format, v...) }
func (l *defaultLogger) Debugf(format string, v ...any) { l.logf(LevelDebug, &format, v...) }
func (l *defaultLogger) Infof(format string, v ...any)  { l.logf(LevelInfo, &format, v...) }
func (l *defaultLogger) Warnf(format string, v ...any)  { l.logf(LevelWarn, &format, v...) }
func (l *defaultLogger) Errorf(format string, v ...any) { l.logf(LevelError, &format, v...) }
func (l *defaultLogger) Fatalf(format string, v ...any) { l.logf(LevelFatal, &format, v...) }

func (l *defaultLogger) logf(lv Level, format *string, v ...any) {
	// 低于设置的日志级别，将不会输出。
	if l.level > lv {
		return
	}
	msg := lv.String()
	if format != nil {
		msg += fmt.Sprintf(*format, v...)
	} else {
		msg += fmt.Sprint(v...)
	}
	_ = l.std.Output(l.depth, msg)
	if lv == LevelFatal {
		os.Exit(1)
	}
}
