package hlog

import (
	"io"
)

const systemLogPrefix = "GALE: "

type systemLogger struct {
	logger FullLogger
	prefix string // 日志前缀
}

func (l *systemLogger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

func (l *systemLogger) SetLevel(lv Level) {
	l.logger.SetLevel(lv)
}

func (l *systemLogger) Trace(v ...any) { l.logger.Trace(l.with(v)...) }
func (l *systemLogger) Debug(v ...any) { l.logger.Debug(l.with(v)...) }
func (l *systemLogger) Info(v ...any)  { l.logger.Info(l.with(v)...) }
func (l *systemLogger) Warn(v ...any)  { l.logger.Warn(l.with(v)...) }
func (l *systemLogger) Error(v ...any) { l.logger.Error(l.with(v)...) }
func (l *systemLogger) Fatal(v ...any) { l.logger.Fatal(l.with(v)...) }

func (l *systemLogger) Tracef(format string, v ...any) { l.logger.Tracef(l.prefix+format, v...) }
func (l *systemLogger) Debugf(format string, v ...any) { l.logger.Debugf(l.prefix+format, v...) }
func (l *systemLogger) Infof(format string, v ...any)  { l.logger.Infof(l.prefix+format, v...) }
func (l *systemLogger) Warnf(format string, v ...any)  { l.logger.Warnf(l.prefix+format, v...) }
func (l *systemLogger) Errorf(format string, v ...any) { l.logger.Errorf(l.prefix+format, v...) }
func (l *systemLogger) Fatalf(format string, v ...any) { l.logger.Fatalf(l.prefix+format, v...) }

func (l *systemLogger) with(v []any) []any {
	return append([]any{l.prefix}, v...)
}
