package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is the zap-backed LogManager. All methods go through emit, which
// skips formatting when the level is disabled and attaches the registered
// context fields (request, session and subject ids) when a ctx is given.
type logger struct {
	Log         *zap.SugaredLogger
	atomicLevel zap.AtomicLevel
}

func (l *logger) emit(ctx context.Context, lvl zapcore.Level, format string, args []any) {
	if !l.Log.Level().Enabled(lvl) {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s := l.Log
	if fields := withContext(ctx); len(fields) > 0 {
		s = s.With(fields...)
	}
	s.Log(lvl, msg)
}

func (l *logger) Debug(args ...any) { l.emit(nil, zapcore.DebugLevel, fmt.Sprint(args...), nil) }
func (l *logger) Info(args ...any)  { l.emit(nil, zapcore.InfoLevel, fmt.Sprint(args...), nil) }
func (l *logger) Warn(args ...any)  { l.emit(nil, zapcore.WarnLevel, fmt.Sprint(args...), nil) }
func (l *logger) Error(args ...any) { l.emit(nil, zapcore.ErrorLevel, fmt.Sprint(args...), nil) }

func (l *logger) DebugF(format string, args ...any) { l.emit(nil, zapcore.DebugLevel, format, args) }
func (l *logger) InfoF(format string, args ...any)  { l.emit(nil, zapcore.InfoLevel, format, args) }
func (l *logger) WarnF(format string, args ...any)  { l.emit(nil, zapcore.WarnLevel, format, args) }
func (l *logger) ErrorF(format string, args ...any) { l.emit(nil, zapcore.ErrorLevel, format, args) }

func (l *logger) DebugFCtx(ctx context.Context, format string, args ...any) {
	l.emit(ctx, zapcore.DebugLevel, format, args)
}

func (l *logger) InfoFCtx(ctx context.Context, format string, args ...any) {
	l.emit(ctx, zapcore.InfoLevel, format, args)
}

func (l *logger) WarnFCtx(ctx context.Context, format string, args ...any) {
	l.emit(ctx, zapcore.WarnLevel, format, args)
}

func (l *logger) ErrorFCtx(ctx context.Context, format string, args ...any) {
	l.emit(ctx, zapcore.ErrorLevel, format, args)
}

// With returns a child sharing the parent's level, so SetLogLevel on either
// affects both.
func (l *logger) With(keyValues ...any) LogManager {
	return &logger{Log: l.Log.With(keyValues...), atomicLevel: l.atomicLevel}
}

func (l *logger) Sync() error { return l.Log.Sync() }

func (l *logger) SetLogLevel(level string) error {
	return l.atomicLevel.UnmarshalText([]byte(level))
}
