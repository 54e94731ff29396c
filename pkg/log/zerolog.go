package log

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	kiterrors "github.com/gomodelkit/modelkit/pkg/errors"
)

// UseZerolog installs a zerolog-backed provider as the package default and
// routes library warnings (pkg/errors.Warn) through it. Warning types that
// implement zerolog.LogObjectMarshaler are embedded as structured objects.
func UseZerolog(w io.Writer, level Level) {
	zl := zerolog.New(w).With().Timestamp().Logger().Level(toZerologLevel(level))
	provider := &zerologProvider{logger: zl, level: level}
	SetProvider(provider)

	kiterrors.SetZerologWarnFunc(func(warning error) {
		event := zl.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			event.EmbedObject(obj)
		}
		event.Msg(warning.Error())
	})
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// zerologProvider implements LoggerProvider on top of a zerolog.Logger.
type zerologProvider struct {
	mu     sync.Mutex
	logger zerolog.Logger
	level  Level
}

func (p *zerologProvider) GetLogger() Logger {
	return &zerologLogger{logger: p.logger, provider: p}
}

func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{
		logger:   p.logger.With().Str(ComponentKey, name).Logger(),
		provider: p,
	}
}

func (p *zerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.logger = p.logger.Level(toZerologLevel(level))
}

func (p *zerologProvider) enabled(level Level) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return level >= p.level
}

// zerologLogger adapts zerolog to the Logger interface.
type zerologLogger struct {
	logger   zerolog.Logger
	provider *zerologProvider
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(l.logger.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.emit(l.logger.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.emit(l.logger.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { l.emit(l.logger.Error(), msg, fields) }

func (l *zerologLogger) emit(event *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			event = event.AnErr(key, v)
		default:
			event = event.Interface(key, v)
		}
	}
	event.Msg(msg)
}

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zerologLogger{logger: ctx.Logger(), provider: l.provider}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.provider.enabled(level)
}
