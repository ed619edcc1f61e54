package devserver

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// gormLogger routes gorm's logging through zerolog. SQL statements go to
// the trace level.
type gormLogger struct {
	logger zerolog.Logger
}

func newGormLogger(logger zerolog.Logger) gormlogger.Interface {
	return &gormLogger{logger: logger.With().Str("component", "devserver.db").Logger()}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	var zl zerolog.Level
	switch level {
	case gormlogger.Silent:
		zl = zerolog.Disabled
	case gormlogger.Error:
		zl = zerolog.ErrorLevel
	case gormlogger.Warn:
		zl = zerolog.WarnLevel
	default:
		zl = zerolog.InfoLevel
	}
	return &gormLogger{logger: l.logger.Level(zl)}
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	l.logger.Info().Msgf(msg, args...)
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	l.logger.Warn().Msgf(msg, args...)
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	l.logger.Error().Msgf(msg, args...)
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		sql, rows := fc()
		l.logger.Warn().Err(err).Str("sql", sql).Int64("rows", rows).Dur("elapsed", time.Since(begin)).Msg("Query failed")
		return
	}

	if l.logger.GetLevel() > zerolog.TraceLevel {
		return
	}
	sql, rows := fc()
	l.logger.Trace().Str("sql", sql).Int64("rows", rows).Dur("elapsed", time.Since(begin)).Msg("Query")
}
