package repo

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// zlogger routes gorm output through the global zerolog logger.
type zlogger struct {
	level logger.LogLevel
}

func newLogger() logger.Interface { return zlogger{level: logger.Warn} }

func (l zlogger) LogMode(level logger.LogLevel) logger.Interface {
	l.level = level
	return l
}

func (l zlogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Info {
		log.Info().Str("module", "repo.gorm").Msgf(msg, args...)
	}
}

func (l zlogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Warn {
		log.Warn().Str("module", "repo.gorm").Msgf(msg, args...)
	}
}

func (l zlogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Error {
		log.Error().Str("module", "repo.gorm").Msgf(msg, args...)
	}
}

func (l zlogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		sql, rows := fc()
		log.Error().Err(err).Str("module", "repo.gorm").Str("sql", sql).Int64("rows", rows).Msg("query failed")
		return
	}
	if zerolog.GlobalLevel() > zerolog.TraceLevel {
		return
	}
	sql, rows := fc()
	log.Trace().Str("module", "repo.gorm").Str("sql", sql).Int64("rows", rows).Dur("elapsed", time.Since(begin)).Msg("query")
}
