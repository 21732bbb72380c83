// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"context"
	"errors"
	"time"

	"github.com/go-strange/strange/pkg/log"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// GormLoggerAdapter routes gorm output through the process zap logger.
type GormLoggerAdapter struct {
	Config logger.Config
	Level  logger.LogLevel
}

func NewGormLoggerAdapter(config logger.Config, level logger.LogLevel) *GormLoggerAdapter {
	return &GormLoggerAdapter{Config: config, Level: level}
}

func (l *GormLoggerAdapter) sugar() *zap.SugaredLogger {
	return log.GetLogger().Desugar().WithOptions(zap.AddCallerSkip(2)).Sugar().With("component", "gorm")
}

func (l *GormLoggerAdapter) LogMode(level logger.LogLevel) logger.Interface {
	next := *l
	next.Level = level
	return &next
}

func (l *GormLoggerAdapter) Info(_ context.Context, msg string, data ...any) {
	if l.Level >= logger.Info {
		l.sugar().Infof(msg, data...)
	}
}

func (l *GormLoggerAdapter) Warn(_ context.Context, msg string, data ...any) {
	if l.Level >= logger.Warn {
		l.sugar().Warnf(msg, data...)
	}
}

func (l *GormLoggerAdapter) Error(_ context.Context, msg string, data ...any) {
	if l.Level >= logger.Error {
		l.sugar().Errorf(msg, data...)
	}
}

func (l *GormLoggerAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && l.Level >= logger.Error &&
		(!errors.Is(err, logger.ErrRecordNotFound) || !l.Config.IgnoreRecordNotFoundError):
		l.sugar().Errorw("sql failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case l.Config.SlowThreshold != 0 && elapsed > l.Config.SlowThreshold && l.Level >= logger.Warn:
		l.sugar().Warnw("slow sql", "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.Level >= logger.Info:
		l.sugar().Debugw("sql", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
