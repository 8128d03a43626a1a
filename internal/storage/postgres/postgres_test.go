package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newGormLogger(zap.New(core))
	sql := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	l.Trace(ctx, time.Now(), sql, nil)
	assert.Zero(t, logs.Len(), "fast queries are below the default level")

	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Equal(t, 1, logs.FilterMessage("slow query").Len())

	l.Trace(ctx, time.Now(), sql, errors.New("boom"))
	assert.Equal(t, 1, logs.FilterMessage("trace").FilterLevelExact(zapcore.ErrorLevel).Len())

	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Equal(t, 2, logs.Len(), "missing rows are not errors")

	l.LogMode(logger.Silent).Trace(ctx, time.Now(), sql, errors.New("boom"))
	assert.Equal(t, 2, logs.Len())

	l.LogMode(logger.Info).Trace(ctx, time.Now(), sql, nil)
	assert.Equal(t, 3, logs.Len())
}
