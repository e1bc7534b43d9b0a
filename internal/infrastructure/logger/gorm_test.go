package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var errSerialization = errors.New("could not serialize access")

func TestGormLogger_Trace(t *testing.T) {
	slow := time.Now().Add(-time.Second)

	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		opts      []GormLoggerOption
		begin     time.Time
		err       error
		wantMsg   string
		wantLevel zapcore.Level
	}{
		{
			name:      "query at info",
			level:     gormlogger.Info,
			begin:     time.Now(),
			wantMsg:   "SQL Query",
			wantLevel: zapcore.DebugLevel,
		},
		{
			name:      "error",
			level:     gormlogger.Error,
			begin:     time.Now(),
			err:       errors.New("boom"),
			wantMsg:   "SQL Error",
			wantLevel: zapcore.ErrorLevel,
		},
		{
			name:  "record not found ignored",
			level: gormlogger.Error,
			begin: time.Now(),
			err:   gormlogger.ErrRecordNotFound,
		},
		{
			name:      "expected conflict logged at debug",
			level:     gormlogger.Error,
			opts:      []GormLoggerOption{WithExpectedErrors(func(err error) bool { return errors.Is(err, errSerialization) })},
			begin:     time.Now(),
			err:       errSerialization,
			wantMsg:   "SQL conflict",
			wantLevel: zapcore.DebugLevel,
		},
		{
			name:      "slow query",
			level:     gormlogger.Warn,
			opts:      []GormLoggerOption{WithSlowThreshold(time.Nanosecond)},
			begin:     slow,
			wantMsg:   "SLOW SQL",
			wantLevel: zapcore.WarnLevel,
		},
		{
			name:  "silent",
			level: gormlogger.Silent,
			begin: time.Now(),
			err:   errors.New("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level, tt.opts...)

			gl.Trace(context.Background(), tt.begin, func() (string, int64) {
				return `SELECT data FROM documents WHERE path = ?`, 1
			}, tt.err)

			logs := recorded.All()
			if tt.wantMsg == "" {
				assert.Empty(t, logs)
				return
			}
			require.Len(t, logs, 1)
			assert.Contains(t, logs[0].Message, tt.wantMsg)
			assert.Equal(t, tt.wantLevel, logs[0].Level)
		})
	}
}

func TestGormLogger_Trace_CarriesRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info)

	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-1")
	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "req-1", logs[0].ContextMap()["request_id"])
}

func TestGormLogger_LogMode(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info)
	changed, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Info, gl.logLevel)
	assert.Equal(t, gormlogger.Warn, changed.logLevel)
}

func TestMapGormLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Info,
		"debug":   gormlogger.Info,
		"unknown": gormlogger.Warn,
	}
	for level, want := range tests {
		t.Run(level, func(t *testing.T) {
			assert.Equal(t, want, MapGormLogLevel(level))
		})
	}
}
