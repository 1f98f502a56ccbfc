package zlog

import (
	"os"
	"strings"
	"sync"

	"SurfSense/internal/config"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// L 返回全局 logger；首次调用时按 logConfig 初始化
func L() *zap.Logger {
	once.Do(func() {
		logger = newLogger(config.GetConfig().LogConfig)
	})
	return logger
}

// ReplaceLogger 替换全局 logger（测试中用于捕获日志）
func ReplaceLogger(l *zap.Logger) {
	once.Do(func() {})
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

func newLogger(conf config.LogConfig) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zapcore.InfoLevel
	if lv := strings.TrimSpace(conf.Level); lv != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(lv))); err != nil {
			level = zapcore.InfoLevel
		}
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), level),
	}

	// 配置了日志路径时，额外写入滚动文件（JSON 格式，便于采集）
	if path := strings.TrimSpace(conf.LogPath); path != "" {
		maxSize := conf.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		maxBackups := conf.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 10
		}
		maxAge := conf.MaxAgeDays
		if maxAge <= 0 {
			maxAge = 30
		}
		w := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	L().Fatal(msg, fields...)
}

func Sync() {
	_ = L().Sync()
}
