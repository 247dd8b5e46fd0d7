package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New 创建服务端日志：JSON 输出到标准输出，dir 非空时额外写入按大小轮转的文件。
// error.log 只记录 error 及以上级别。
func New(levelName, dir string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}

		cores = append(cores,
			zapcore.NewCore(encoder,
				zapcore.AddSync(&lumberjack.Logger{
					Filename: filepath.Join(dir, "app.log"), MaxSize: 100, MaxAge: 28, Compress: true,
				}),
				level,
			),
			zapcore.NewCore(encoder,
				zapcore.AddSync(&lumberjack.Logger{
					Filename: filepath.Join(dir, "error.log"), MaxSize: 100, MaxAge: 30, Compress: true,
				}),
				zap.ErrorLevel,
			),
		)
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// NewConsole 创建客户端诊断日志。浏览器中 stderr 会输出到开发者控制台。
func NewConsole() *zap.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		zap.DebugLevel,
	)
	return zap.New(core)
}
