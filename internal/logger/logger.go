// Package logger provides the process-wide structured logger. Before Init is
// called it is a no-op, so library code and tests can log freely without
// configuration.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log = zap.NewNop().Sugar()

// Init configures the global logger. With an empty file path output goes to
// stdout with a console encoder; with a file path output goes to a rotated
// JSON log file.
func Init(level, file string) {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	var core zapcore.Core
	if file == "" {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.Lock(os.Stdout),
			lvl,
		)
	} else {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    128, // megabytes
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
		core = zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotator),
			lvl,
		)
	}

	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = log.Sync()
}

func Debug(args ...interface{}) { log.Debug(args...) }
func Info(args ...interface{})  { log.Info(args...) }
func Warn(args ...interface{})  { log.Warn(args...) }
func Error(args ...interface{}) { log.Error(args...) }

func Debugf(template string, args ...interface{}) { log.Debugf(template, args...) }
func Infof(template string, args ...interface{})  { log.Infof(template, args...) }
func Warnf(template string, args ...interface{})  { log.Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { log.Errorf(template, args...) }

// With returns a child logger with the given key/value context attached.
func With(args ...interface{}) *zap.SugaredLogger { return log.With(args...) }
