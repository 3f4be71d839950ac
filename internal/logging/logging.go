package logging

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/ymkit/discobridge/internal/config"
)

var (
	httpLogger *zap.Logger = zap.NewNop()
	botLogger  *zap.Logger = zap.NewNop()
)

// Init builds the zap loggers: JSON to stdout always, plus per-subsystem
// rolling files (http.log for the API, bot.log for the gateway) when a log
// directory is configured. The bot logger also replaces the zap globals.
func Init(cfg config.Config) error {
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return err
		}
	}

	level := parseLevel(cfg.LogLevel)
	enabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= level })

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	consoleCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(os.Stdout), enabler)

	build := func(name, filename string) *zap.Logger {
		cores := []zapcore.Core{consoleCore}
		if cfg.LogDir != "" {
			lj := &lumberjack.Logger{
				Filename:   filepath.Join(cfg.LogDir, filename),
				MaxSize:    cfg.LogMaxSizeMB,
				MaxBackups: cfg.LogMaxBackups,
				MaxAge:     cfg.LogMaxAgeDays,
			}
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(lj), enabler))
		}
		return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Named(name)
	}

	httpLogger = build("http", "http.log")
	botLogger = build("bot", "bot.log")
	zap.ReplaceGlobals(botLogger)
	return nil
}

// HTTP returns the request-side logger.
func HTTP() *zap.Logger { return httpLogger }

// Bot returns the gateway-side logger.
func Bot() *zap.Logger { return botLogger }

// Sync flushes both loggers; safe to defer from main.
func Sync() {
	_ = httpLogger.Sync()
	_ = botLogger.Sync()
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "info", "":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
