package configslog

import (
	"strings"

	"formdesk.link/configs"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the structured logger, SLog its sugared twin. Both are no-ops until InitLogger runs,
// so packages can log safely from tests and tools that never initialise logging.
var (
	Log  = zap.NewNop()
	SLog = Log.Sugar()
)

// InitLogger builds the process logger from APP_ENV and LOG_LEVEL.
func InitLogger() {
	var cfg zap.Config
	if configs.IsProduction() {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level, err := zapcore.ParseLevel(strings.ToLower(configs.GetEnv("LOG_LEVEL", ""))); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		logger = zap.NewExample()
		logger.Error("logger config build failed, falling back to example logger", zap.Error(err))
	}
	SetLogger(logger)
}

// SetLogger replaces both loggers. Tests use it to capture output.
func SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	Log = logger
	SLog = logger.Sugar()
}

// SyncLogger flushes buffered entries; meant to be deferred by entrypoints.
func SyncLogger() {
	_ = Log.Sync()
}
