// Package logging wires the process-wide zap logger.
package logging

import (
	"os"

	"github.com/netvigil/ispadm/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup builds the global zap logger from config and installs it with
// zap.ReplaceGlobals. Interactive commands default to console output;
// file output is rotated with lumberjack when enabled.
func Setup(cfg config.LoggerConfig) error {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stderr"}

	var logger *zap.Logger
	var err error
	if cfg.FileEnable && cfg.Filename != "" {
		fileSink := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(fileSink),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stderr),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			return err
		}
	}

	zap.ReplaceGlobals(logger)
	return nil
}
