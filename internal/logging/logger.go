package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the application logger. Development gets a human console
// encoder, everything else JSON. When logstashAddr is set, log lines are
// mirrored to Logstash over TCP in addition to stderr.
func NewLogger(env, logstashAddr string) (*zap.Logger, func(), error) {
	var encoder zapcore.Encoder
	level := zap.InfoLevel
	if env == "development" {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
		level = zap.DebugLevel
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	}

	stderrCore := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)

	cleanup := func() {}
	core := stderrCore
	if logstashAddr != "" {
		writer, err := NewLogstashWriter(logstashAddr)
		if err != nil {
			return nil, nil, err
		}
		jsonCfg := zap.NewProductionEncoderConfig()
		jsonCfg.TimeKey = "timestamp"
		jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		mirror := zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), writer, level)
		core = zapcore.NewTee(stderrCore, mirror)
		cleanup = func() { _ = writer.Close() }
	}

	logger := zap.New(core, zap.AddCaller())
	return logger, cleanup, nil
}
