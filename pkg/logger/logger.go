// Package logger provides the structured logging setup shared by the
// PageSim binaries, built on top of Zap.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "pagesim"

// Config holds all the configuration for the logger.
type Config struct {
	// Level sets the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
	// OutputFile is a path, or "stdout"/"stderr".
	OutputFile string `yaml:"output_file"`
}

// DefaultConfig logs warnings and above to stderr in console format, which
// keeps simulation output on stdout readable.
func DefaultConfig() Config {
	return Config{Level: "warn", Format: "console", OutputFile: "stderr"}
}

// New creates a zap.Logger from the configuration. Unknown levels fall back to info.
func New(config Config) (*zap.Logger, error) {
	// Parse and set the log level.
	logLevel := zap.NewAtomicLevel()
	if err := logLevel.UnmarshalText([]byte(config.Level)); err != nil {
		logLevel.SetLevel(zap.InfoLevel)
	}

	writeSyncer, err := getWriteSyncer(config.OutputFile)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(getEncoder(config.Format), writeSyncer, logLevel)

	logger := zap.New(core, zap.AddCaller()).
		WithOptions(zap.Fields(zap.String("service", serviceName)))

	return logger, nil
}

// getEncoder picks the JSON or console encoder.
func getEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if strings.ToLower(format) == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// getWriteSyncer selects where the logs go.
func getWriteSyncer(outputFile string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(outputFile) {
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr", "":
		return zapcore.AddSync(os.Stderr), nil
	default:
		// Append to the file, creating it if needed.
		file, err := os.OpenFile(outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", outputFile, err)
		}
		return zapcore.AddSync(file), nil
	}
}
