// Package logging provides structured logging utilities.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every log line
const ServiceName = "timbercalc"

var (
	// Logger is the global logger instance
	Logger *zap.Logger

	// Sugar is the sugared logger for convenience
	Sugar *zap.SugaredLogger

	mu      sync.Mutex
	logFile *os.File
)

// Config contains logging configuration
type Config struct {
	// Level is the minimum log level
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console)
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output is the output destination (stdout, stderr, file path)
	Output string `json:"output" yaml:"output" mapstructure:"output"`

	// Development enables development mode
	Development bool `json:"development" yaml:"development" mapstructure:"development"`
}

// DefaultConfig keeps the CLI quiet: warnings and errors on stderr
func DefaultConfig() Config {
	return Config{
		Level:       "warn",
		Format:      "console",
		Output:      "stderr",
		Development: false,
	}
}

// New builds a logger from cfg. When cfg.Output is a file path the
// returned file must be closed by the caller; it is nil otherwise.
// An unknown level falls back to info.
func New(cfg Config) (*zap.Logger, *os.File, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}

	var (
		sink zapcore.WriteSyncer
		file *os.File
	)
	switch cfg.Output {
	case "", "stderr":
		sink = zapcore.Lock(os.Stderr)
	case "stdout":
		sink = zapcore.Lock(os.Stdout)
	default:
		file, err = os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, err
		}
		sink = zapcore.AddSync(file)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		// No ANSI colors in log files
		if file == nil {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	opts := []zap.Option{zap.AddCaller(), zap.Fields(zap.String("service", ServiceName))}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(zapcore.NewCore(encoder, sink, level), opts...), file, nil
}

// Initialize replaces the global logger. A previously opened log file is
// closed after the swap.
func Initialize(cfg Config) error {
	logger, file, err := New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if Logger != nil {
		_ = Logger.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
	Logger, Sugar, logFile = logger, logger.Sugar(), file
	return nil
}

// Sync flushes the logger
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Named returns a child logger for a component (pricing, bill, storage, ...).
func Named(component string) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return Logger.Named(component)
}

// Error logs at error level
func Error(msg string, fields ...zap.Field) {
	Named("main").Error(msg, fields...)
}

func init() {
	_ = Initialize(DefaultConfig())
}
