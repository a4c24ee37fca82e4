// Package logger provides standardized logging utilities for the rcc
// compiler, backed by logrus.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Global logger instance
var defaultLogger = logrus.New()

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logger configuration
type Config struct {
	Level     LogLevel
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool
	LogFile   string
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	output := cfg.Output
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		output = file
	}
	if output == nil {
		output = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(output)
	l.SetLevel(toLogrusLevel(cfg.Level))
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	l.SetReportCaller(cfg.AddSource)

	defaultLogger = l
	return nil
}

// InitDev initializes logging for development (debug level, text format)
func InitDev() {
	_ = Init(Config{
		Level:     LevelDebug,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: true,
	})
}

// InitProd initializes logging for production (info level, json format)
func InitProd(logDir string) error {
	logPath := filepath.Join(logDir, "rcc-compiler.log")
	return Init(Config{
		Level:   LevelInfo,
		Format:  "json",
		LogFile: logPath,
	})
}

func toLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// fields converts a flat slog-style ("key", value, "key", value, ...)
// varargs list into logrus.Fields, dropping a trailing unpaired key
// rather than panicking.
func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		f[key] = args[i+1]
	}
	return f
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	defaultLogger.WithFields(fields(args)).Debug(msg)
}

// Info logs an info message
func Info(msg string, args ...any) {
	defaultLogger.WithFields(fields(args)).Info(msg)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	defaultLogger.WithFields(fields(args)).Warn(msg)
}

// Error logs an error message
func Error(msg string, args ...any) {
	defaultLogger.WithFields(fields(args)).Error(msg)
}

// With returns a new entry carrying the given fields.
func With(args ...any) *logrus.Entry {
	return defaultLogger.WithFields(fields(args))
}

// Compiler-specific logging helpers

// LogPhase logs the start of a compilation phase
func LogPhase(phase string) {
	Info("starting compilation phase", "phase", phase)
}

// LogPhaseComplete logs the completion of a compilation phase
func LogPhaseComplete(phase string) {
	Info("completed compilation phase", "phase", phase)
}

// LogLexing logs lexing activity
func LogLexing(file string, tokenCount int) {
	Debug("lexing complete", "file", file, "tokens", tokenCount)
}

// LogParsing logs parsing activity
func LogParsing(file string, nodeCount int) {
	Debug("parsing complete", "file", file, "nodes", nodeCount)
}

// LogIRGeneration logs typed-IR construction
func LogIRGeneration(funcName string, blockCount int) {
	Debug("IR generation complete", "function", funcName, "blocks", blockCount)
}

// LogCodeGen logs code generation
func LogCodeGen(arch string, funcName string, instructionCount int) {
	Debug("code generation complete",
		"arch", arch,
		"function", funcName,
		"instructions", instructionCount)
}

// LogOptimization logs optimization passes
func LogOptimization(pass string, changeCount int) {
	Info("optimization pass complete", "pass", pass, "changes", changeCount)
}

// LogError logs a compilation error
func LogError(phase string, file string, line int, msg string) {
	Error("compilation error",
		"phase", phase,
		"file", file,
		"line", line,
		"message", msg)
}

// LogWarning logs a compilation warning
func LogWarning(phase string, file string, line int, msg string) {
	Warn("compilation warning",
		"phase", phase,
		"file", file,
		"line", line,
		"message", msg)
}

// LogCompilerStart logs compiler startup
func LogCompilerStart(args []string) {
	Info("rcc starting", "args", args)
}

// LogCompilerComplete logs compiler completion
func LogCompilerComplete(success bool, duration string) {
	if success {
		Info("compilation successful", "duration", duration)
	} else {
		Error("compilation failed", "duration", duration)
	}
}

// LogFileProcessing logs file processing start
func LogFileProcessing(file string) {
	Info("processing file", "file", file)
}

// LogLinkingStart logs linker start
func LogLinkingStart(objectCount int) {
	Info("starting linking", "objects", objectCount)
}

// LogLinkingComplete logs linker completion
func LogLinkingComplete(outputFile string) {
	Info("linking complete", "output", outputFile)
}
