package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	log  *slog.Logger
	once sync.Once
)

func get() *slog.Logger {
	once.Do(func() {
		if log == nil {
			log = slog.New(slog.NewJSONHandler(os.Stdout, nil))
		}
	})
	return log
}

// Init configures the global logger. Level is one of debug|info|warn|error.
func Init(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}

// Error accepts either (msg, err, kv...) or (msg, kv...) call shapes.
func Error(msg string, args ...any) {
	if len(args) > 0 {
		if err, ok := args[0].(error); ok {
			args = append([]any{"error", err}, args[1:]...)
		}
	}
	get().Error(msg, args...)
}
