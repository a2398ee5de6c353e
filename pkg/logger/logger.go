package logger

import (
	"context"
	"log/slog"
	"time"
)

type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	DebugContext(ctx context.Context, msg string, fields ...any)
	InfoContext(ctx context.Context, msg string, fields ...any)
	WarnContext(ctx context.Context, msg string, fields ...any)
	ErrorContext(ctx context.Context, msg string, fields ...any)

	With(fields ...any) Logger
}

type Attr = slog.Attr

func String(key, value string) Attr {
	return slog.String(key, value)
}

func Int(key string, value int) Attr {
	return slog.Int(key, value)
}

func Bool(key string, value bool) Attr {
	return slog.Bool(key, value)
}

func Any(key string, value any) Attr {
	return slog.Any(key, value)
}

func Duration(key string, value time.Duration) Attr {
	return slog.Duration(key, value)
}

func Err(err error) Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
