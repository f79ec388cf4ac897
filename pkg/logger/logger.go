// Package logger 基于 log/slog 的结构化日志。
// 请求、生成等上下文字段放在 context 中，由 contextHandler 在写出时附加。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// ContextKey 日志上下文键
type ContextKey string

// 会被附加到日志中的 context 键
const (
	TraceIDKey      ContextKey = "trace_id"
	SpanIDKey       ContextKey = "span_id"
	RequestIDKey    ContextKey = "request_id"
	UserIDKey       ContextKey = "user_id"
	GenerationIDKey ContextKey = "generation_id"
)

// contextKeys 决定附加字段的输出顺序
var contextKeys = []ContextKey{TraceIDKey, SpanIDKey, RequestIDKey, UserIDKey, GenerationIDKey}

var defaultLogger atomic.Pointer[slog.Logger]

// Init 初始化输出到标准输出的日志器
func Init(level, format string) {
	InitWithWriter(os.Stdout, level, format)
}

// InitWithWriter 初始化日志器并设为 slog 默认日志器；format 为 json 或 text
func InitWithWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level), AddSource: true}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	l := slog.New(contextHandler{Handler: h})
	defaultLogger.Store(l)
	slog.SetDefault(l)
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Default 返回当前日志器，未初始化时使用 info 级别的 JSON 输出
func Default() *slog.Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	Init("info", "json")
	return defaultLogger.Load()
}

// contextHandler 从 context 读取已知键并附加为字段，空值跳过
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		for _, key := range contextKeys {
			if v := ctx.Value(key); v != nil && v != "" {
				r.AddAttrs(slog.Any(string(key), v))
			}
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name)}
}

// FromContext 返回绑定了 ctx 字段的日志器，适合在一个函数内多次记录
func FromContext(ctx context.Context) *slog.Logger {
	l := Default()
	if ctx == nil {
		return l
	}
	var attrs []slog.Attr
	for _, key := range contextKeys {
		if v := ctx.Value(key); v != nil && v != "" {
			attrs = append(attrs, slog.Any(string(key), v))
		}
	}
	if len(attrs) == 0 {
		return l
	}
	// 字段已绑定，写出时不再从 context 重复附加
	if ch, ok := l.Handler().(contextHandler); ok {
		return slog.New(ch.Handler.WithAttrs(attrs))
	}
	return slog.New(l.Handler().WithAttrs(attrs))
}

// WithContext 向 context 写入日志字段
func WithContext(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

// log 记录调用方位置而不是本包的包装函数
func log(ctx context.Context, level slog.Level, msg string, args ...any) {
	l := Default()
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}

// Info 记录 INFO 日志
func Info(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelInfo, msg, args...)
}

// Debug 记录 DEBUG 日志
func Debug(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelDebug, msg, args...)
}

// Warn 记录 WARN 日志
func Warn(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelWarn, msg, args...)
}

// Error 记录 ERROR 日志，err 以 error 字段输出
func Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	log(ctx, slog.LevelError, msg, args...)
}

// Fatal 记录 ERROR 日志后退出进程
func Fatal(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	log(ctx, slog.LevelError, msg, args...)
	os.Exit(1)
}
