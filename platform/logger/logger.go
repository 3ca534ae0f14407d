// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key for user ID
	UserIDKey contextKey = "user_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and user_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		newLogger = newLogger.WithUserID(userID)
	}

	return newLogger
}

// WithRequestID returns a logger with the request ID attached.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With("request_id", requestID)}
}

// WithUserID returns a logger with the user ID attached.
func (l *Logger) WithUserID(userID string) *Logger {
	return &Logger{Logger: l.Logger.With("user_id", userID)}
}

// HTTPRequest logs an HTTP request with timing information.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http request",
		"method", method,
		"path", path,
		"status", status,
		"latency_ms", latencyMs,
		"client_ip", clientIP,
	)
}

// SagaStep logs a committed step of a multi-store write sequence.
func (l *Logger) SagaStep(op, step string, subjectID string) {
	l.Debug("saga step committed",
		"op", op,
		"step", step,
		"subject_id", subjectID,
	)
}

// CompensationFailed logs a rollback write that itself failed. The original
// saga error is surfaced to the caller; this failure is observability only.
func (l *Logger) CompensationFailed(op, step string, err error) {
	l.Error("compensation failed",
		"op", op,
		"step", step,
		"error", err,
	)
}

// StoreError logs a backing-store operation failure.
func (l *Logger) StoreError(store, operation string, err error) {
	l.Error("store error",
		"store", store,
		"operation", operation,
		"error", err,
	)
}

// RateLimitExceeded logs a rate limit rejection.
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate limit exceeded",
		"client_ip", clientIP,
		"path", path,
	)
}
