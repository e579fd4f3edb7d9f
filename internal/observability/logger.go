// Package observability provides logging and metrics for the engine.
package observability

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type correlationIDKey struct{}
type campaignIDKey struct{}

func NewLogger(level string) (*zap.Logger, error) {
	parsedLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsedLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	var parsed zapcore.Level
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "" {
		normalized = "info"
	}

	if err := parsed.UnmarshalText([]byte(normalized)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return parsed, nil
}

func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, correlationIDKey{})
}

func WithCampaignID(ctx context.Context, campaignID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, campaignIDKey{}, campaignID)
}

func CampaignIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, campaignIDKey{})
}

func stringFromContext(ctx context.Context, key any) (string, bool) {
	if ctx == nil {
		return "", false
	}

	value, ok := ctx.Value(key).(string)
	if !ok || value == "" {
		return "", false
	}

	return value, true
}

// WithContextLogger attaches correlation and campaign IDs from the context.
func WithContextLogger(logger *zap.Logger, ctx context.Context) *zap.Logger {
	if logger == nil {
		return nil
	}

	if correlationID, ok := CorrelationIDFromContext(ctx); ok {
		logger = logger.With(zap.String("correlationId", correlationID))
	}
	if campaignID, ok := CampaignIDFromContext(ctx); ok {
		logger = logger.With(zap.String("campaignId", campaignID))
	}

	return logger
}
