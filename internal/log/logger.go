package log

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type fieldsKey struct{}

// Fields are the request-scoped values every pricing log line carries. Empty values are omitted.
type Fields struct {
	RequestID string
	TraceID   string
	Location  string
	RateMode  string
	Coupon    string
}

func (f Fields) zapFields() []zap.Field {
	out := make([]zap.Field, 0, 5)
	add := func(key, value string) {
		if value != "" {
			out = append(out, zap.String(key, value))
		}
	}
	add("request_id", f.RequestID)
	add("trace_id", f.TraceID)
	add("location", f.Location)
	add("rate_mode", f.RateMode)
	add("coupon", f.Coupon)
	return out
}

// FieldsFrom returns the fields stored on ctx
func FieldsFrom(ctx context.Context) Fields {
	f, _ := ctx.Value(fieldsKey{}).(Fields)
	return f
}

func with(ctx context.Context, set func(*Fields)) context.Context {
	f := FieldsFrom(ctx)
	set(&f)
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithRequestID tags log lines with the HTTP request ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, func(f *Fields) { f.RequestID = id })
}

// WithTraceID tags log lines with the OpenTelemetry trace ID
func WithTraceID(ctx context.Context, id string) context.Context {
	return with(ctx, func(f *Fields) { f.TraceID = id })
}

// WithSession tags log lines with the parking location and the coupon code the driver presented
func WithSession(ctx context.Context, location, couponCode string) context.Context {
	return with(ctx, func(f *Fields) {
		f.Location = location
		f.Coupon = couponCode
	})
}

// WithRateMode tags log lines with the rate mode being priced
func WithRateMode(ctx context.Context, mode string) context.Context {
	return with(ctx, func(f *Fields) { f.RateMode = mode })
}

// RequestID returns the request ID stored on ctx, if any
func RequestID(ctx context.Context) string {
	return FieldsFrom(ctx).RequestID
}

var globalLogger atomic.Pointer[zap.Logger]

// Init builds the production logger and installs it globally. Every line carries the service name.
func Init(level, service string) error {
	logger, err := NewProduction(level)
	if err != nil {
		return err
	}
	globalLogger.Store(logger.With(zap.String("service", service)))
	return nil
}

// SetLogger replaces the global logger, e.g. with an observer in tests
func SetLogger(logger *zap.Logger) {
	globalLogger.Store(logger)
}

// NewProduction creates a JSON logger on stdout. Unknown levels fall back to info.
func NewProduction(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		logLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(logLevel)
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	config.Encoding = "json"
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	return config.Build()
}

// L returns the global logger annotated with the request fields on ctx
func L(ctx context.Context) *zap.Logger {
	logger := globalLogger.Load()
	if logger == nil {
		logger, _ = zap.NewProduction()
		globalLogger.CompareAndSwap(nil, logger)
	}
	if fields := FieldsFrom(ctx).zapFields(); len(fields) > 0 {
		logger = logger.With(fields...)
	}
	return logger
}

// Info logs an info message with context
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	L(ctx).Info(msg, fields...)
}

// Error logs an error message with context
func Error(ctx context.Context, msg string, fields ...zap.Field) {
	L(ctx).Error(msg, fields...)
}

// Warn logs a warning message with context
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	L(ctx).Warn(msg, fields...)
}

// Debug logs a debug message with context
func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	L(ctx).Debug(msg, fields...)
}
