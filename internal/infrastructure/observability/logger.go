package observability

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type orderLogKey struct{}

type orderLogFields struct {
	orderID   string
	companyID string
}

// InitLogger configures the global zerolog logger. Development output is
// human-readable; everything else is JSON with caller information. An unknown
// level falls back to info.
func InitLogger(serviceName, env, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(parseLevel(level))

	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}).With().Str("service", serviceName).Logger()
		return
	}

	log.Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Str("env", env).
		Logger()
}

func parseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// ContextWithOrder tags ctx so that LoggerFromContext adds the order and
// company to every entry.
func ContextWithOrder(ctx context.Context, orderID, companyID string) context.Context {
	return context.WithValue(ctx, orderLogKey{}, orderLogFields{orderID: orderID, companyID: companyID})
}

// LoggerFromContext returns the global logger enriched with the trace and
// order carried by ctx.
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	lc := log.With()

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		lc = lc.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
	}

	if f, ok := ctx.Value(orderLogKey{}).(orderLogFields); ok {
		lc = lc.Str("order_id", f.orderID)
		if f.companyID != "" {
			lc = lc.Str("company_id", f.companyID)
		}
	}

	logger := lc.Logger()
	return &logger
}

// WithComponent returns a child of the global logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
