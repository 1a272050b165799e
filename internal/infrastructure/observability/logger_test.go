package observability

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	otellog "go.opentelemetry.io/otel/log"
)

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, otellog.SeverityInfo, severityOf(zerolog.InfoLevel))
	assert.Equal(t, otellog.SeverityWarn, severityOf(zerolog.WarnLevel))
	assert.Equal(t, otellog.SeverityError, severityOf(zerolog.ErrorLevel))
	assert.Equal(t, otellog.SeverityFatal, severityOf(zerolog.PanicLevel))
}

func TestLoggerFromContextWithoutSpan(t *testing.T) {
	logger := LoggerFromContext(context.Background())
	assert.NotNil(t, logger)
}

func TestRecordHelpersTolerateNilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordBooking(ctx, nil, "exclusive", "created")
		RecordStatusChange(ctx, nil, "pending", "confirmed")
		RecordPublishFailure(ctx, nil, "appointments-changes")
		RecordRequestMetric(ctx, nil, "GET", "/health", 200, 0)
	})
}
