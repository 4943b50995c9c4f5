package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextIDs(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ConversionID(ctx))
	assert.Empty(t, NodeName(ctx))

	ctx = WithConversionID(ctx, "c-123")
	ctx = WithNodeName(ctx, "Fetch")

	assert.Equal(t, "c-123", ConversionID(ctx))
	assert.Equal(t, "Fetch", NodeName(ctx))
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithConversionID(context.Background(), "c-123")
	LogWith(ctx, logger).Info("hello")

	out := buf.String()
	assert.Contains(t, out, `"conversion_id":"c-123"`)
	assert.NotContains(t, out, `"node"`)
}

func TestCorrelationHandler_InjectsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := WithConversionID(context.Background(), "c-9")
	ctx = WithNodeName(ctx, "Store")
	logger.InfoContext(ctx, "converted")

	out := buf.String()
	assert.Contains(t, out, `"conversion_id":"c-9"`)
	assert.Contains(t, out, `"node":"Store"`)
}

func TestCorrelationHandler_NoIDsNoAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "plain")

	assert.NotContains(t, buf.String(), "conversion_id")
}

func TestCorrelationHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	base := NewCorrelationHandler(slog.NewJSONHandler(&buf, nil))

	logger := slog.New(base).With(slog.String("component", "convert")).WithGroup("run")
	ctx := WithConversionID(context.Background(), "c-1")
	logger.InfoContext(ctx, "msg", slog.Int("nodes", 3))

	out := buf.String()
	require.Contains(t, out, `"component":"convert"`)
	assert.Contains(t, out, `"nodes":3`)
	assert.Contains(t, out, `"conversion_id":"c-1"`)
}
