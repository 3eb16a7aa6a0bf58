package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls GORM span instrumentation.
type DBTracingConfig struct {
	Enabled bool
	// DBSystem is reported as db.system (postgresql or sqlite).
	DBSystem string
	// IncludeQueryVariables puts bound values into db.statement. Keep it off in production.
	IncludeQueryVariables bool
	SlowQueryThreshold    time.Duration
	// TracerProvider overrides the global provider; used by tests.
	TracerProvider trace.TracerProvider
}

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm plus a slow-query annotator on db.
// The annotator is registered first so its after-hooks run while the otelgorm
// span is still open.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if err := registerSlowQueryHooks(db, cfg.SlowQueryThreshold); err != nil {
		return err
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.IncludeQueryVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(cfg.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.String("db_system", cfg.DBSystem),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)
	return nil
}

func registerSlowQueryHooks(db *gorm.DB, threshold time.Duration) error {
	markStart := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	annotate := func(tx *gorm.DB) { annotateSpan(tx, threshold) }

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("farmtrack:start_create", markStart),
		cb.Query().Before("gorm:query").Register("farmtrack:start_query", markStart),
		cb.Update().Before("gorm:update").Register("farmtrack:start_update", markStart),
		cb.Delete().Before("gorm:delete").Register("farmtrack:start_delete", markStart),
		cb.Row().Before("gorm:row").Register("farmtrack:start_row", markStart),
		cb.Raw().Before("gorm:raw").Register("farmtrack:start_raw", markStart),
		cb.Create().After("gorm:create").Register("farmtrack:slow_create", annotate),
		cb.Query().After("gorm:query").Register("farmtrack:slow_query", annotate),
		cb.Update().After("gorm:update").Register("farmtrack:slow_update", annotate),
		cb.Delete().After("gorm:delete").Register("farmtrack:slow_delete", annotate),
		cb.Row().After("gorm:row").Register("farmtrack:slow_row", annotate),
		cb.Raw().After("gorm:raw").Register("farmtrack:slow_raw", annotate),
	)
}

func annotateSpan(tx *gorm.DB, threshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok || threshold <= 0 {
		return
	}
	if elapsed := time.Since(start); elapsed > threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
