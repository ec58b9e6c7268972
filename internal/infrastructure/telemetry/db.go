package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBInstrumentationConfig controls database spans and query metrics.
type DBInstrumentationConfig struct {
	TracingEnabled  bool
	MetricsEnabled  bool
	SlowQueryThresh time.Duration // default 200ms
	// IncludeQueryVariables puts bound values into span statements. Development only.
	IncludeQueryVariables bool
}

// DBInstrumentation is a GORM plugin that times every statement, records
// query metrics, and marks slow or failed statements on the otelgorm span.
type DBInstrumentation struct {
	cfg      DBInstrumentationConfig
	duration *Histogram
	errors   *Counter
	slow     *Counter
	logger   *zap.Logger
}

type dbStartKey struct{}

// RegisterDBInstrumentation installs otelgorm (when tracing is enabled) and the
// timing plugin on db. meter may be nil when metrics are disabled.
func RegisterDBInstrumentation(db *gorm.DB, cfg DBInstrumentationConfig, meter metric.Meter, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}

	if cfg.TracingEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
		if !cfg.IncludeQueryVariables {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	p := &DBInstrumentation{cfg: cfg, logger: logger}
	if cfg.MetricsEnabled && meter != nil {
		var err error
		if p.duration, err = NewHistogram(meter, HistogramOpts{
			Name:        "db_client_query_duration_seconds",
			Description: "Database statement latency",
			Unit:        "s",
			Boundaries:  DBDurationBuckets,
		}); err != nil {
			return err
		}
		if p.errors, err = NewCounter(meter, "db_client_query_errors_total", "Failed database statements", "{query}"); err != nil {
			return err
		}
		if p.slow, err = NewCounter(meter, "db_client_slow_queries_total", "Statements above the slow query threshold", "{query}"); err != nil {
			return err
		}
	}

	if err := db.Use(p); err != nil {
		return err
	}
	logger.Info("Database instrumentation registered",
		zap.Bool("tracing", cfg.TracingEnabled),
		zap.Bool("metrics", p.duration != nil),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

// Name implements gorm.Plugin.
func (p *DBInstrumentation) Name() string { return "backoffice:db_instrumentation" }

// Initialize implements gorm.Plugin.
func (p *DBInstrumentation) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		name   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
		op     string
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "INSERT"},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "SELECT"},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "UPDATE"},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "DELETE"},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, ""},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, ""},
	}
	for _, h := range hooks {
		op := h.op
		if err := h.before("instrumentation:before_"+h.name, p.before); err != nil {
			return err
		}
		if err := h.after("instrumentation:after_"+h.name, func(db *gorm.DB) { p.after(db, op) }); err != nil {
			return err
		}
	}
	return nil
}

func (p *DBInstrumentation) before(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, dbStartKey{}, time.Now())
}

func (p *DBInstrumentation) after(db *gorm.DB, op string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(dbStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if op == "" {
		op = detectOperationType(db.Statement.SQL.String())
	}
	failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)
	slow := elapsed > p.cfg.SlowQueryThresh

	attrs := []attribute.KeyValue{AttrDBOperation.String(op), AttrDBTable.String(db.Statement.Table)}
	if p.duration != nil {
		p.duration.RecordDuration(ctx, elapsed, attrs...)
		if failed {
			p.errors.Inc(ctx, attrs...)
		}
		if slow {
			p.slow.Inc(ctx, attrs...)
		}
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if failed {
			span.SetStatus(codes.Error, db.Error.Error())
		}
		if slow {
			span.SetAttributes(attribute.Bool("db.slow_query", true))
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.cfg.SlowQueryThresh.Milliseconds()),
			))
		}
	}
	if slow {
		p.logger.Warn("Slow query",
			zap.String("operation", op),
			zap.String("table", db.Statement.Table),
			zap.Duration("elapsed", elapsed),
		)
	}
}

func detectOperationType(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "WITH"} {
		if strings.HasPrefix(sql, op) {
			if op == "WITH" {
				return "SELECT"
			}
			return op
		}
	}
	return "OTHER"
}

// RegisterDBPoolMetrics exports connection pool gauges read from stats at
// every collection.
func RegisterDBPoolMetrics(meter metric.Meter, stats func() (sql.DBStats, error)) error {
	open, err := meter.Int64ObservableGauge("db_client_connections_open",
		metric.WithDescription("Open connections, in use or idle"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	inUse, err := meter.Int64ObservableGauge("db_client_connections_in_use",
		metric.WithDescription("Connections currently running a statement"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db_client_connection_waits_total",
		metric.WithDescription("Times a caller waited for a free connection"), metric.WithUnit("{wait}"))
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s, err := stats()
		if err != nil {
			return err
		}
		o.ObserveInt64(open, int64(s.OpenConnections))
		o.ObserveInt64(inUse, int64(s.InUse))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, open, inUse, waits)
	return err
}
