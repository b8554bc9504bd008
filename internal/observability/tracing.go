package observability

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a tracer for the given name
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartServiceSpan starts a span for service operations
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.component", service),
			attribute.String("service.operation", operation),
		),
	)
}

// StartClientSpan starts a span for calls to the remote photo service
func StartClientSpan(ctx context.Context, operation, url string) (context.Context, trace.Span) {
	return StartSpan(ctx, "HTTP "+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.url", url),
		),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// DatabaseMetrics holds database-related metrics
type DatabaseMetrics struct {
	queryDuration metric.Float64Histogram
	queryCount    metric.Int64Counter
	errorCount    metric.Int64Counter
}

// NewDatabaseMetrics creates database metrics instruments
func NewDatabaseMetrics() (*DatabaseMetrics, error) {
	meter := otel.Meter(instrumentationName)

	queryDuration, err := meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	queryCount, err := meter.Int64Counter(
		"db.query.count",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{queries}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"db.error.count",
		metric.WithDescription("Total number of database errors"),
		metric.WithUnit("{errors}"),
	)
	if err != nil {
		return nil, err
	}

	return &DatabaseMetrics{
		queryDuration: queryDuration,
		queryCount:    queryCount,
		errorCount:    errorCount,
	}, nil
}

// RecordQuery records a database query metrics
func (m *DatabaseMetrics) RecordQuery(ctx context.Context, system, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", system),
		attribute.String("db.operation", operation),
	}

	m.queryCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.queryDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.errorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// TraceDB wraps sql.DB with tracing
type TraceDB struct {
	db      *sql.DB
	system  string
	metrics *DatabaseMetrics
}

// NewTraceDB creates a traced database wrapper. system is the db.system
// attribute value, e.g. "sqlite" or "postgresql".
func NewTraceDB(db *sql.DB, system string) (*TraceDB, error) {
	metrics, err := NewDatabaseMetrics()
	if err != nil {
		return nil, err
	}

	return &TraceDB{
		db:      db,
		system:  system,
		metrics: metrics,
	}, nil
}

// QueryContext executes a query with tracing
func (t *TraceDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	ctx, span := t.startSpan(ctx, "DB Query", query)
	defer span.End()

	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.finish(ctx, span, query, time.Since(start), err)

	return rows, err
}

// ExecContext executes a statement with tracing
func (t *TraceDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, span := t.startSpan(ctx, "DB Exec", query)
	defer span.End()

	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.finish(ctx, span, query, time.Since(start), err)
	if err == nil {
		if rowsAffected, raErr := result.RowsAffected(); raErr == nil {
			span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
		}
	}

	return result, err
}

// QueryRowContext executes a query that returns a single row with tracing
func (t *TraceDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	ctx, span := t.startSpan(ctx, "DB QueryRow", query)
	// Note: span.End() should be called after scanning the row
	// This is a limitation of the sql.Row interface

	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.finish(ctx, span, query, time.Since(start), row.Err())
	span.End()
	return row
}

// DB returns the underlying database connection
func (t *TraceDB) DB() *sql.DB {
	return t.db
}

func (t *TraceDB) startSpan(ctx context.Context, name, query string) (context.Context, trace.Span) {
	return StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", t.system),
			attribute.String("db.statement", truncateQuery(query)),
		),
	)
}

func (t *TraceDB) finish(ctx context.Context, span trace.Span, query string, duration time.Duration, err error) {
	if err != nil && err != sql.ErrNoRows {
		RecordError(span, err)
	} else {
		SetSuccess(span)
	}
	span.SetAttributes(attribute.Int64("db.query_duration_ms", duration.Milliseconds()))
	t.metrics.RecordQuery(ctx, t.system, queryOperation(query), duration, err)
}

func truncateQuery(query string) string {
	if len(query) > 500 {
		return query[:500] + "..."
	}
	return query
}

func queryOperation(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}

// ReconcileMetrics holds the metrics of the daily photo runs.
// A nil *ReconcileMetrics records nothing.
type ReconcileMetrics struct {
	runs        metric.Int64Counter
	runDuration metric.Float64Histogram
	photosSaved metric.Int64Counter
	pages       metric.Int64Counter
	items       metric.Int64Counter
}

// NewReconcileMetrics creates reconcile metrics instruments
func NewReconcileMetrics() (*ReconcileMetrics, error) {
	meter := otel.Meter(instrumentationName)

	runs, err := meter.Int64Counter(
		"threesixtyfive.reconcile.runs",
		metric.WithDescription("Total number of reconcile runs"),
		metric.WithUnit("{runs}"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"threesixtyfive.reconcile.duration",
		metric.WithDescription("Reconcile run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	photosSaved, err := meter.Int64Counter(
		"threesixtyfive.photos.saved",
		metric.WithDescription("Total number of daily photos saved"),
		metric.WithUnit("{photos}"),
	)
	if err != nil {
		return nil, err
	}

	pages, err := meter.Int64Counter(
		"threesixtyfive.feed.pages",
		metric.WithDescription("Total number of remote feed pages fetched"),
		metric.WithUnit("{pages}"),
	)
	if err != nil {
		return nil, err
	}

	items, err := meter.Int64Counter(
		"threesixtyfive.feed.items",
		metric.WithDescription("Total number of remote media items fetched"),
		metric.WithUnit("{items}"),
	)
	if err != nil {
		return nil, err
	}

	return &ReconcileMetrics{
		runs:        runs,
		runDuration: runDuration,
		photosSaved: photosSaved,
		pages:       pages,
		items:       items,
	}, nil
}

// RecordRun records a finished reconcile run
func (m *ReconcileMetrics) RecordRun(ctx context.Context, mode string, saved int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("mode", mode),
		attribute.Bool("success", err == nil),
		attribute.Int("saved", saved),
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.runDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs[:2]...))
}

// RecordPhotoSaved records one persisted daily photo
func (m *ReconcileMetrics) RecordPhotoSaved(ctx context.Context, year int) {
	if m == nil {
		return
	}
	m.photosSaved.Add(ctx, 1, metric.WithAttributes(attribute.Int("year", year)))
}

// RecordPage records one fetched feed page
func (m *ReconcileMetrics) RecordPage(ctx context.Context, items int) {
	if m == nil {
		return
	}
	m.pages.Add(ctx, 1)
	m.items.Add(ctx, int64(items))
}
