// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"blogapi/internal/database"
	"blogapi/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// startOp opens a repository span and starts the latency timer. The returned
// func must be called with the operation's final error.
func startOp(ctx context.Context, method, table string) (context.Context, func(error)) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, method, table)
	done := observability.TrackQuery(method, table)
	return ctx, func(err error) {
		done()
		endSpan(span, err)
	}
}

func endSpan(span trace.Span, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = nil
	}
	observability.EndSpan(span, err)
}

// isUniqueConstraintError recognizes unique violations across drivers, with or
// without GORM error translation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, pgUniqueViolation)
}
