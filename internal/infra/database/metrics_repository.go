package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

// queryCanceled is the SQLSTATE Postgres returns when statement_timeout fires.
const queryCanceled = "57014"

// MetricsRepository runs the stored procedures that rebuild the dashboard aggregates.
type MetricsRepository struct {
	DB      *sql.DB
	Timeout time.Duration
}

func NewMetricsRepository(db *sql.DB, timeout time.Duration) *MetricsRepository {
	return &MetricsRepository{DB: db, Timeout: timeout}
}

func (r *MetricsRepository) RecalculateResponseTimes(ctx context.Context) error {
	return r.call(ctx, "calculate_response_times")
}

func (r *MetricsRepository) RecalculateConversions(ctx context.Context) error {
	return r.call(ctx, "calculate_conversions")
}

func (r *MetricsRepository) call(ctx context.Context, procedure string) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	if _, err := r.DB.ExecContext(ctx, "SELECT "+procedure+"()"); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%s: %w: %w", procedure, entity.ErrMetricsTimeout, err)
		}
		return fmt.Errorf("%s: %w", procedure, err)
	}
	return nil
}

func isTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == queryCanceled {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
